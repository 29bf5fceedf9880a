package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wordpath/learning-service/internal/services"
	"github.com/wordpath/learning-service/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type TestAdminHandler struct {
	BaseHandler
	testAdminService services.TestAdminService
	validator        *utils.Validator
}

func NewTestAdminHandler(
	testAdminService services.TestAdminService,
	validator *utils.Validator,
	logger utils.Logger,
) *TestAdminHandler {
	return &TestAdminHandler{
		BaseHandler:      NewBaseHandler(logger),
		testAdminService: testAdminService,
		validator:        validator,
	}
}

// CreateTest registers a new online test and announces it to students
// @Summary Create online test
// @Tags test-admin
// @Accept json
// @Produce json
// @Param test body services.CreateTestRequest true "Test definition"
// @Success 201 {object} models.OnlineTest
// @Failure 403 {object} ErrorResponse
// @Router /online-tests [post]
func (h *TestAdminHandler) CreateTest(c *gin.Context) {
	actor, _ := GetActor(c)

	var req services.CreateTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Creating online test", "title", req.Title)

	test, err := h.testAdminService.CreateTest(c.Request.Context(), &req, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, test)
}

// ExportResults streams a test's grade book as an xlsx file
// @Summary Export test results
// @Tags test-admin
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param test_id path uint true "Test ID"
// @Failure 403 {object} ErrorResponse
// @Router /online-tests/{test_id}/export [get]
func (h *TestAdminHandler) ExportResults(c *gin.Context) {
	testID := h.parseIDParam(c, "test_id")
	if testID == 0 {
		return
	}
	actor, _ := GetActor(c)

	h.LogRequest(c, "Exporting test results", "test_id", testID)

	data, err := h.testAdminService.ExportResults(c.Request.Context(), testID, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("test_%d_results.xlsx", testID)
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, xlsxContentType, data)
}

// ExportUnitGrades streams a unit's grade book as an xlsx file
// @Summary Export unit grades
// @Tags test-admin
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param unit_id path uint true "Unit ID"
// @Failure 403 {object} ErrorResponse
// @Router /units/{unit_id}/grades/export [get]
func (h *TestAdminHandler) ExportUnitGrades(c *gin.Context) {
	unitID := h.parseIDParam(c, "unit_id")
	if unitID == 0 {
		return
	}
	actor, _ := GetActor(c)

	h.LogRequest(c, "Exporting unit grades", "unit_id", unitID)

	data, err := h.testAdminService.ExportUnitGrades(c.Request.Context(), unitID, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("unit_%d_grades.xlsx", unitID)
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, xlsxContentType, data)
}
