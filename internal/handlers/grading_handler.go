package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wordpath/learning-service/internal/services"
	"github.com/wordpath/learning-service/internal/utils"
)

type GradingHandler struct {
	BaseHandler
	gradingService services.GradingService
	validator      *utils.Validator
}

func NewGradingHandler(
	gradingService services.GradingService,
	validator *utils.Validator,
	logger utils.Logger,
) *GradingHandler {
	return &GradingHandler{
		BaseHandler:    NewBaseHandler(logger),
		gradingService: gradingService,
		validator:      validator,
	}
}

// ListResults returns one row per enrolled student for a test, submitted or not
// @Summary List test results
// @Tags grading
// @Produce json
// @Param test_id path uint true "Test ID"
// @Success 200 {array} models.ResultListEntry
// @Failure 403 {object} ErrorResponse
// @Router /online-tests/{test_id}/results [get]
func (h *GradingHandler) ListResults(c *gin.Context) {
	testID := h.parseIDParam(c, "test_id")
	if testID == 0 {
		return
	}
	actor, _ := GetActor(c)

	entries, err := h.gradingService.ListResults(c.Request.Context(), testID, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results": entries,
		"total":   len(entries),
	})
}

// GradeResult records per-answer marks, a grade and a pass flag on a result
// @Summary Grade test result
// @Tags grading
// @Accept json
// @Produce json
// @Param test_id path uint true "Test ID"
// @Param student_id path string true "Student ID"
// @Param grade body services.GradeResultRequest true "Grading data"
// @Success 200 {object} models.OnlineTestResult
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /online-tests/{test_id}/results/{student_id}/grade [post]
func (h *GradingHandler) GradeResult(c *gin.Context) {
	testID := h.parseIDParam(c, "test_id")
	if testID == 0 {
		return
	}
	studentID := h.parseStringIDParam(c, "student_id")
	if studentID == "" {
		return
	}
	actor, _ := GetActor(c)

	h.LogRequest(c, "Grading test result", "test_id", testID, "student_id", studentID)

	var req services.GradeResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	result, err := h.gradingService.GradeResult(c.Request.Context(), testID, studentID, &req, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// AllowRetake wipes a student's result so the test can be taken again
// @Summary Allow test retake
// @Tags grading
// @Param test_id path uint true "Test ID"
// @Param student_id path string true "Student ID"
// @Success 200 {object} SuccessResponse
// @Failure 403 {object} ErrorResponse
// @Router /online-tests/{test_id}/results/{student_id}/reset [post]
func (h *GradingHandler) AllowRetake(c *gin.Context) {
	testID := h.parseIDParam(c, "test_id")
	if testID == 0 {
		return
	}
	studentID := h.parseStringIDParam(c, "student_id")
	if studentID == "" {
		return
	}
	actor, _ := GetActor(c)

	h.LogRequest(c, "Allowing test retake", "test_id", testID, "student_id", studentID)

	if err := h.gradingService.AllowRetake(c.Request.Context(), testID, studentID, actor); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Result cleared, retake allowed"})
}
