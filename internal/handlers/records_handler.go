package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wordpath/learning-service/internal/repositories"
	"github.com/wordpath/learning-service/internal/services"
	"github.com/wordpath/learning-service/internal/utils"
)

type RecordsHandler struct {
	BaseHandler
	recordsService services.RecordsService
	validator      *utils.Validator
}

func NewRecordsHandler(
	recordsService services.RecordsService,
	validator *utils.Validator,
	logger utils.Logger,
) *RecordsHandler {
	return &RecordsHandler{
		BaseHandler:    NewBaseHandler(logger),
		recordsService: recordsService,
		validator:      validator,
	}
}

// AddOfflineScore records a score a teacher observed outside the app
// @Summary Add offline test score
// @Tags records
// @Accept json
// @Produce json
// @Param score body services.OfflineScoreRequest true "Score data"
// @Success 201 {object} models.OfflineTestScore
// @Failure 403 {object} ErrorResponse
// @Router /offline-scores [post]
func (h *RecordsHandler) AddOfflineScore(c *gin.Context) {
	actor, _ := GetActor(c)

	var req services.OfflineScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Adding offline score", "student_id", req.StudentID)

	score, err := h.recordsService.AddOfflineScore(c.Request.Context(), &req, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, score)
}

// ListOfflineScores lists a student's offline scores
// @Summary List offline test scores
// @Tags records
// @Produce json
// @Param student_id path string true "Student ID"
// @Router /students/{student_id}/offline-scores [get]
func (h *RecordsHandler) ListOfflineScores(c *gin.Context) {
	studentID := h.parseStringIDParam(c, "student_id")
	if studentID == "" {
		return
	}
	actor, _ := GetActor(c)

	filters := repositories.RecordFilters{
		DateFrom: parseTimeQuery(c, "date_from"),
		DateTo:   parseTimeQuery(c, "date_to"),
		Limit:    parseIntQuery(c, "limit", 50),
		Offset:   parseIntQuery(c, "offset", 0),
	}
	if teacherID := c.Query("teacher_id"); teacherID != "" {
		filters.TeacherID = &teacherID
	}

	scores, err := h.recordsService.ListOfflineScores(c.Request.Context(), studentID, filters, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"scores": scores,
		"total":  len(scores),
	})
}

// AssignUnitGrade sets (or replaces) a student's final grade for a unit
// @Summary Assign unit grade
// @Tags records
// @Accept json
// @Produce json
// @Param grade body services.UnitGradeRequest true "Grade data"
// @Success 200 {object} models.StudentUnitGrade
// @Failure 403 {object} ErrorResponse
// @Router /unit-grades [post]
func (h *RecordsHandler) AssignUnitGrade(c *gin.Context) {
	actor, _ := GetActor(c)

	var req services.UnitGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Assigning unit grade", "student_id", req.StudentID, "unit_id", req.UnitID)

	grade, err := h.recordsService.AssignUnitGrade(c.Request.Context(), &req, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, grade)
}

// ListUnitGrades lists a student's unit grades
// @Summary List unit grades
// @Tags records
// @Produce json
// @Param student_id path string true "Student ID"
// @Router /students/{student_id}/unit-grades [get]
func (h *RecordsHandler) ListUnitGrades(c *gin.Context) {
	studentID := h.parseStringIDParam(c, "student_id")
	if studentID == "" {
		return
	}
	actor, _ := GetActor(c)

	grades, err := h.recordsService.ListUnitGrades(c.Request.Context(), studentID, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"grades": grades,
		"total":  len(grades),
	})
}
