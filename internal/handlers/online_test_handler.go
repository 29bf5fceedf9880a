package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wordpath/learning-service/internal/services"
	"github.com/wordpath/learning-service/internal/utils"
)

type OnlineTestHandler struct {
	BaseHandler
	onlineTestService services.OnlineTestService
	validator         *utils.Validator
}

func NewOnlineTestHandler(
	onlineTestService services.OnlineTestService,
	validator *utils.Validator,
	logger utils.Logger,
) *OnlineTestHandler {
	return &OnlineTestHandler{
		BaseHandler:       NewBaseHandler(logger),
		onlineTestService: onlineTestService,
		validator:         validator,
	}
}

// StartSession opens (or resumes) a timed test session for the student
// @Summary Start online test session
// @Tags online-tests
// @Produce json
// @Param test_id path uint true "Test ID"
// @Success 200 {object} services.OnlineSessionView
// @Failure 409 {object} ErrorResponse
// @Router /online-tests/{test_id}/session [post]
func (h *OnlineTestHandler) StartSession(c *gin.Context) {
	testID := h.parseIDParam(c, "test_id")
	if testID == 0 {
		return
	}
	actor, _ := GetActor(c)

	h.LogRequest(c, "Starting online test session", "test_id", testID)

	view, err := h.onlineTestService.StartSession(c.Request.Context(), testID, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// SaveAnswer stores one answer inside a running session
// @Summary Save session answer
// @Tags online-tests
// @Accept json
// @Produce json
// @Param session_id path string true "Session ID"
// @Success 200 {object} services.OnlineSessionView
// @Router /online-tests/sessions/{session_id}/answers [post]
func (h *OnlineTestHandler) SaveAnswer(c *gin.Context) {
	sessionID := h.parseStringIDParam(c, "session_id")
	if sessionID == "" {
		return
	}
	actor, _ := GetActor(c)

	var req services.SaveAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: err.Error(),
		})
		return
	}

	view, err := h.onlineTestService.SaveAnswer(c.Request.Context(), sessionID, &req, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// Submit finalizes the session and persists the result
// @Summary Submit online test
// @Tags online-tests
// @Produce json
// @Param session_id path string true "Session ID"
// @Success 200 {object} models.OnlineTestResult
// @Router /online-tests/sessions/{session_id}/submit [post]
func (h *OnlineTestHandler) Submit(c *gin.Context) {
	sessionID := h.parseStringIDParam(c, "session_id")
	if sessionID == "" {
		return
	}
	actor, _ := GetActor(c)

	h.LogRequest(c, "Submitting online test", "session_id", sessionID)

	result, err := h.onlineTestService.Submit(c.Request.Context(), sessionID, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Beacon is the fire-and-forget flush a closing browser tab sends.
// It always answers 204: there is nobody left to read an error.
// @Summary Session beacon
// @Tags online-tests
// @Param session_id path string true "Session ID"
// @Success 204
// @Router /online-tests/sessions/{session_id}/beacon [post]
func (h *OnlineTestHandler) Beacon(c *gin.Context) {
	sessionID := h.parseStringIDParam(c, "session_id")
	if sessionID == "" {
		return
	}
	actor, _ := GetActor(c)

	h.onlineTestService.Beacon(c.Request.Context(), sessionID, actor)
	c.Status(http.StatusNoContent)
}

// GetResult returns a stored test result
// @Summary Get online test result
// @Tags online-tests
// @Produce json
// @Param test_id path uint true "Test ID"
// @Param student_id path string true "Student ID"
// @Success 200 {object} models.OnlineTestResult
// @Router /online-tests/{test_id}/results/{student_id} [get]
func (h *OnlineTestHandler) GetResult(c *gin.Context) {
	testID := h.parseIDParam(c, "test_id")
	if testID == 0 {
		return
	}
	studentID := h.parseStringIDParam(c, "student_id")
	if studentID == "" {
		return
	}
	actor, _ := GetActor(c)

	result, err := h.onlineTestService.GetResult(c.Request.Context(), testID, studentID, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
