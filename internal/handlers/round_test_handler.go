package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wordpath/learning-service/internal/repositories"
	"github.com/wordpath/learning-service/internal/services"
	"github.com/wordpath/learning-service/internal/utils"
)

type RoundTestHandler struct {
	BaseHandler
	roundTestService services.RoundTestService
	validator        *utils.Validator
}

func NewRoundTestHandler(
	roundTestService services.RoundTestService,
	validator *utils.Validator,
	logger utils.Logger,
) *RoundTestHandler {
	return &RoundTestHandler{
		BaseHandler:      NewBaseHandler(logger),
		roundTestService: roundTestService,
		validator:        validator,
	}
}

// StartRound begins (or restarts) a round test for the current student
// @Summary Start round test
// @Tags round-tests
// @Produce json
// @Param round_id path uint true "Round ID"
// @Success 200 {object} services.RoundSessionView
// @Failure 404 {object} ErrorResponse
// @Router /rounds/{round_id}/attempts/start [post]
func (h *RoundTestHandler) StartRound(c *gin.Context) {
	roundID := h.parseIDParam(c, "round_id")
	if roundID == 0 {
		return
	}
	actor, _ := GetActor(c)

	h.LogRequest(c, "Starting round test", "round_id", roundID)

	view, err := h.roundTestService.Start(c.Request.Context(), roundID, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// SubmitWritten submits a written answer for the current word
// @Summary Submit written answer
// @Tags round-tests
// @Accept json
// @Produce json
// @Param session_id path string true "Session ID"
// @Success 200 {object} services.RoundSessionView
// @Router /rounds/attempts/{session_id}/written [post]
func (h *RoundTestHandler) SubmitWritten(c *gin.Context) {
	sessionID := h.parseStringIDParam(c, "session_id")
	if sessionID == "" {
		return
	}
	actor, _ := GetActor(c)

	var req services.SubmitWrittenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	view, err := h.roundTestService.SubmitWritten(c.Request.Context(), sessionID, &req, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// SubmitChoice submits a multiple-choice answer for the current word
// @Summary Submit choice answer
// @Tags round-tests
// @Accept json
// @Produce json
// @Param session_id path string true "Session ID"
// @Success 200 {object} services.RoundSessionView
// @Router /rounds/attempts/{session_id}/choice [post]
func (h *RoundTestHandler) SubmitChoice(c *gin.Context) {
	sessionID := h.parseStringIDParam(c, "session_id")
	if sessionID == "" {
		return
	}
	actor, _ := GetActor(c)

	var req services.SubmitChoiceRequest
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

	view, err := h.roundTestService.SubmitChoice(c.Request.Context(), sessionID, &req, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// GetProgress returns the student's best-known progress for a round
// @Summary Get round progress
// @Tags round-tests
// @Produce json
// @Param round_id path uint true "Round ID"
// @Success 200 {object} models.StudentRoundProgress
// @Router /rounds/{round_id}/progress [get]
func (h *RoundTestHandler) GetProgress(c *gin.Context) {
	roundID := h.parseIDParam(c, "round_id")
	if roundID == 0 {
		return
	}
	actor, _ := GetActor(c)

	progress, err := h.roundTestService.GetProgress(c.Request.Context(), roundID, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}

// GetHistory lists the student's completed attempts for a round
// @Summary Get attempt history
// @Tags round-tests
// @Produce json
// @Param round_id path uint true "Round ID"
// @Router /rounds/{round_id}/history [get]
func (h *RoundTestHandler) GetHistory(c *gin.Context) {
	roundID := h.parseIDParam(c, "round_id")
	if roundID == 0 {
		return
	}
	actor, _ := GetActor(c)

	filters := repositories.HistoryFilters{
		UnitID:    parseUintQuery(c, "unit_id"),
		DateFrom:  parseTimeQuery(c, "date_from"),
		DateTo:    parseTimeQuery(c, "date_to"),
		Limit:     parseIntQuery(c, "limit", 20),
		Offset:    parseIntQuery(c, "offset", 0),
		SortOrder: c.DefaultQuery("sort_order", "desc"),
	}

	history, total, err := h.roundTestService.GetHistory(c.Request.Context(), roundID, filters, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"attempts": history,
		"total":    total,
		"limit":    filters.Limit,
		"offset":   filters.Offset,
	})
}
