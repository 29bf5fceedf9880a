package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wordpath/learning-service/internal/services"
	"github.com/wordpath/learning-service/internal/utils"
)

type ProgressHandler struct {
	BaseHandler
	progressService services.ProgressService
}

func NewProgressHandler(progressService services.ProgressService, logger utils.Logger) *ProgressHandler {
	return &ProgressHandler{
		BaseHandler:     NewBaseHandler(logger),
		progressService: progressService,
	}
}

// UnitOverview aggregates a student's per-round progress into a unit summary
// @Summary Unit progress overview
// @Tags progress
// @Produce json
// @Param unit_id path uint true "Unit ID"
// @Success 200 {object} services.UnitOverview
// @Router /units/{unit_id}/overview [get]
func (h *ProgressHandler) UnitOverview(c *gin.Context) {
	unitID := h.parseIDParam(c, "unit_id")
	if unitID == 0 {
		return
	}
	actor, _ := GetActor(c)

	// Teachers may inspect any student; students only themselves. The
	// service enforces that, the handler just picks the target.
	studentID := c.DefaultQuery("student_id", actor.ID)

	overview, err := h.progressService.UnitOverview(c.Request.Context(), unitID, studentID, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, overview)
}
