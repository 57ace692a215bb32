package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// @Summary      Controller status
// @Description  Snapshot of the most recent reconciler pass: active window, observed flags, latest temperature, last intervention.
// @Tags         status
// @Produce      json
// @Success      200  {object}  models.ControllerStatus
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/status [get]
// @Security     BearerAuth
func (h *Handler) getStatus(c *gin.Context) {
	st, err := h.services.Monitoring.Status(c.Request.Context())
	if err != nil {
		if h.log != nil {
			h.log.Errorw("status load failed", "err", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load status"})
		return
	}
	c.JSON(http.StatusOK, st)
}
