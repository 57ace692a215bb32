package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/meanin2/ac-automation/internal/service"
)

type powerRequest struct {
	On *bool `json:"on" binding:"required"`
}

type climateReactRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// @Summary      Override device power
// @Tags         device
// @Accept       json
// @Produce      json
// @Success      200  {object}  map[string]bool
// @Failure      400  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/device/power [post]
// @Security     BearerAuth
func (h *Handler) setPower(c *gin.Context) {
	var input powerRequest
	if ok := h.bindJSONOrBadRequest(c, &input); !ok {
		return
	}
	if err := h.services.ForcePower(c.Request.Context(), *input.On); err != nil {
		if h.log != nil {
			h.log.Errorw("power override failed", "on", *input.On, "err", err)
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "actuation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"on": *input.On})
}

// @Summary      Override climate react
// @Tags         device
// @Accept       json
// @Produce      json
// @Success      200  {object}  map[string]bool
// @Failure      400  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/device/climate-react [post]
// @Security     BearerAuth
func (h *Handler) setClimateReact(c *gin.Context) {
	var input climateReactRequest
	if ok := h.bindJSONOrBadRequest(c, &input); !ok {
		return
	}
	if err := h.services.ForceClimateReact(c.Request.Context(), *input.Enabled); err != nil {
		if h.log != nil {
			h.log.Errorw("climate react override failed", "enabled", *input.Enabled, "err", err)
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "actuation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": *input.Enabled})
}

// @Summary      Apply a window's entry mandate
// @Tags         windows
// @Produce      json
// @Param        name  path  string  true  "Window name"
// @Success      200  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/windows/{name}/enter [post]
// @Security     BearerAuth
func (h *Handler) windowEnter(c *gin.Context) {
	h.applyWindowMandate(c, h.services.EnterWindow, "entered")
}

// @Summary      Apply a window's exit mandate
// @Tags         windows
// @Produce      json
// @Param        name  path  string  true  "Window name"
// @Success      200  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/windows/{name}/exit [post]
// @Security     BearerAuth
func (h *Handler) windowExit(c *gin.Context) {
	h.applyWindowMandate(c, h.services.ExitWindow, "exited")
}

func (h *Handler) applyWindowMandate(c *gin.Context, apply func(ctx context.Context, name string) error, status string) {
	name := c.Param("name")
	if err := apply(c.Request.Context(), name); err != nil {
		if errors.Is(err, service.ErrUnknownWindow) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown window " + name})
			return
		}
		if h.log != nil {
			h.log.Errorw("window mandate failed", "window", name, "err", err)
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "actuation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"window": name, "status": status})
}
