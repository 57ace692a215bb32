package handlers

import (
	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/meanin2/ac-automation/internal/logger"
	"github.com/meanin2/ac-automation/internal/service"
)

// Handler wires the HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger) *Handler {
	return &Handler{services: services, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", h.health)

	auth := router.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}

	api := router.Group("/api/v1", h.authMiddleware)
	{
		api.GET("/status", h.getStatus)
		api.GET("/logs", h.getLogs)

		device := api.Group("/device")
		{
			device.POST("/power", h.setPower)
			device.POST("/climate-react", h.setClimateReact)
		}

		windows := api.Group("/windows")
		{
			windows.POST("/:name/enter", h.windowEnter)
			windows.POST("/:name/exit", h.windowExit)
		}
	}

	// Live status stream (HTTP upgrade), same port.
	router.GET("/ws", h.wsConnect)

	return router
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}
