package handlers

import (
	"gas_usage/internal/logger"
	"gas_usage/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
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

	// Health endpoint
	router.GET("/health", h.health)

	// Auth endpoints
	h.registerAuthRoutes(router)

	// Versioned API endpoints (protected)
	h.registerAPIRoutes(router)

	// Live snapshot stream (HTTP upgrade) on the same port
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.userIdMiddleware)
	{
		h.registerPipelineRoutes(api)
		h.registerPrefsRoutes(api)
		h.registerRunRoutes(api)
	}
}

func (h *Handler) registerPipelineRoutes(api *gin.RouterGroup) {
	pipe := api.Group("/pipeline")
	{
		// Body example: {"start":"2024-03-01","end":"2024-03-02","k":7.97}
		pipe.POST("/run", h.runEstimation)
		pipe.POST("/calibrate", h.calibrate)
		pipe.GET("/export", h.exportCSV)
	}
}

func (h *Handler) registerPrefsRoutes(api *gin.RouterGroup) {
	prefs := api.Group("/prefs")
	{
		prefs.GET("/", h.getPrefs)
		prefs.PUT("/", h.updatePrefs)
	}
}

func (h *Handler) registerRunRoutes(api *gin.RouterGroup) {
	runs := api.Group("/runs")
	{
		runs.GET("/", h.getRuns)
	}
}
