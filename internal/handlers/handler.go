package handlers

import (
	"crashgate/internal/logger"
	"crashgate/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
	gatherer prometheus.Gatherer
}

// NewHandler constructs a new HTTP handler with dependencies.
// A nil gatherer serves the default Prometheus registry.
func NewHandler(services *service.Service, log *logger.Logger, gatherer prometheus.Gatherer) *Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Handler{services: services, log: log, gatherer: gatherer}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", h.health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))

	h.registerAuthRoutes(router)
	h.registerAPIRoutes(router)

	// Live pipeline status over WebSocket, same port
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.operatorIdMiddleware)
	{
		h.registerExclusionRoutes(api)
		h.registerTelemetryRoutes(api)
	}
}

func (h *Handler) registerExclusionRoutes(api *gin.RouterGroup) {
	exclusions := api.Group("/exclusions")
	{
		exclusions.GET("", h.listExclusions)
		exclusions.POST("", h.createExclusion)
		exclusions.GET("/:id", h.getExclusion)
		exclusions.PUT("/:id", h.updateExclusion)
		exclusions.DELETE("/:id", h.deleteExclusion)
	}
}

func (h *Handler) registerTelemetryRoutes(api *gin.RouterGroup) {
	// Body: a LogEvent, e.g. {"level":"error","logger":"Db","message":"disk full","exception":{"type":"PathError"}}
	api.POST("/events", h.ingestEvent)

	telemetry := api.Group("/telemetry")
	{
		telemetry.GET("/status", h.telemetryStatus)
		telemetry.POST("/reset", h.telemetryReset)
	}
}
