package routes

import (
	"smartwaste/internal/config"
	"smartwaste/internal/handler"
	"smartwaste/internal/logger"
	"smartwaste/internal/middleware"
	"smartwaste/internal/service"

	"github.com/gin-gonic/gin"
)

// SetupRoutes builds the gin engine with every device, dashboard and
// operator endpoint.
func SetupRoutes(manager *service.Manager, cfg *config.Config, logger *logger.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(cfg.CORSOrigin))

	engine.GET("/", handler.HomeHandler)
	engine.GET("/health", handler.HealthHandler(manager))

	// Device endpoints
	engine.POST("/waste_detected", handler.WasteDetectedHandler(manager))
	engine.GET("/should_capture", handler.ShouldCaptureHandler(manager))
	engine.POST("/predict_waste", handler.PredictWasteHandler(manager, cfg.DeviceID, logger))
	engine.GET("/get_waste_type", handler.GetWasteTypeHandler(manager))

	// Dashboard endpoints
	engine.GET("/dashboard_data", handler.DashboardDataHandler(manager))
	engine.GET("/waste_logs", handler.WasteLogsHandler(manager))
	engine.GET("/ws", handler.EventsWebsocketHandler(manager, logger))

	bins := engine.Group("/bins")
	{
		bins.GET("", handler.ListBinsHandler(manager, logger))
		bins.GET("/:type", handler.GetBinHandler(manager, logger))
		bins.PATCH("/:type", handler.UpdateBinHandler(manager, logger))
	}

	// Log endpoints
	logs := engine.Group("/logs")
	{
		logs.GET("/:level", handler.ShowLogsHandler(logger))
		logs.POST("/:level/clear", handler.ClearLogsHandler(logger))
	}

	return engine
}
