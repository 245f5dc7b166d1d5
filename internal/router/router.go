package router

import (
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"progman-api/internal/handler"
	"progman-api/internal/metrics"
	"progman-api/internal/middleware"
	"progman-api/internal/realtime"
	"progman-api/internal/service"
)

// Services groups the business services the HTTP layer dispatches to.
type Services struct {
	Projects   service.ProjectService
	Schedules  service.ScheduleService
	Comments   service.CommentService
	Milestones service.MilestoneService
	Imports    service.ImportService
}

// Config holds everything Setup needs to build the engine.
type Config struct {
	DB             *gorm.DB
	Redis          *redis.Client
	Logger         *zap.Logger
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	Hub            *realtime.Hub
	Services       Services
	BasePath       string
	Mode           string
	AllowedOrigins []string
	MaxUploadSize  int64
}

func Setup(cfg Config) *gin.Engine {
	if cfg.Mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	projectHandler := handler.NewProjectHandler(cfg.Services.Projects, cfg.Logger)
	scheduleHandler := handler.NewScheduleHandler(cfg.Services.Schedules, cfg.Services.Milestones, cfg.Logger)
	commentHandler := handler.NewCommentHandler(cfg.Services.Comments, cfg.Logger)
	importHandler := handler.NewImportHandler(cfg.Services.Imports, cfg.MaxUploadSize, cfg.Logger)
	healthHandler := handler.NewHealthHandler(cfg.DB, cfg.Redis)
	wsHandler := handler.NewWSHandler(cfg.Hub, cfg.Services.Schedules, cfg.Services.Comments, cfg.AllowedOrigins, cfg.Logger)

	metricsHandler := gin.WrapH(promhttp.Handler())
	if cfg.Gatherer != nil {
		metricsHandler = gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	// Health and metrics at the root for kubelet health checks and scrapers
	r.GET("/health", healthHandler.Health)
	r.GET("/ready", healthHandler.Ready)
	r.GET("/metrics", metricsHandler)

	api := r.Group(cfg.BasePath)
	{
		api.GET("/health", healthHandler.Health)
		api.GET("/ready", healthHandler.Ready)
		api.GET("/metrics", metricsHandler)
		api.GET("/version", handler.Version)
		api.GET("/ws", wsHandler.HandleWebSocket)

		projects := api.Group("/projects")
		{
			projects.GET("", projectHandler.ListProjects)
			projects.POST("", projectHandler.CreateProject)
			projects.GET("/:id", projectHandler.GetProject)
			projects.PUT("/:id", projectHandler.UpdateProject)
			projects.DELETE("/:id", projectHandler.DeleteProject)
		}

		schedules := api.Group("/schedules")
		{
			schedules.GET("/:id", scheduleHandler.ListSchedules)
			schedules.PUT("/:id", scheduleHandler.UpdateSchedule)
			schedules.POST("/:id/shift", scheduleHandler.ShiftDates)
			schedules.GET("/:id/milestone-estimates", scheduleHandler.ListMilestoneEstimates)
			schedules.PUT("/:id/milestone-estimates/:scheduleId", scheduleHandler.UpsertMilestoneEstimate)
		}

		comments := api.Group("/comments")
		{
			// Static route must come before the dynamic ones
			comments.GET("/sections", commentHandler.Sections)
			comments.POST("", commentHandler.UpsertComment)
			comments.GET("/:projectId", commentHandler.GetComments)
			comments.GET("/:projectId/pages", commentHandler.ListPages)
			comments.POST("/:projectId/pages", commentHandler.CreatePage)
			comments.DELETE("/:projectId/pages/:date", commentHandler.DeletePage)
			comments.GET("/:projectId/progress", commentHandler.ListProgress)
			comments.PUT("/:projectId/progress", commentHandler.UpsertProgress)
		}

		upload := api.Group("/upload")
		{
			upload.POST("/excel", importHandler.UploadExcel)
			upload.GET("/history/:projectId", importHandler.History)
		}
	}

	return r
}
