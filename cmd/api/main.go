// @title           Progress Manager API
// @version         1.0
// @description     Project schedules, dated status-report pages and real-time sync

// @host      localhost:8000
// @BasePath  /api

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"progman-api/internal/client"
	"progman-api/internal/config"
	"progman-api/internal/database"
	"progman-api/internal/event"
	"progman-api/internal/job"
	"progman-api/internal/metrics"
	"progman-api/internal/realtime"
	"progman-api/internal/repository"
	"progman-api/internal/router"
	"progman-api/internal/service"
	"progman-api/internal/version"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := initLogger(cfg.Logger.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	info := version.Get()
	logger.Info("Starting Progress Manager",
		zap.String("version", info.Version),
		zap.String("commit", info.Commit),
		zap.String("port", cfg.Server.Port),
		zap.String("mode", cfg.Server.Mode),
		zap.String("base_path", cfg.Server.BasePath),
		zap.String("db_driver", cfg.Database.Driver),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize metrics
	m := metrics.New(logger)

	// Initialize database
	db, err := database.New(database.Config{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.GetDSN(),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)
	logger.Info("Database connected successfully")

	if err := database.AutoMigrate(db, logger); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}
	if err := database.RegisterMetricsCallbacks(db, m); err != nil {
		logger.Warn("Failed to register database metrics callbacks", zap.Error(err))
	}
	statsDone := database.StartDBStatsCollector(db, m, 15*time.Second)
	defer close(statsDone)

	// Redis is optional; without it fan-out stays inside this instance
	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = database.InitRedis(ctx, cfg.Redis, logger)
		if err != nil {
			logger.Warn("Failed to connect to Redis, real-time fan-out limited to this instance", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	hub := realtime.NewHub(logger, realtime.WithRecorder(m))
	broadcaster, closeBroadcaster := buildBroadcaster(ctx, cfg, hub, redisClient, m, logger)
	defer closeBroadcaster()

	archiver := buildArchiver(ctx, cfg, logger)

	// Repositories
	projectRepo := repository.NewProjectRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	milestoneRepo := repository.NewMilestoneRepository(db)
	importRepo := repository.NewImportRepository(db)
	tx := repository.NewTransactor(db)

	// Services
	scheduleService := service.NewScheduleService(scheduleRepo, projectRepo, milestoneRepo, tx, broadcaster,
		cfg.Schedule.HiddenCategories, m, logger)
	projectService := service.NewProjectService(service.ProjectRepositories{
		Projects:   projectRepo,
		Schedules:  scheduleRepo,
		Comments:   commentRepo,
		Progress:   progressRepo,
		Milestones: milestoneRepo,
		Imports:    importRepo,
	}, tx, scheduleService, cfg.Schedule.Template, m, logger)
	commentService := service.NewCommentService(commentRepo, progressRepo, projectRepo, tx, broadcaster,
		cfg.Comments, nil, m, logger)
	milestoneService := service.NewMilestoneService(milestoneRepo, scheduleRepo, broadcaster,
		cfg.Schedule.MilestoneCategory, logger)
	importService := service.NewImportService(scheduleService, projectRepo, importRepo, archiver, nil, m, logger)

	// Background jobs
	scheduler := job.NewScheduler(logger)
	if err := scheduler.Add(cfg.Jobs.PageBackfillSpec, job.NewPageBackfillJob(commentRepo, m, logger)); err != nil {
		logger.Fatal("Invalid page backfill schedule", zap.String("spec", cfg.Jobs.PageBackfillSpec), zap.Error(err))
	}
	scheduler.Start()

	collector := metrics.NewBusinessMetricsCollector(metrics.Counts{
		Projects:     projectRepo.Count,
		Schedules:    scheduleRepo.Count,
		CommentPages: commentRepo.CountPages,
	}, m, logger, cfg.Jobs.MetricsInterval)
	collector.Start()

	// Setup router with all dependencies
	r := router.Setup(router.Config{
		DB:       db,
		Redis:    redisClient,
		Logger:   logger,
		Metrics:  m,
		Gatherer: prometheus.DefaultGatherer,
		Hub:      hub,
		Services: router.Services{
			Projects:   projectService,
			Schedules:  scheduleService,
			Comments:   commentService,
			Milestones: milestoneService,
			Imports:    importService,
		},
		BasePath:       cfg.Server.BasePath,
		Mode:           cfg.Server.Mode,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		MaxUploadSize:  cfg.Upload.MaxSize,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Progress Manager started successfully", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		logger.Error("Server failed", zap.Error(err))
	}
	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	scheduler.Stop(shutdownCtx)
	collector.Stop()

	logger.Info("Server exited gracefully")
}

// buildBroadcaster wires the real-time fan-out: redis across instances when
// available, the local hub otherwise, mirrored to RabbitMQ when configured.
func buildBroadcaster(
	ctx context.Context,
	cfg *config.Config,
	hub *realtime.Hub,
	redisClient *redis.Client,
	m *metrics.Metrics,
	logger *zap.Logger,
) (service.Broadcaster, func()) {
	var pub realtime.Publisher = realtime.NewLocalPublisher(hub)
	if redisClient != nil {
		bridge := realtime.NewRedisBridge(redisClient, cfg.Redis.Channel, hub, logger)
		go func() {
			if err := bridge.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Redis bridge stopped", zap.Error(err))
			}
		}()
		pub = bridge
		logger.Info("Real-time fan-out via Redis", zap.String("channel", cfg.Redis.Channel))
	}

	fanout := realtime.NewFanout(pub, logger, m)
	if cfg.RabbitMQ.URL == "" {
		return fanout, func() {}
	}

	producer, err := event.NewProducer(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
	if err != nil {
		logger.Warn("Failed to connect to RabbitMQ, events are not mirrored", zap.Error(err))
		return fanout, func() {}
	}
	logger.Info("Mirroring real-time events to RabbitMQ", zap.String("exchange", cfg.RabbitMQ.Exchange))
	return event.NewMirror(fanout, producer, m, logger), func() {
		if err := producer.Close(); err != nil {
			logger.Warn("Failed to close RabbitMQ producer", zap.Error(err))
		}
	}
}

// buildArchiver keeps uploaded workbooks in S3 when configured, in the upload directory otherwise
func buildArchiver(ctx context.Context, cfg *config.Config, logger *zap.Logger) service.Archiver {
	if cfg.S3.Enabled() {
		archive, err := client.NewS3Archive(ctx, &cfg.S3)
		if err == nil {
			logger.Info("S3 archive initialized",
				zap.String("bucket", cfg.S3.Bucket),
				zap.String("region", cfg.S3.Region),
			)
			return archive
		}
		logger.Warn("Failed to initialize S3 archive, falling back to local directory", zap.Error(err))
	}

	if cfg.Upload.Dir == "" {
		logger.Warn("No upload archive configured, workbooks are not kept")
		return nil
	}
	archive, err := client.NewLocalArchive(cfg.Upload.Dir)
	if err != nil {
		logger.Warn("Failed to initialize local archive, workbooks are not kept", zap.Error(err))
		return nil
	}
	return archive
}

// initLogger initializes the zap logger with the specified level
func initLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      zapLevel == zapcore.DebugLevel,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return zapConfig.Build()
}
