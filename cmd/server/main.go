package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	channelsapp "github.com/menusync/backend/internal/application/channels"
	monitorapp "github.com/menusync/backend/internal/application/monitor"
	syncapp "github.com/menusync/backend/internal/application/sync"
	"github.com/menusync/backend/internal/domain/shared"
	"github.com/menusync/backend/internal/infrastructure/cache"
	channelinfra "github.com/menusync/backend/internal/infrastructure/channel"
	"github.com/menusync/backend/internal/infrastructure/config"
	"github.com/menusync/backend/internal/infrastructure/event"
	"github.com/menusync/backend/internal/infrastructure/logger"
	"github.com/menusync/backend/internal/infrastructure/persistence"
	"github.com/menusync/backend/internal/interfaces/http/handler"
	"github.com/menusync/backend/internal/interfaces/http/middleware"
	"github.com/menusync/backend/internal/interfaces/http/router"
)

//	@title			Menu Sync API
//	@version		1.0
//	@description	Menu synchronization backend for delivery marketplaces

//	@host		localhost:8080
//	@BasePath	/api/v1

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Menu Sync Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories
	assignmentRepo := persistence.NewGormChannelAssignmentRepository(db.DB)
	jobRepo := persistence.NewGormSyncJobRepository(db.DB)
	logRepo := persistence.NewGormSyncLogRepository(db.DB)
	metricRepo := persistence.NewGormChannelMetricRepository(db.DB)
	alertRepo := persistence.NewGormAlertRepository(db.DB)
	catalogSource := persistence.NewGormCatalogSource(db.DB)

	// Webhook idempotency store, Redis-backed with in-memory fallback
	var dedupStore shared.IdempotencyStore
	redisStore, err := cache.NewRedisIdempotencyStore(
		fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		cfg.Redis.Password,
		cfg.Redis.DB,
	)
	if err != nil {
		log.Warn("Redis unavailable, using in-memory webhook dedup", zap.Error(err))
		dedupStore = cache.NewInMemoryIdempotencyStore()
	} else {
		dedupStore = redisStore
	}
	defer func() {
		if err := dedupStore.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	ctx := context.Background()

	// Event bus
	bus := event.NewInMemoryEventBus(event.BusConfig{
		BufferSize:     cfg.Event.BufferSize,
		HandlerTimeout: cfg.Event.HandlerTimeout,
	}, log)
	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Adapter registry with one factory per marketplace
	registry, err := channelinfra.NewAdapterRegistry(channelinfra.RegistryConfig{
		EvictionThreshold: cfg.Registry.EvictionThreshold,
		SweepInterval:     cfg.Registry.SweepInterval,
		InitTimeout:       cfg.Registry.InitTimeout,
	}, channelinfra.DefaultFactories(), log)
	if err != nil {
		log.Fatal("Failed to create adapter registry", zap.Error(err))
	}
	registry.Start(ctx)

	// Sync orchestrator and job engine
	executor := syncapp.NewAdapterExecutor(assignmentRepo, registry, catalogSource, log)
	orchestrator, err := syncapp.NewOrchestrator(syncapp.OrchestratorConfig{
		MaxConcurrentSyncs: cfg.Orchestrator.MaxConcurrentSyncs,
		OperationTimeout:   cfg.Orchestrator.OperationTimeout,
	}, executor, nil, log)
	if err != nil {
		log.Fatal("Failed to create orchestrator", zap.Error(err))
	}

	jobService, err := syncapp.NewJobService(syncapp.ServiceConfig{
		DefaultMaxRetries:      cfg.Orchestrator.DefaultMaxRetries,
		RetryBaseDelay:         cfg.Orchestrator.RetryBaseDelay,
		ScheduledPollInterval:  cfg.Orchestrator.ScheduledPollInterval,
		RetentionPeriod:        cfg.Orchestrator.RetentionPeriod,
		RetentionSweepInterval: cfg.Orchestrator.RetentionSweepInterval,
	}, jobRepo, logRepo, assignmentRepo, registry, orchestrator, bus, log)
	if err != nil {
		log.Fatal("Failed to create job service", zap.Error(err))
	}
	orchestrator.SetStore(jobService)

	if err := orchestrator.Start(ctx); err != nil {
		log.Fatal("Failed to start orchestrator", zap.Error(err))
	}
	if err := jobService.Start(ctx); err != nil {
		log.Fatal("Failed to start job service", zap.Error(err))
	}

	// Channel monitor
	monitor, err := monitorapp.New(monitorapp.Config{
		ProbeInterval:          cfg.Monitor.ProbeInterval,
		ProbeTimeout:           cfg.Monitor.ProbeTimeout,
		RingCapacity:           cfg.Monitor.RingCapacity,
		AlertWindow:            cfg.Monitor.AlertWindow,
		MetricRetention:        cfg.Monitor.MetricRetention,
		RetentionSweepInterval: cfg.Monitor.RetentionSweepInterval,
	}, registry, metricRepo, alertRepo, jobRepo, bus, log)
	if err != nil {
		log.Fatal("Failed to create channel monitor", zap.Error(err))
	}
	if cfg.Monitor.Enabled {
		if err := monitor.Start(ctx); err != nil {
			log.Fatal("Failed to start channel monitor", zap.Error(err))
		}
		log.Info("Channel monitor started",
			zap.Duration("probe_interval", cfg.Monitor.ProbeInterval),
		)
	}

	// Terminal job events feed outcome and duration metrics
	recorder := monitorapp.NewSyncMetricsRecorder(monitor, jobRepo, log)
	bus.Subscribe(recorder)

	// Application services
	assignmentService := channelsapp.NewAssignmentService(assignmentRepo, registry, log)
	alertService := monitorapp.NewAlertService(alertRepo, log)

	// HTTP handlers
	systemHandler := handler.NewSystemHandler()
	syncHandler := handler.NewSyncHandler(jobService)
	assignmentHandler := handler.NewAssignmentHandler(assignmentService)
	monitorHandler := handler.NewMonitorHandler(monitor, alertService)
	webhookHandler := handler.NewWebhookHandler(assignmentRepo, registry, dedupStore, cfg.Webhook, log)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Security - Add security headers
	// 5. CORS - Handle cross-origin requests
	// 6. BodyLimit - Limit request body size
	// 7. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	// Marketplace webhook ingress. Addressed by URL, so it stays outside
	// the tenant middleware and API versioning.
	engine.POST("/webhooks/:tenant_id/:channel", webhookHandler.Receive)

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Tenant context is mandatory for all API routes except system ones
	tenantConfig := middleware.DefaultTenantConfig()
	tenantConfig.Logger = log
	r.Use(middleware.TenantMiddlewareWithConfig(tenantConfig))

	// Sync jobs domain
	syncRoutes := router.NewDomainGroup("sync", "/sync")
	syncRoutes.POST("/jobs", syncHandler.Submit)
	syncRoutes.GET("/jobs", syncHandler.List)
	syncRoutes.GET("/jobs/:id", syncHandler.GetByID)
	syncRoutes.GET("/jobs/:id/logs", syncHandler.GetLogs)
	syncRoutes.POST("/jobs/:id/cancel", syncHandler.Cancel)
	syncRoutes.GET("/queue", syncHandler.GetQueueStatus)
	syncRoutes.GET("/health", syncHandler.GetAdapterHealth)
	r.Register(syncRoutes)

	// Channel assignments domain
	channelRoutes := router.NewDomainGroup("channels", "/channels")
	channelRoutes.POST("/assignments", assignmentHandler.Create)
	channelRoutes.GET("/assignments", assignmentHandler.List)
	channelRoutes.GET("/assignments/:id", assignmentHandler.GetByID)
	channelRoutes.PUT("/assignments/:id", assignmentHandler.Update)
	channelRoutes.DELETE("/assignments/:id", assignmentHandler.Delete)
	channelRoutes.POST("/assignments/:id/test", assignmentHandler.TestConnection)
	r.Register(channelRoutes)

	// Channel health monitoring domain
	monitorRoutes := router.NewDomainGroup("monitor", "/monitor")
	monitorRoutes.GET("/channels/:channel/summary", monitorHandler.GetSummary)
	monitorRoutes.GET("/channels/:channel/metrics", monitorHandler.GetMetrics)
	monitorRoutes.POST("/alerts", monitorHandler.CreateAlert)
	monitorRoutes.GET("/alerts", monitorHandler.ListAlerts)
	monitorRoutes.GET("/alerts/:id", monitorHandler.GetAlert)
	monitorRoutes.PUT("/alerts/:id", monitorHandler.UpdateAlert)
	monitorRoutes.DELETE("/alerts/:id", monitorHandler.DeleteAlert)
	r.Register(monitorRoutes)

	// System routes
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)
	r.Register(systemRoutes)

	// Setup routes
	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	// Stop background components in dependency order: no new HTTP work,
	// then monitor, job loops, in-flight syncs, events, adapters
	if cfg.Monitor.Enabled {
		if err := monitor.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping channel monitor", zap.Error(err))
		}
	}
	if err := jobService.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping job service", zap.Error(err))
	}
	if err := orchestrator.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping orchestrator", zap.Error(err))
	}
	if err := bus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	if err := registry.Close(); err != nil {
		log.Error("Error closing adapter registry", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
