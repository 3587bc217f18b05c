package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	financeapp "github.com/javila-dev/rojoz/internal/application/finance"
	salesapp "github.com/javila-dev/rojoz/internal/application/sales"
	"github.com/javila-dev/rojoz/internal/infrastructure/auth"
	"github.com/javila-dev/rojoz/internal/infrastructure/cache"
	"github.com/javila-dev/rojoz/internal/infrastructure/config"
	"github.com/javila-dev/rojoz/internal/infrastructure/event"
	"github.com/javila-dev/rojoz/internal/infrastructure/logger"
	"github.com/javila-dev/rojoz/internal/infrastructure/persistence"
	"github.com/javila-dev/rojoz/internal/infrastructure/scheduler"
	"github.com/javila-dev/rojoz/internal/infrastructure/storage"
	"github.com/javila-dev/rojoz/internal/infrastructure/telemetry"
	"github.com/javila-dev/rojoz/internal/interfaces/http/handler"
	"github.com/javila-dev/rojoz/internal/interfaces/http/middleware"
	"github.com/javila-dev/rojoz/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

//	@title			Rojoz Settlement API
//	@version		1.0
//	@description	Real-estate settlement core: amortization schedules, receipt ledger, payment allocation and commission liquidation.
//	@termsOfService	http://swagger.io/terms/

//	@contact.name	API Support
//	@contact.url	https://github.com/javila-dev/rojoz
//	@contact.email	support@rojoz.example.com

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication for staff endpoints. Format: "Bearer {token}"

//	@securityDefinitions.apikey	ApiKeyAuth
//	@in							header
//	@name						X-API-Key
//	@description				Platform API token for treasury integration endpoints

//	@externalDocs.description	OpenAPI
//	@externalDocs.url			https://swagger.io/resources/open-api/

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

	log.Info("Starting Rojoz Settlement Core",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Telemetry (traces and metrics are no-ops when disabled)
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	meterProvider, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

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

	// Database query tracing via otelgorm (if enabled)
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:          true,
			LogFullSQL:       cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh:  cfg.Telemetry.DBSlowQueryThresh,
			DBSystem:         "postgresql",
			WithoutVariables: !cfg.Telemetry.DBLogFullSQL,
		}, log)
		if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
			log.Warn("Failed to register database tracing", zap.Error(err))
		}
	}

	// Initialize repositories
	saleRepo := persistence.NewGormSaleRepository(db.DB)
	saleLogRepo := persistence.NewGormSaleLogRepository(db.DB)
	paymentPlanRepo := persistence.NewGormPaymentPlanRepository(db.DB)
	installmentRepo := persistence.NewGormInstallmentRepository(db.DB)
	receiptRepo := persistence.NewGormReceiptRepository(db.DB)
	applicationRepo := persistence.NewGormApplicationRepository(db.DB)
	liquidationRepo := persistence.NewGormLiquidationRepository(db.DB)
	treasuryRepo := persistence.NewGormTreasuryRequestRepository(db.DB)
	txManager := persistence.NewGormTransactionManager(db.DB)

	// Redis-backed sale locks and idempotency store
	cacheFactory := cache.NewSettlementCacheFactory(cfg.Redis, cfg.SaleLock)
	saleLocker, err := cacheFactory.CreateSaleLocker()
	if err != nil {
		log.Fatal("Failed to create sale locker", zap.Error(err))
	}
	idempotencyStore, err := cacheFactory.CreateIdempotencyStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}

	// Evidence storage: S3-compatible object store when configured,
	// in-memory stub otherwise (local development)
	var evidenceStorage financeapp.EvidenceStorage
	if cfg.Storage.Endpoint != "" {
		s3Storage, err := storage.NewS3EvidenceStorage(&cfg.Storage)
		if err != nil {
			log.Fatal("Failed to initialize evidence storage", zap.Error(err))
		}
		if cfg.Storage.AutoCreateBucket {
			bucketCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := s3Storage.EnsureBucket(bucketCtx); err != nil {
				cancel()
				log.Fatal("Failed to ensure evidence bucket", zap.Error(err))
			}
			cancel()
		}
		evidenceStorage = s3Storage
		log.Info("Evidence storage initialized",
			zap.String("endpoint", cfg.Storage.Endpoint),
			zap.String("bucket", cfg.Storage.Bucket),
		)
	} else {
		evidenceStorage = storage.NewStubEvidenceStorage()
		log.Warn("No storage endpoint configured, using in-memory evidence storage")
	}

	// Initialize event bus
	eventBus := event.NewInMemoryEventBus(log)

	// Initialize application services
	saleSyncService := salesapp.NewSaleSyncService(saleRepo, receiptRepo, saleLogRepo, txManager, eventBus)
	scheduleService := salesapp.NewScheduleService(saleRepo, paymentPlanRepo, installmentRepo, saleLogRepo, saleLocker, txManager, eventBus)
	allocationService := financeapp.NewPaymentAllocationService(receiptRepo, applicationRepo, installmentRepo, saleRepo, saleLogRepo, saleLocker, txManager, eventBus)
	liquidationService := financeapp.NewLiquidationService(saleRepo, liquidationRepo, applicationRepo, saleLogRepo, saleLocker, txManager, eventBus)
	receiptService := financeapp.NewReceiptService(receiptRepo, saleRepo, saleLogRepo, evidenceStorage, txManager, eventBus)
	treasuryService := financeapp.NewTreasuryService(treasuryRepo, saleRepo, paymentPlanRepo, saleLogRepo, receiptService, allocationService, txManager, eventBus)

	// Auth services
	jwtService := auth.NewJWTService(cfg.JWT)
	treasuryVerifier := auth.NewTreasuryTokenVerifier(cfg.Treasury)

	// Register event handlers.
	// Residual credit auto-apply: when an allocation leaves standing credit,
	// push it back onto the schedule. The handler is wrapped for idempotency
	// so redelivered events never double-apply.
	if cfg.Settlement.AutoApplyCredit {
		creditHandler := financeapp.NewCreditAutoApplyHandler(allocationService, log)
		eventBus.Subscribe(event.NewIdempotentHandler(creditHandler, idempotencyStore, log))
		log.Info("Credit auto-apply handler registered",
			zap.Strings("event_types", creditHandler.EventTypes()),
		)
	}

	// Start event bus
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Settlement business metrics with periodic portfolio collection
	if cfg.Telemetry.Enabled {
		settlementMetrics, err := telemetry.NewSettlementMetrics(telemetry.SettlementMetricsConfig{
			Meter:             meterProvider.Meter("rojoz/settlement"),
			Logger:            log,
			PortfolioProvider: telemetry.NewGormPortfolioMetricsProvider(db.DB),
		})
		if err != nil {
			log.Warn("Failed to initialize settlement metrics", zap.Error(err))
		} else {
			settlementMetrics.StartPeriodicCollection(context.Background(), 5*time.Minute)
			defer settlementMetrics.Stop()
		}
	}

	// Daily mora assessment scheduler
	moraSchedulerConfig := scheduler.DefaultMoraCronSchedulerConfig()
	if moraSchedulerConfig.Enabled {
		moraExecutor := scheduler.NewMoraExecutor(scheduleService, log)
		schedulerJobRepo := scheduler.NewSchedulerJobRepository(db.DB)
		moraScheduler := scheduler.NewMoraCronScheduler(moraSchedulerConfig, moraExecutor, saleRepo, schedulerJobRepo, log)
		if err := moraScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start mora scheduler", zap.Error(err))
		}
		defer func() {
			if err := moraScheduler.Stop(context.Background()); err != nil {
				log.Error("Error stopping mora scheduler", zap.Error(err))
			}
		}()
		log.Info("Mora scheduler started",
			zap.Int("cron_hour", moraSchedulerConfig.CronHour),
			zap.Int("cron_minute", moraSchedulerConfig.CronMinute),
		)
	}

	// Initialize HTTP handlers
	saleHandler := handler.NewSaleHandler(saleSyncService)
	scheduleHandler := handler.NewScheduleHandler(scheduleService)
	receiptHandler := handler.NewReceiptHandler(receiptService)
	allocationHandler := handler.NewAllocationHandler(allocationService)
	liquidationHandler := handler.NewLiquidationHandler(liquidationService)
	treasuryHandler := handler.NewTreasuryHandler(treasuryService)
	systemHandler := handler.NewSystemHandler()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
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
	// 4. Tracing/Metrics - OpenTelemetry instrumentation (if enabled)
	// 5. Security - Add security headers
	// 6. CORS - Handle cross-origin requests
	// 7. BodyLimit - Limit request body size
	// 8. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))

	if cfg.Telemetry.Enabled {
		engine.Use(middleware.Tracing())
		engine.Use(middleware.HTTPMetrics(middleware.DefaultHTTPMetricsConfig()))
	}

	engine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Rate limiting (if enabled)
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

	// Swagger documentation endpoint, protected per config.
	// The OpenAPI document is regenerated with "swag init -g cmd/server/main.go".
	swaggerProtection := middleware.SwaggerProtection(middleware.SwaggerConfig{
		Enabled:     cfg.Swagger.Enabled,
		RequireAuth: cfg.Swagger.RequireAuth,
		AllowedIPs:  cfg.Swagger.AllowedIPs,
	}, middleware.JWTAuthMiddleware(jwtService))
	engine.GET("/swagger/*any", swaggerProtection, ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Treasury integration endpoints are authenticated by platform API token,
	// not staff JWT. They get their own group outside the JWT-gated router.
	treasuryGroup := engine.Group("/api/v1")
	treasuryGroup.Use(middleware.TreasuryAuthMiddleware(treasuryVerifier, log))
	treasuryHandler.RegisterRoutes(treasuryGroup)

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Apply JWT authentication middleware to staff API routes
	jwtConfig := middleware.JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths: []string{
			"/api/v1/ping",
			"/api/v1/system/ping",
			"/api/v1/system/info",
		},
		SkipPathPrefixes: []string{
			"/api/v1/treasury",
		},
		Logger: log,
	}
	r.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	// Register settlement route groups
	r.Register(saleHandler).
		Register(scheduleHandler).
		Register(receiptHandler).
		Register(allocationHandler).
		Register(liquidationHandler)

	// Register system routes with swagger-documented handlers
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)
	r.Register(systemRoutes)

	// Setup routes
	r.Setup()

	// Also keep a simple ping at root API level for basic health checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
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
