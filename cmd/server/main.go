package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bikerental/internal/config"
	"bikerental/internal/handlers/admin"
	handlers "bikerental/internal/handlers/shared"
	"bikerental/internal/middleware"
	"bikerental/internal/repositories/mongodb"
	"bikerental/internal/services"
	"bikerental/internal/utils"
	"bikerental/pkg/cache"
	"bikerental/pkg/database"
	"bikerental/pkg/logger"
	"bikerental/pkg/metrics"
	"bikerental/pkg/payment"
	"bikerental/routes"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.NewLogger(cfg.LoggerOptions())
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage
	db, err := database.NewMongoDB(ctx, &database.DatabaseConfig{
		URI:            cfg.Database.URI,
		Database:       cfg.Database.Database,
		AppName:        cfg.App.Name,
		MaxPoolSize:    cfg.Database.MaxPoolSize,
		MinPoolSize:    cfg.Database.MinPoolSize,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		SocketTimeout:  cfg.Database.SocketTimeout,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer db.Close(context.Background())

	if err := database.NewMigrator(db.Database, appLogger).Up(ctx); err != nil {
		appLogger.WithError(err).Fatal("Failed to run migrations")
	}

	clock := utils.SystemClock{}

	// Redis backs both the catalog cache and the distributed locks. Without it
	// the service runs as a single replica with in-process locks.
	var (
		repoCache mongodb.CacheService
		locks     services.LockService
	)
	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedisCache(ctx, &cache.RedisConfig{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to connect to Redis")
		}
		defer redisCache.Close()
		repoCache = redisCache
		locks = redisCache
	} else {
		appLogger.Warn("Redis disabled, using in-process locks")
		locks = services.NewLocalLockService(clock)
	}

	var appMetrics *metrics.Metrics
	if cfg.Metrics.Enabled {
		appMetrics, err = metrics.New(cfg.Metrics.Namespace, prometheus.DefaultRegisterer)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to register metrics")
		}
	}

	gateway := payment.NewRazorpayGateway(cfg.Payment.Razorpay.KeyID, cfg.Payment.Razorpay.KeySecret)

	// Repositories
	bikeRepo := mongodb.NewBikeRepository(db.Database, repoCache, cfg.Redis.CacheTTL)
	bookingRepo := mongodb.NewBookingRepository(db.Database)
	paymentRepo := mongodb.NewPaymentRepository(db.Database)

	// Services
	holdService := services.NewHoldService(bikeRepo, clock, appLogger, appMetrics)
	pricingService := services.NewPricingService(bikeRepo, cfg.Booking)
	inventoryService := services.NewInventoryService(bikeRepo, clock, cfg.Booking.Location(), appLogger)
	paymentService := services.NewPaymentService(paymentRepo)
	bookingService := services.NewBookingService(
		bookingRepo,
		paymentRepo,
		holdService,
		pricingService,
		gateway,
		locks,
		cfg.Booking,
		clock,
		appLogger,
		appMetrics,
	)
	schedulerService := services.NewSchedulerService(
		bookingRepo,
		paymentRepo,
		holdService,
		pricingService,
		locks,
		cfg.Booking,
		clock,
		appLogger,
		appMetrics,
	)

	schedulerDone := make(chan struct{})
	if cfg.Booking.SchedulerEnabled {
		go func() {
			defer close(schedulerDone)
			schedulerService.Start(ctx)
		}()
	} else {
		close(schedulerDone)
	}

	// Initialize handlers
	bookingHandler := handlers.NewBookingHandler(bookingService)
	bikeHandler := handlers.NewBikeHandler(inventoryService)
	adminInventoryHandler := admin.NewInventoryHandler(inventoryService)
	adminBookingHandler := admin.NewBookingHandler(bookingService, schedulerService, cfg.Booking.Location())
	adminPaymentHandler := admin.NewPaymentHandler(paymentService)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize Gin router
	router := gin.New()
	if err := router.SetTrustedProxies(cfg.Security.TrustedProxies); err != nil {
		appLogger.WithError(err).Fatal("Invalid trusted proxies")
	}

	// Global middleware
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.RecoveryMiddleware(appLogger))
	router.Use(middleware.LoggingMiddleware(appLogger))
	router.Use(middleware.MetricsMiddleware(appMetrics))
	router.Use(middleware.CORSMiddleware(cfg.Security.CORSAllowedOrigins))

	// API routes
	v1 := router.Group("/api/v1")
	{
		routes.SetupBikeRoutes(v1, bikeHandler)
		routes.SetupBookingRoutes(v1, bookingHandler, cfg.Security.JWTSecret)
		routes.SetupAdminRoutes(v1, adminInventoryHandler, adminBookingHandler, adminPaymentHandler, cfg.Security.JWTSecret)
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		health := gin.H{
			"status":  "healthy",
			"version": cfg.App.Version,
		}
		if err := db.Ping(c.Request.Context()); err != nil {
			status = http.StatusServiceUnavailable
			health["status"] = "unhealthy"
			health["database"] = err.Error()
		}
		c.JSON(status, health)
	})

	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		appLogger.Infof("Starting server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.WithError(err).Fatal("Server failed")
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Graceful shutdown failed")
	}

	select {
	case <-schedulerDone:
	case <-shutdownCtx.Done():
		appLogger.Warn("Scheduler did not stop before shutdown timeout")
	}
}
