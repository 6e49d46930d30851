package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"catalog-service/internal/catalog"
	"catalog-service/internal/config"
	"catalog-service/internal/events"
	"catalog-service/internal/filters"
	"catalog-service/internal/handlers"
	"catalog-service/internal/middleware"
	"catalog-service/internal/repository"
	"catalog-service/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	gosharedmw "github.com/Tesseract-Nexus/go-shared/middleware"
	"github.com/Tesseract-Nexus/go-shared/rbac"
	"github.com/Tesseract-Nexus/go-shared/secrets"
	"github.com/Tesseract-Nexus/go-shared/tracing"
)

// @title Catalog API
// @version 1.0.0
// @description Multi-tenant product catalog with attribute filtering and JSON, XML and CSV import/export

// @host localhost:8087
// @BasePath /api/v1

// @securityDefinitions.bearer BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration:", err)
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.IsProduction() {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Printf("WARNING: Failed to parse Redis URL: %v (continuing without Redis)", err)
		redisOpts = &redis.Options{Addr: "localhost:6379"}
	}
	redisOpts.Password = secrets.GetRedisPassword()
	redisClient := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("WARNING: Failed to connect to Redis: %v (caching will be disabled)", err)
		redisClient = nil
	} else {
		log.Println("✓ Redis connected successfully")
	}
	cancel()

	productsRepo := repository.NewProductsRepository(db, redisClient)
	attributes := catalog.New(productsRepo, redisClient, cfg.Transfer.AttributeCacheTTL, logger)
	filterBuilder := filters.NewBuilder(attributes, logger)

	// Product events are optional; a nil interface disables them.
	var productEvents services.ProductEvents
	if cfg.NATSURL != "" {
		publisher, err := events.NewPublisher(cfg.NATSURL, logger)
		if err != nil {
			log.Printf("WARNING: Failed to initialize events publisher: %v (continuing without event publishing)", err)
		} else {
			log.Println("✓ Events publisher initialized (NATS connected)")
			productEvents = publisher
			defer publisher.Close()
		}
	} else {
		log.Println("NATS_URL not set, skipping event publishing initialization")
	}

	queryService := services.NewProductQueryService(productsRepo, filterBuilder,
		services.Limits{Default: cfg.Transfer.ListDefaultLimit, Max: cfg.Transfer.ListMaxLimit},
		services.Limits{Default: cfg.Transfer.ExportDefaultLimit, Max: cfg.Transfer.ExportMaxLimit},
		logger)
	exportService := services.NewExportService(queryService, logger)
	importService := services.NewImportService(productsRepo, attributes, productEvents, logger)

	productsHandler := handlers.NewProductsHandler(queryService, exportService, logger)
	importHandler := handlers.NewImportHandler(importService, cfg.Transfer.MaxUploadBytes, logger)

	var tracerProvider *tracing.TracerProvider
	if cfg.IsProduction() {
		tracerProvider, err = tracing.InitTracer(tracing.ProductionConfig("catalog-service"))
	} else {
		tracerProvider, err = tracing.InitTracer(tracing.DefaultConfig("catalog-service"))
	}
	if err != nil {
		log.Printf("WARNING: Failed to initialize tracing: %v (continuing without tracing)", err)
	} else {
		log.Println("✓ OpenTelemetry tracing initialized")
	}

	metrics := gosharedmw.InitGlobalMetrics("tesseract", "catalog_service")
	rbacMw := rbac.NewMiddlewareWithURL(cfg.StaffServiceURL, nil)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(metrics.Middleware())
	router.Use(tracing.GinMiddleware("catalog-service"))
	router.Use(gosharedmw.CompressionMiddleware())
	router.Use(middleware.CORS())

	router.GET("/health", handlers.HealthCheck)
	router.GET("/ready", handlers.ReadinessCheck(db))
	router.GET("/metrics", gosharedmw.Handler())
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := router.Group("/api/v1")
	if cfg.Environment == "development" {
		api.Use(middleware.DevelopmentAuthMiddleware())
	} else {
		api.Use(gosharedmw.IstioAuth(gosharedmw.IstioAuthConfig{
			RequireAuth:        true,
			AllowLegacyHeaders: true,
			Logger:             logrus.NewEntry(logger).WithField("component", "istio_auth"),
		}))
	}
	api.Use(middleware.TenantMiddleware())

	products := api.Group("/products")
	{
		products.GET("", rbacMw.RequirePermission(rbac.PermissionProductsRead), productsHandler.GetProducts)
		products.GET("/export", rbacMw.RequirePermission(rbac.PermissionProductsExport), productsHandler.ExportProducts)
		products.GET("/import/template", rbacMw.RequirePermission(rbac.PermissionProductsImport), importHandler.GetImportTemplate)
		products.POST("/import", rbacMw.RequirePermission(rbac.PermissionProductsImport), importHandler.ImportProducts)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Catalog service starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down catalog-service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during server shutdown: %v", err)
	}

	if tracerProvider != nil {
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down tracer provider: %v", err)
		} else {
			log.Println("✓ Tracer provider shut down")
		}
	}

	log.Println("Catalog service stopped")
}
