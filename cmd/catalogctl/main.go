package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"catalog-service/internal/catalog"
	"catalog-service/internal/cli"
	"catalog-service/internal/config"
	"catalog-service/internal/events"
	"catalog-service/internal/filters"
	"catalog-service/internal/repository"
	"catalog-service/internal/services"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/Tesseract-Nexus/go-shared/secrets"
)

func main() {
	_ = godotenv.Load()

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetLevel(logrus.WarnLevel)
	if os.Getenv("CATALOGCTL_DEBUG") != "" {
		logger.SetLevel(logrus.DebugLevel)
	}

	root := cli.NewRootCommand(func(ctx context.Context) (*cli.Pipeline, func(), error) {
		return buildPipeline(ctx, logger)
	})
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func buildPipeline(ctx context.Context, logger *logrus.Logger) (*cli.Pipeline, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	db, err := config.InitDB(cfg)
	if err != nil {
		return nil, nil, err
	}

	var closers []func()

	// Caches are shared with the service so imports invalidate its lists.
	var redisClient *redis.Client
	if opts, err := redis.ParseURL(cfg.RedisURL); err == nil {
		opts.Password = secrets.GetRedisPassword()
		redisClient = redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			logger.WithError(err).Warn("Redis unavailable, caching disabled")
			redisClient.Close()
			redisClient = nil
		} else {
			client := redisClient
			closers = append(closers, func() { client.Close() })
		}
		cancel()
	}

	repo := repository.NewProductsRepository(db, redisClient)
	attributes := catalog.New(repo, redisClient, cfg.Transfer.AttributeCacheTTL, logger)

	var productEvents services.ProductEvents
	if cfg.NATSURL != "" {
		publisher, err := events.NewPublisher(cfg.NATSURL, logger)
		if err != nil {
			logger.WithError(err).Warn("Events publisher unavailable, continuing without events")
		} else {
			productEvents = publisher
			closers = append(closers, publisher.Close)
		}
	}

	query := services.NewProductQueryService(repo, filters.NewBuilder(attributes, logger),
		services.Limits{Default: cfg.Transfer.ListDefaultLimit, Max: cfg.Transfer.ListMaxLimit},
		services.Limits{Default: cfg.Transfer.ExportDefaultLimit, Max: cfg.Transfer.ExportMaxLimit},
		logger)

	if sqlDB, err := db.DB(); err == nil {
		closers = append(closers, func() { sqlDB.Close() })
	}
	release := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	return &cli.Pipeline{
		Import: services.NewImportService(repo, attributes, productEvents, logger),
		Export: services.NewExportService(query, logger),
	}, release, nil
}
