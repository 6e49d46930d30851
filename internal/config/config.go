package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"catalog-service/internal/models"
	"github.com/Tesseract-Nexus/go-shared/secrets"
	"github.com/kelseyhightower/envconfig"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis
	RedisURL string

	// Server
	Port        string
	Environment string

	// Messaging; empty disables product events
	NATSURL string

	StaffServiceURL string

	Transfer Transfer
}

// Transfer holds the listing, import and export limits.
type Transfer struct {
	MaxUploadBytes     int64         `envconfig:"IMPORT_MAX_UPLOAD_BYTES" default:"52428800"`
	ExportDefaultLimit int           `envconfig:"EXPORT_DEFAULT_LIMIT" default:"1000"`
	ExportMaxLimit     int           `envconfig:"EXPORT_MAX_LIMIT" default:"10000"`
	ListDefaultLimit   int           `envconfig:"LIST_DEFAULT_LIMIT" default:"20"`
	ListMaxLimit       int           `envconfig:"LIST_MAX_LIMIT" default:"100"`
	AttributeCacheTTL  time.Duration `envconfig:"ATTRIBUTE_CACHE_TTL" default:"5m"`
}

func Load() (*Config, error) {
	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))

	cfg := &Config{
		// Database - password comes from GCP Secret Manager when enabled
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: secrets.GetDBPassword(),
		DBName:     getEnv("DB_NAME", "catalog_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		Port:        getEnv("PORT", "8087"),
		Environment: getEnv("ENVIRONMENT", "development"),

		NATSURL:         os.Getenv("NATS_URL"),
		StaffServiceURL: getEnv("STAFF_SERVICE_URL", "http://staff-service:8080"),
	}

	transfer, err := LoadTransfer()
	if err != nil {
		return nil, err
	}
	cfg.Transfer = *transfer
	return cfg, nil
}

// LoadTransfer reads the transfer limits from the environment.
func LoadTransfer() (*Transfer, error) {
	var t Transfer
	if err := envconfig.Process("", &t); err != nil {
		return nil, fmt.Errorf("failed to load transfer config: %w", err)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (t Transfer) validate() error {
	switch {
	case t.MaxUploadBytes <= 0:
		return errors.New("IMPORT_MAX_UPLOAD_BYTES must be positive")
	case t.ListDefaultLimit <= 0 || t.ListMaxLimit < t.ListDefaultLimit:
		return errors.New("LIST_DEFAULT_LIMIT must be positive and not above LIST_MAX_LIMIT")
	case t.ExportDefaultLimit <= 0 || t.ExportMaxLimit < t.ExportDefaultLimit:
		return errors.New("EXPORT_DEFAULT_LIMIT must be positive and not above EXPORT_MAX_LIMIT")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)

	logLevel := logger.Info
	if cfg.IsProduction() {
		logLevel = logger.Error
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Adds missing tables and columns; never drops anything.
	log.Println("Running auto-migrations...")
	if err := db.AutoMigrate(
		&models.Attribute{},
		&models.Category{},
		&models.CategoryTranslation{},
		&models.Asset{},
		&models.Product{},
		&models.ProductAttributeValue{},
		&models.ProductAsset{},
		&models.ProductCategory{},
	); err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "does not exist") && strings.Contains(errStr, "constraint") {
			log.Printf("Note: Migration constraint warning (safe to ignore): %v", err)
		} else {
			return nil, fmt.Errorf("failed to run auto-migrations: %w", err)
		}
	}
	log.Println("Auto-migrations completed successfully")

	return db, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
