package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the entire application configuration
type Config struct {
	Env     string
	Port    int
	AppName string

	MongoDB  MongoDBConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
	Mail     MailConfig
	S3       S3Config
	Auth     AuthConfig
	Jobs     JobsConfig
	Logging  LoggingConfig
}

// MongoDBConfig contains MongoDB connection details
type MongoDBConfig struct {
	URI string
	DB  string
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

// RabbitMQConfig contains the event publisher settings. Publishing is
// disabled when Host is empty.
type RabbitMQConfig struct {
	Host         string
	Port         int
	Username     string
	Password     string
	VHost        string
	ExchangeName string
}

// MailConfig contains SMTP transport settings. DefaultRecipient is the
// fallback address for reports whose user cannot be resolved; it risks
// misdelivery and must be opted into explicitly.
type MailConfig struct {
	Host             string
	Port             int
	Username         string
	Password         string
	From             string
	DefaultRecipient string
}

// S3Config contains report archive settings. Archiving is disabled when
// Bucket is empty.
type S3Config struct {
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Prefix    string
}

type AuthConfig struct {
	JWTSecret string
}

// JobsConfig contains the polling cadence of the background jobs
type JobsConfig struct {
	IngestionInterval time.Duration
	ReportInterval    time.Duration
}

// LoggingConfig contains logging-related configurations
type LoggingConfig struct {
	Level string
}

// Load reads configuration from the environment, honoring a .env file
// when one is present. Missing MongoDB or Redis endpoints are fatal for
// the owning process, so both are required here.
func Load() (*Config, error) {
	// Best effort; real deployments set the environment directly
	_ = godotenv.Load()

	cfg := &Config{
		Env:     envOr("APP_ENV", "development"),
		Port:    envInt("PORT", 8080),
		AppName: envOr("APP_NAME", "libris"),
		MongoDB: MongoDBConfig{
			URI: os.Getenv("MONGO_URI"),
			DB:  envOr("MONGO_DB", "libris"),
		},
		Redis: RedisConfig{
			Address:  os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       envInt("REDIS_DB", 0),
		},
		RabbitMQ: RabbitMQConfig{
			Host:         os.Getenv("RABBITMQ_HOST"),
			Port:         envInt("RABBITMQ_PORT", 5672),
			Username:     envOr("RABBITMQ_USER", "guest"),
			Password:     envOr("RABBITMQ_PASSWORD", "guest"),
			VHost:        envOr("RABBITMQ_VHOST", "/"),
			ExchangeName: envOr("RABBITMQ_EXCHANGE", "catalog.events"),
		},
		Mail: MailConfig{
			Host:             envOr("SMTP_HOST", "localhost"),
			Port:             envInt("SMTP_PORT", 587),
			Username:         os.Getenv("SMTP_USER"),
			Password:         os.Getenv("SMTP_PASSWORD"),
			From:             envOr("SMTP_FROM", "reports@libris.local"),
			DefaultRecipient: os.Getenv("REPORT_DEFAULT_RECIPIENT"),
		},
		S3: S3Config{
			AccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			Bucket:    os.Getenv("REPORT_ARCHIVE_BUCKET"),
			Region:    envOr("AWS_REGION", "us-east-1"),
			Prefix:    envOr("REPORT_ARCHIVE_PREFIX", "reports"),
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("JWT_SECRET"),
		},
		Jobs: JobsConfig{
			IngestionInterval: envDuration("INGESTION_INTERVAL", 2*time.Minute),
			ReportInterval:    envDuration("REPORT_INTERVAL", 5*time.Minute),
		},
		Logging: LoggingConfig{
			Level: envOr("LOG_LEVEL", "info"),
		},
	}

	if cfg.MongoDB.URI == "" {
		return nil, fmt.Errorf("MONGO_URI is required")
	}
	if cfg.Redis.Address == "" {
		return nil, fmt.Errorf("REDIS_ADDR is required")
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
