package main

import (
	"context"
	"errors"
	"libris/internal/config"
	"libris/internal/database"
	"libris/internal/events"
	"libris/internal/server"
	"libris/internal/store"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(cfg.Logging)

	db, err := database.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	if err := db.Health(); err != nil {
		log.Fatal().Err(err).Msg("MongoDB is unreachable")
	}
	log.Info().Msg("MongoDB connection established")

	kv, err := store.NewRedisStore(cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Redis store connection")
	}

	var publisher events.Publisher
	if cfg.RabbitMQ.Host != "" {
		publisher, err = events.NewPublisher(cfg.RabbitMQ)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to RabbitMQ")
		}
	} else {
		log.Info().Msg("RabbitMQ not configured, event publishing disabled")
	}

	srv := server.New(*cfg, db, kv, publisher)

	go func() {
		log.Info().Int("port", cfg.Port).Msg("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// Block until an interrupt or termination signal arrives
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	if publisher != nil {
		if err := publisher.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing RabbitMQ connection")
		}
	}
	if err := kv.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing Redis connection")
	}
	if err := db.Close(ctx); err != nil {
		log.Error().Err(err).Msg("Error closing MongoDB connection")
	}

	log.Info().Msg("Shutdown complete")
}

func setupLogger(config config.LoggingConfig) {
	level, err := zerolog.ParseLevel(config.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	log.Logger = log.With().Timestamp().Logger()
}
