package main

import (
	"context"
	"libris/internal/archive"
	"libris/internal/config"
	"libris/internal/database"
	"libris/internal/events"
	"libris/internal/jobs"
	"libris/internal/mailer"
	"libris/internal/report"
	"libris/internal/store"
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

	var archiver archive.Archiver
	if cfg.S3.Bucket != "" {
		archiver, err = archive.NewS3Archiver(cfg.S3)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize S3 archiver")
		}
	} else {
		log.Info().Msg("S3 bucket not configured, report archiving disabled")
	}

	if cfg.Mail.DefaultRecipient != "" {
		// Reports for unresolvable users will be redirected here; this
		// can misdeliver and is an explicit operator choice
		log.Warn().
			Str("recipient", cfg.Mail.DefaultRecipient).
			Msg("Default report recipient configured")
	}

	smtp := mailer.NewSMTPMailer(cfg.Mail)
	renderer := report.NewPDFRenderer()

	ingestion := jobs.NewIngestionJob(kv, db, publisher)
	reporting := jobs.NewReportJob(kv, db, renderer, smtp, archiver, cfg.Mail.DefaultRecipient)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ingestionScheduler := jobs.NewScheduler(ingestion, cfg.Jobs.IngestionInterval)
	reportScheduler := jobs.NewScheduler(reporting, cfg.Jobs.ReportInterval)

	ingestionScheduler.Start(ctx)
	reportScheduler.Start(ctx)

	log.Info().
		Dur("ingestionInterval", cfg.Jobs.IngestionInterval).
		Dur("reportInterval", cfg.Jobs.ReportInterval).
		Msg("Background jobs running")

	// Block until an interrupt or termination signal arrives
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	ingestionScheduler.Stop()
	reportScheduler.Stop()
	cancel()

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer closeCancel()

	if publisher != nil {
		if err := publisher.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing RabbitMQ connection")
		}
	}
	if err := kv.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing Redis connection")
	}
	if err := db.Close(closeCtx); err != nil {
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
