package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/sea-ice-obs/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/sea-ice-obs/internal/adapter/kafka"
	"github.com/couchcryptid/sea-ice-obs/internal/adapter/sqlite"
	"github.com/couchcryptid/sea-ice-obs/internal/config"
	"github.com/couchcryptid/sea-ice-obs/internal/importer"
	"github.com/couchcryptid/sea-ice-obs/internal/observability"
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Overload()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := sqlite.Open(ctx, cfg.DBPath, logger)
	if err != nil {
		logger.Error("failed to open record store", "error", err, "path", cfg.DBPath)
		os.Exit(1)
	}

	// Announcements are optional (KAFKA_ENABLED).
	var publisher *kafkaadapter.Publisher
	var announcer importer.Publisher
	if cfg.KafkaEnabled {
		publisher = kafkaadapter.NewPublisher(cfg, logger)
		announcer = publisher
		logger.Info("kafka announcements enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaSinkTopic)
	} else {
		logger.Info("kafka announcements disabled")
	}

	svc := importer.New(st, announcer, logger, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, st, cfg.MaxUploadBytes, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if err := st.Close(); err != nil {
		logger.Error("record store close error", "error", err)
	}

	logger.Info("shutdown complete")
}
