package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/simaogato/beneficio-backend/internal/app"
	"github.com/simaogato/beneficio-backend/internal/config"
	"github.com/simaogato/beneficio-backend/internal/logging"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Logger error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, cleanup, err := app.Bootstrap(ctx, cfg, logger)
	if err != nil {
		if cleanup != nil {
			cleanup()
		}
		logger.Fatal("failed to bootstrap", zap.Error(err))
	}
	defer cleanup()

	logger.Info("beneficio backend starting",
		zap.String("env", cfg.Env),
		zap.String("storage", cfg.Storage),
		zap.String("bus", cfg.BusProvider),
		zap.Bool("grpc", cfg.GRPCEnabled),
	)

	if err := application.Run(ctx); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		return
	}
	logger.Info("server stopped")
}
