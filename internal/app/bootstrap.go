package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	grpcadapter "github.com/simaogato/beneficio-backend/internal/adapter/grpc"
	httpadapter "github.com/simaogato/beneficio-backend/internal/adapter/http"
	"github.com/simaogato/beneficio-backend/internal/adapter/messaging"
	"github.com/simaogato/beneficio-backend/internal/adapter/messaging/kafka"
	"github.com/simaogato/beneficio-backend/internal/adapter/messaging/nats"
	"github.com/simaogato/beneficio-backend/internal/adapter/repository/memory"
	"github.com/simaogato/beneficio-backend/internal/adapter/repository/postgres"
	"github.com/simaogato/beneficio-backend/internal/adapter/repository/redis"
	"github.com/simaogato/beneficio-backend/internal/config"
	"github.com/simaogato/beneficio-backend/internal/domain"
	"github.com/simaogato/beneficio-backend/internal/usecase/benefit"
	"github.com/simaogato/beneficio-backend/internal/usecase/seeder"
	"github.com/simaogato/beneficio-backend/internal/usecase/transfer"
)

type publisher interface {
	transfer.EventPublisher
	Close() error
}

// Bootstrap wires storage, the event bus, services and transports from cfg.
// Returns the App, a cleanup function, or an error.
func Bootstrap(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, func(), error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var cleanupFns []func()

	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanupFns = append(cleanupFns, closeRepo)
	logger.Info("storage ready", zap.String("storage", cfg.Storage))

	bus, err := openPublisher(cfg, logger)
	if err != nil {
		return nil, runCleanup(cleanupFns), err
	}
	cleanupFns = append(cleanupFns, func() {
		if err := bus.Close(); err != nil {
			logger.Warn("failed to close event publisher", zap.Error(err))
		}
	})
	logger.Info("event bus ready", zap.String("provider", cfg.BusProvider))

	if cfg.SeedDemo {
		if err := seeder.NewDemoSeeder(repo, logger).Seed(ctx); err != nil {
			return nil, runCleanup(cleanupFns), fmt.Errorf("failed to seed demo benefits: %w", err)
		}
	}

	transfers := transfer.NewPublishingExecutor(
		transfer.NewTransferService(repo, cfg.TransferConfig(), logger),
		bus,
		logger,
	)
	benefits := benefit.NewBenefitService(repo, logger)

	servers := []Server{
		httpadapter.NewServer(cfg.HTTPAddr(), httpadapter.NewHandler(transfers, benefits, logger), logger),
	}
	if cfg.GRPCEnabled {
		gs := grpcadapter.NewGRPCServer(grpcadapter.NewServer(transfers, benefits), cfg.APIToken, logger)
		servers = append(servers, grpcadapter.NewListener(cfg.GRPCAddr(), gs, logger))
	}

	return NewApp(servers, logger), runCleanup(cleanupFns), nil
}

func openRepository(ctx context.Context, cfg *config.Config) (domain.BenefitRepository, func(), error) {
	switch cfg.Storage {
	case config.StoragePostgres:
		db, err := postgres.NewDB(ctx, cfg.DSN())
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewBenefitRepository(db), func() { _ = db.Close() }, nil
	case config.StorageRedis:
		client, err := redis.Connect(ctx, cfg.RedisAddr())
		if err != nil {
			return nil, nil, err
		}
		return redis.NewBenefitRepository(client), func() { _ = client.Close() }, nil
	default:
		return memory.NewBenefitRepository(), func() {}, nil
	}
}

func openPublisher(cfg *config.Config, logger *zap.Logger) (publisher, error) {
	switch cfg.BusProvider {
	case config.BusNats:
		nc, err := nats.Connect(cfg.NatsAddr())
		if err != nil {
			return nil, err
		}
		return nats.NewPublisher(nc), nil
	case config.BusKafka:
		return kafka.NewPublisher(cfg.KafkaBrokers), nil
	default:
		return messaging.NewLogPublisher(logger), nil
	}
}

// runCleanup returns a single function that calls all cleanup functions in reverse order.
func runCleanup(fns []func()) func() {
	return func() {
		for i := len(fns) - 1; i >= 0; i-- {
			fns[i]()
		}
	}
}
