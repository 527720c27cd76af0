package app

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// Server is anything App can start and stop: the HTTP API, the gRPC listener
type Server interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type App struct {
	servers []Server
	logger  *zap.Logger
}

func NewApp(servers []Server, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{servers: servers, logger: logger}
}

// Run starts every server and blocks until ctx is cancelled or one of them fails,
// then stops all of them.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, srv := range a.servers {
		s := srv
		g.Go(func() error {
			return s.Start(gctx)
		})
	}

	<-gctx.Done()
	a.logger.Info("shutting down", zap.Int("servers", len(a.servers)))

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var stopErr error
	for _, srv := range a.servers {
		if err := srv.Stop(stopCtx); err != nil {
			stopErr = errors.Join(stopErr, err)
		}
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return stopErr
}
