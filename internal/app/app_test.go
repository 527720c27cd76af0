package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/simaogato/beneficio-backend/internal/config"
	"github.com/simaogato/beneficio-backend/internal/usecase/transfer"
)

type fakeServer struct {
	startErr error
	stopped  atomic.Bool
	release  chan struct{}
}

func newFakeServer(startErr error) *fakeServer {
	return &fakeServer{startErr: startErr, release: make(chan struct{})}
}

func (s *fakeServer) Start(ctx context.Context) error {
	if s.startErr != nil {
		return s.startErr
	}
	<-s.release
	return nil
}

func (s *fakeServer) Stop(ctx context.Context) error {
	if s.stopped.CompareAndSwap(false, true) {
		close(s.release)
	}
	return nil
}

func TestApp_Run_StopsOnCancel(t *testing.T) {
	a, b := newFakeServer(nil), newFakeServer(nil)
	app := NewApp([]Server{a, b}, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
	assert.True(t, a.stopped.Load())
	assert.True(t, b.stopped.Load())
}

func TestApp_Run_FailingServerStopsOthers(t *testing.T) {
	boom := errors.New("listen: address in use")
	healthy := newFakeServer(nil)
	app := NewApp([]Server{healthy, newFakeServer(boom)}, zaptest.NewLogger(t))

	err := app.Run(context.Background())

	assert.ErrorIs(t, err, boom)
	assert.True(t, healthy.stopped.Load())
}

func memoryConfig() *config.Config {
	tc := transfer.DefaultConfig()
	return &config.Config{
		Storage:              config.StorageMemory,
		BusProvider:          config.BusNone,
		HTTPPort:             "0",
		GRPCPort:             "0",
		GRPCEnabled:          true,
		APIToken:             "token",
		MaxAttempts:          tc.MaxAttempts,
		CompensationAttempts: tc.CompensationAttempts,
		CompensationTimeout:  tc.CompensationTimeout,
		RequireActiveOrigin:  true,
		SeedDemo:             true,
	}
}

func TestBootstrap_Memory(t *testing.T) {
	app, cleanup, err := Bootstrap(context.Background(), memoryConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)
	defer cleanup()

	assert.Len(t, app.servers, 2)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("app did not stop")
	}
}

func TestBootstrap_UnreachableRedis(t *testing.T) {
	cfg := memoryConfig()
	cfg.Storage = config.StorageRedis
	cfg.RedisHost = "127.0.0.1"
	cfg.RedisPort = "1"

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, _, err := Bootstrap(ctx, cfg, zaptest.NewLogger(t))
	require.Error(t, err)
}
