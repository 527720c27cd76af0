package grpc

import (
	"context"
	"errors"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// Listener runs a grpc.Server on a TCP address
type Listener struct {
	addr   string
	srv    *grpc.Server
	logger *zap.Logger
}

func NewListener(addr string, srv *grpc.Server, logger *zap.Logger) *Listener {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Listener{addr: addr, srv: srv, logger: logger}
}

func (l *Listener) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", l.addr)
	if err != nil {
		return err
	}
	l.logger.Info("grpc server listening", zap.String("addr", l.addr))
	if err := l.srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

func (l *Listener) Stop(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		l.srv.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		l.srv.Stop()
	}
	return nil
}
