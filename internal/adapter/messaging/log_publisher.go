package messaging

import (
	"context"

	"go.uber.org/zap"
)

// LogPublisher records events in the log instead of a bus
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, topic string, data []byte) error {
	p.logger.Info("event", zap.String("topic", topic), zap.ByteString("payload", data))
	return nil
}

func (p *LogPublisher) Close() error {
	return nil
}
