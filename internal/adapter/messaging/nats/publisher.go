package nats

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
)

// Publisher sends events to NATS subjects named after the topic
type Publisher struct {
	nc *nats.Conn
}

// Connect dials the NATS server at url
func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url, nats.Name("beneficio-backend"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return nc, nil
}

func NewPublisher(nc *nats.Conn) *Publisher {
	return &Publisher{nc: nc}
}

// Publish writes data to the subject; core NATS is fire and forget, so ctx only guards the call
func (p *Publisher) Publish(ctx context.Context, topic string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.nc.Publish(topic, data); err != nil {
		return fmt.Errorf("nats publish %s: %w", topic, err)
	}
	return nil
}

// Close flushes pending messages and closes the connection
func (p *Publisher) Close() error {
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
		return err
	}
	return nil
}
