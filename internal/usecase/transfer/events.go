package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/simaogato/beneficio-backend/internal/domain"
)

const (
	TopicTransferCompleted    = "benefits.transfer.completed"
	TopicTransferInconsistent = "benefits.transfer.inconsistent"

	publishTimeout = 5 * time.Second
)

// Executor runs a transfer; both TransferService and PublishingExecutor implement it
type Executor interface {
	Execute(ctx context.Context, req domain.TransferRequest) (*domain.TransferResult, error)
}

// EventPublisher delivers a serialized event to a topic on the message bus
type EventPublisher interface {
	Publish(ctx context.Context, topic string, data []byte) error
}

type TransferCompletedEvent struct {
	TransactionID      string    `json:"transactionId"`
	OriginID           int64     `json:"originId"`
	DestinationID      int64     `json:"destinationId"`
	Amount             string    `json:"amount"`
	OriginBalance      string    `json:"originBalance"`
	DestinationBalance string    `json:"destinationBalance"`
	OccurredAt         time.Time `json:"occurredAt"`
}

type TransferInconsistentEvent struct {
	OriginID      int64     `json:"originId"`
	DestinationID int64     `json:"destinationId"`
	Amount        string    `json:"amount"`
	Reason        string    `json:"reason"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// PublishingExecutor announces transfer outcomes on the bus.
// Publishing is best effort: a bus failure is logged and never changes the transfer outcome.
type PublishingExecutor struct {
	next      Executor
	publisher EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewPublishingExecutor wraps next so that committed and inconsistent transfers are published
func NewPublishingExecutor(next Executor, publisher EventPublisher, logger *zap.Logger) *PublishingExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PublishingExecutor{
		next:      next,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func (p *PublishingExecutor) Execute(ctx context.Context, req domain.TransferRequest) (*domain.TransferResult, error) {
	result, err := p.next.Execute(ctx, req)
	if err != nil {
		var te *domain.TransferError
		if errors.As(err, &te) && te.Kind == domain.FailureInconsistent {
			p.publish(ctx, TopicTransferInconsistent, TransferInconsistentEvent{
				OriginID:      req.OriginID,
				DestinationID: req.DestinationID,
				Amount:        req.Amount.String(),
				Reason:        err.Error(),
				OccurredAt:    p.now(),
			})
		}
		return nil, err
	}

	p.publish(ctx, TopicTransferCompleted, TransferCompletedEvent{
		TransactionID:      result.TransactionID.String(),
		OriginID:           result.OriginID,
		DestinationID:      result.DestinationID,
		Amount:             result.Amount.String(),
		OriginBalance:      result.Origin.BalanceAfter.String(),
		DestinationBalance: result.Destination.BalanceAfter.String(),
		OccurredAt:         result.Timestamp,
	})
	return result, nil
}

// publish runs detached from the caller so an event for a committed transfer is not dropped on cancel
func (p *PublishingExecutor) publish(ctx context.Context, topic string, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to encode event", zap.String("topic", topic), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := p.publisher.Publish(ctx, topic, data); err != nil {
		p.logger.Error("failed to publish event", zap.String("topic", topic), zap.Error(err))
		return
	}
	p.logger.Debug("event published", zap.String("topic", topic))
}

var (
	_ Executor = (*TransferService)(nil)
	_ Executor = (*PublishingExecutor)(nil)
)
