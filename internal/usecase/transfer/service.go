package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/simaogato/beneficio-backend/internal/domain"
)

// errVersionConflict marks an attempt that lost a race and should be retried
var errVersionConflict = errors.New("transfer: version conflict")

// Config tunes retry behaviour of the transfer engine
type Config struct {
	// MaxAttempts bounds the validate+write cycles per Execute call
	MaxAttempts int
	// CompensationAttempts bounds the writes that undo a partial transfer
	CompensationAttempts int
	// RetryDelay is waited between attempts; zero retries immediately
	RetryDelay time.Duration
	// CompensationTimeout bounds compensation independently of the caller's context
	CompensationTimeout time.Duration
	// RequireActiveOrigin rejects transfers out of inactive benefits
	RequireActiveOrigin bool
}

// DefaultConfig returns the engine defaults: 3 attempts without backoff
func DefaultConfig() Config {
	return Config{
		MaxAttempts:          3,
		CompensationAttempts: 5,
		RetryDelay:           0,
		CompensationTimeout:  5 * time.Second,
		RequireActiveOrigin:  true,
	}
}

// TransferService moves an amount between two benefits using conditional writes.
// It holds no mutable state between calls and is safe for concurrent use.
type TransferService struct {
	Repo   domain.BalanceRepository
	Config Config
	Logger *zap.Logger

	now   func() time.Time
	newID func() uuid.UUID
}

// NewTransferService creates a new TransferService instance
func NewTransferService(repo domain.BalanceRepository, cfg Config, logger *zap.Logger) *TransferService {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.CompensationAttempts < 1 {
		cfg.CompensationAttempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransferService{
		Repo:   repo,
		Config: cfg,
		Logger: logger,
		now:    time.Now,
		newID:  uuid.New,
	}
}

// Execute transfers req.Amount from the origin benefit to the destination benefit
// Logic:
//  1. Validate the request shape (no repository access on failure)
//  2. Load origin and destination snapshots
//  3. Check active state and funds against the snapshots
//  4. Conditionally write origin, then destination
//  5. On a version conflict undo any partial write, re-read and retry
//
// Failures are *domain.TransferError values; a cancelled caller context is returned as is.
func (s *TransferService) Execute(ctx context.Context, req domain.TransferRequest) (*domain.TransferResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	txID := s.newID()
	logger := s.Logger.With(
		zap.String("transaction_id", txID.String()),
		zap.Int64("origin_id", req.OriginID),
		zap.Int64("destination_id", req.DestinationID),
		zap.String("amount", req.Amount.String()),
	)

	var (
		result  *domain.TransferResult
		attempt int
	)

	err := retry.Do(ctx, s.backoff(s.Config.MaxAttempts), func(ctx context.Context) error {
		attempt++
		logger.Debug("transfer attempt", zap.Int("attempt", attempt))

		res, err := s.attempt(ctx, logger, txID, req)
		if errors.Is(err, errVersionConflict) {
			logger.Warn("transfer lost a concurrent update, retrying", zap.Int("attempt", attempt))
			return retry.RetryableError(err)
		}
		if err != nil {
			return err
		}

		result = res
		return nil
	})
	if err != nil {
		if errors.Is(err, errVersionConflict) {
			logger.Warn("transfer retries exhausted", zap.Int("attempts", attempt))
			return nil, domain.NewConflict(attempt, err)
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("transfer interrupted after %d attempts: %w", attempt, err)
		}
		return nil, err
	}

	logger.Info("transfer committed",
		zap.Int("attempts", attempt),
		zap.String("origin_balance", result.Origin.BalanceAfter.String()),
		zap.String("destination_balance", result.Destination.BalanceAfter.String()),
	)
	return result, nil
}

// attempt runs one read-validate-write cycle
func (s *TransferService) attempt(ctx context.Context, logger *zap.Logger, txID uuid.UUID, req domain.TransferRequest) (*domain.TransferResult, error) {
	origin, err := s.load(ctx, req.OriginID)
	if err != nil {
		return nil, err
	}

	destination, err := s.load(ctx, req.DestinationID)
	if err != nil {
		return nil, err
	}

	if err := s.check(origin, destination, req.Amount); err != nil {
		return nil, err
	}

	newOrigin := origin.Balance.Sub(req.Amount)
	newDestination := destination.Balance.Add(req.Amount)

	var originVersion, destinationVersion int64
	if batch, ok := s.Repo.(domain.BalanceBatchUpdater); ok {
		versions, err := batch.ConditionalUpdateBatch(ctx, []domain.BalanceUpdate{
			{ID: origin.ID, ExpectedVersion: origin.Version, NewBalance: newOrigin},
			{ID: destination.ID, ExpectedVersion: destination.Version, NewBalance: newDestination},
		})
		if errors.Is(err, domain.ErrNotFound) {
			return nil, s.missingEndpoint(ctx, err, origin.ID, destination.ID)
		}
		if err != nil {
			return nil, s.writeError(err, 0, "apply transfer")
		}
		originVersion, destinationVersion = versions[0], versions[1]
	} else {
		originVersion, err = s.Repo.ConditionalUpdate(ctx, origin.ID, origin.Version, newOrigin)
		if err != nil {
			return nil, s.writeError(err, origin.ID, "debit origin")
		}

		destinationVersion, err = s.Repo.ConditionalUpdate(ctx, destination.ID, destination.Version, newDestination)
		if err != nil {
			if cerr := s.compensate(ctx, logger, origin.ID, originVersion, newOrigin, req.Amount, err); cerr != nil {
				return nil, cerr
			}
			return nil, s.writeError(err, destination.ID, "credit destination")
		}
	}

	return &domain.TransferResult{
		TransactionID: txID,
		OriginID:      origin.ID,
		DestinationID: destination.ID,
		Amount:        req.Amount,
		Timestamp:     s.now(),
		Origin: domain.TransferEndpoint{
			ID:            origin.ID,
			Name:          origin.Name,
			BalanceBefore: origin.Balance,
			BalanceAfter:  newOrigin,
			Version:       originVersion,
		},
		Destination: domain.TransferEndpoint{
			ID:            destination.ID,
			Name:          destination.Name,
			BalanceBefore: destination.Balance,
			BalanceAfter:  newDestination,
			Version:       destinationVersion,
		},
	}, nil
}

func (s *TransferService) load(ctx context.Context, id int64) (*domain.Benefit, error) {
	b, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewTransferNotFound(id, err)
		}
		return nil, fmt.Errorf("load benefit %d: %w", id, err)
	}
	return b, nil
}

// check enforces active state before funds, matching the documented precondition order
func (s *TransferService) check(origin, destination *domain.Benefit, amount decimal.Decimal) error {
	if s.Config.RequireActiveOrigin && !origin.Active {
		return domain.NewInvalidState(origin.ID, "origin")
	}
	if !destination.Active {
		return domain.NewInvalidState(destination.ID, "destination")
	}
	if origin.Balance.LessThan(amount) {
		return domain.NewInsufficientFunds(origin.ID, origin.Balance, amount)
	}
	return nil
}

func (s *TransferService) writeError(err error, id int64, op string) error {
	switch {
	case errors.Is(err, domain.ErrVersionMismatch):
		return fmt.Errorf("%s: %w", op, errVersionConflict)
	case errors.Is(err, domain.ErrNotFound) && id != 0:
		return domain.NewTransferNotFound(id, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// missingEndpoint names the benefit a batch write could not find.
// The batch error does not carry the id, so each endpoint is re-read; the origin is blamed if neither read fails.
func (s *TransferService) missingEndpoint(ctx context.Context, cause error, ids ...int64) error {
	for _, id := range ids {
		if _, err := s.Repo.GetByID(ctx, id); errors.Is(err, domain.ErrNotFound) {
			return domain.NewTransferNotFound(id, cause)
		}
	}
	return domain.NewTransferNotFound(ids[0], cause)
}

// compensate restores the origin after its debit landed but the credit did not.
// The first write targets the version produced by the debit; on conflict the
// origin is re-read and the amount is added back to its current balance.
// It ignores the caller's cancellation so a timeout never strands a debit.
func (s *TransferService) compensate(
	ctx context.Context,
	logger *zap.Logger,
	originID int64,
	version int64,
	balance decimal.Decimal,
	amount decimal.Decimal,
	cause error,
) error {
	ctx = context.WithoutCancel(ctx)
	if s.Config.CompensationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Config.CompensationTimeout)
		defer cancel()
	}

	expected, current := version, balance
	tries := 0
	err := retry.Do(ctx, s.backoff(s.Config.CompensationAttempts), func(ctx context.Context) error {
		tries++
		_, err := s.Repo.ConditionalUpdate(ctx, originID, expected, current.Add(amount))
		if err == nil {
			return nil
		}

		if errors.Is(err, domain.ErrVersionMismatch) {
			fresh, gerr := s.Repo.GetByID(ctx, originID)
			if gerr != nil {
				return retry.RetryableError(errors.Join(err, gerr))
			}
			expected, current = fresh.Version, fresh.Balance
		}
		logger.Warn("compensation attempt failed", zap.Int("attempt", tries), zap.Error(err))
		return retry.RetryableError(err)
	})
	if err != nil {
		logger.Error("transfer left inconsistent, manual reconciliation required",
			zap.Int("compensation_attempts", tries),
			zap.NamedError("cause", cause),
			zap.Error(err),
		)
		return domain.NewInconsistent(originID, amount, errors.Join(cause, err))
	}

	logger.Warn("partial transfer compensated", zap.Int("compensation_attempts", tries), zap.NamedError("cause", cause))
	return nil
}

// backoff allows attempts-1 retries spaced by RetryDelay
func (s *TransferService) backoff(attempts int) retry.Backoff {
	delay := s.Config.RetryDelay
	b := retry.BackoffFunc(func() (time.Duration, bool) {
		return delay, false
	})
	return retry.WithMaxRetries(uint64(attempts-1), b)
}
