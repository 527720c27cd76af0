package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// BalanceRepository is the primitive the transfer engine needs from a store
type BalanceRepository interface {
	// GetByID retrieves a benefit by its ID
	// Returns ErrNotFound if it does not exist
	GetByID(ctx context.Context, id int64) (*Benefit, error)

	// ConditionalUpdate writes newBalance only if the stored version equals expectedVersion
	// On success the stored version is incremented by 1 and the new version is returned
	// Returns ErrVersionMismatch on a concurrent change and ErrNotFound if the row is gone
	ConditionalUpdate(ctx context.Context, id int64, expectedVersion int64, newBalance decimal.Decimal) (int64, error)
}

// BalanceBatchUpdater is implemented by stores that can apply several conditional
// writes as one all-or-nothing unit
type BalanceBatchUpdater interface {
	// ConditionalUpdateBatch applies every update or none of them
	// New versions are returned in the order of updates
	ConditionalUpdateBatch(ctx context.Context, updates []BalanceUpdate) ([]int64, error)
}

// BenefitRepository defines the interface for benefit persistence operations
type BenefitRepository interface {
	BalanceRepository

	// Create persists a new benefit and fills ID, Version, CreatedAt and UpdatedAt
	Create(ctx context.Context, benefit *Benefit) error

	// Update writes name, description, balance and active if benefit.Version is still current
	// On success benefit.Version and benefit.UpdatedAt are refreshed
	Update(ctx context.Context, benefit *Benefit) error

	// List retrieves benefits
	// If activeOnly is false, returns all benefits ordered by ID
	// If activeOnly is true, returns active benefits ordered by name
	List(ctx context.Context, activeOnly bool) ([]*Benefit, error)

	// ExistsByName reports whether another benefit (ID != excludeID) already uses name
	ExistsByName(ctx context.Context, name string, excludeID int64) (bool, error)
}
