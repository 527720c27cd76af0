package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/beneficio-backend/internal/domain"
)

// BenefitRepository is an in-memory implementation of domain.BenefitRepository.
// Every method copies benefits in and out so callers never share state with the store.
type BenefitRepository struct {
	mu       sync.RWMutex
	benefits map[int64]*domain.Benefit
	nextID   int64
	now      func() time.Time
}

// NewBenefitRepository creates an empty in-memory repository
func NewBenefitRepository() *BenefitRepository {
	return &BenefitRepository{
		benefits: make(map[int64]*domain.Benefit),
		nextID:   1,
		now:      time.Now,
	}
}

// GetByID retrieves a benefit by its ID
func (r *BenefitRepository) GetByID(ctx context.Context, id int64) (*domain.Benefit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.benefits[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return b.Clone(), nil
}

// ConditionalUpdate writes the balance if the stored version matches
func (r *BenefitRepository) ConditionalUpdate(ctx context.Context, id int64, expectedVersion int64, newBalance decimal.Decimal) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkLocked(domain.BalanceUpdate{ID: id, ExpectedVersion: expectedVersion, NewBalance: newBalance}); err != nil {
		return 0, err
	}
	return r.applyLocked(id, newBalance), nil
}

// ConditionalUpdateBatch checks every update first and applies them only if all pass
func (r *BenefitRepository) ConditionalUpdateBatch(ctx context.Context, updates []domain.BalanceUpdate) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range updates {
		if err := r.checkLocked(u); err != nil {
			return nil, err
		}
	}

	versions := make([]int64, 0, len(updates))
	for _, u := range updates {
		versions = append(versions, r.applyLocked(u.ID, u.NewBalance))
	}
	return versions, nil
}

func (r *BenefitRepository) checkLocked(u domain.BalanceUpdate) error {
	b, ok := r.benefits[u.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if b.Version != u.ExpectedVersion {
		return domain.ErrVersionMismatch
	}
	if u.NewBalance.IsNegative() {
		return domain.ErrValidation
	}
	return nil
}

func (r *BenefitRepository) applyLocked(id int64, balance decimal.Decimal) int64 {
	b := r.benefits[id]
	b.Balance = balance
	b.Version++
	b.UpdatedAt = r.now()
	return b.Version
}

// Create persists a new benefit
func (r *BenefitRepository) Create(ctx context.Context, benefit *domain.Benefit) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.nameTakenLocked(benefit.Name, 0) {
		return domain.ErrDuplicateName
	}

	now := r.now()
	benefit.ID = r.nextID
	benefit.Version = 0
	benefit.CreatedAt = now
	benefit.UpdatedAt = now
	r.nextID++

	r.benefits[benefit.ID] = benefit.Clone()
	return nil
}

// Update writes the editable fields if benefit.Version is current
func (r *BenefitRepository) Update(ctx context.Context, benefit *domain.Benefit) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.benefits[benefit.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.Version != benefit.Version {
		return domain.ErrVersionMismatch
	}
	if r.nameTakenLocked(benefit.Name, benefit.ID) {
		return domain.ErrDuplicateName
	}

	stored.Name = benefit.Name
	stored.Description = benefit.Description
	stored.Balance = benefit.Balance
	stored.Active = benefit.Active
	stored.Version++
	stored.UpdatedAt = r.now()

	benefit.Version = stored.Version
	benefit.CreatedAt = stored.CreatedAt
	benefit.UpdatedAt = stored.UpdatedAt
	return nil
}

// List retrieves benefits, optionally only the active ones
func (r *BenefitRepository) List(ctx context.Context, activeOnly bool) ([]*domain.Benefit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.Benefit, 0, len(r.benefits))
	for _, b := range r.benefits {
		if activeOnly && !b.Active {
			continue
		}
		result = append(result, b.Clone())
	}

	if activeOnly {
		sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	} else {
		sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	}
	return result, nil
}

// ExistsByName reports whether another benefit already uses name
func (r *BenefitRepository) ExistsByName(ctx context.Context, name string, excludeID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.nameTakenLocked(name, excludeID), nil
}

func (r *BenefitRepository) nameTakenLocked(name string, excludeID int64) bool {
	for id, b := range r.benefits {
		if id != excludeID && b.Name == name {
			return true
		}
	}
	return false
}

var (
	_ domain.BenefitRepository   = (*BenefitRepository)(nil)
	_ domain.BalanceBatchUpdater = (*BenefitRepository)(nil)
)
