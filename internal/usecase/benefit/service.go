package benefit

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/simaogato/beneficio-backend/internal/domain"
)

// Input carries the editable fields of a benefit
// Nil Active defaults to true on create and leaves the flag untouched on update.
// A non-nil Version on update must match the stored version.
type Input struct {
	Name        string
	Description string
	Balance     decimal.Decimal
	Active      *bool
	Version     *int64
}

// Summary aggregates the stored benefits
type Summary struct {
	Count        int
	ActiveCount  int
	TotalBalance decimal.Decimal
}

// BenefitService handles benefit administration
type BenefitService struct {
	Repo   domain.BenefitRepository
	Logger *zap.Logger
}

// NewBenefitService creates a new BenefitService instance
func NewBenefitService(repo domain.BenefitRepository, logger *zap.Logger) *BenefitService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BenefitService{
		Repo:   repo,
		Logger: logger,
	}
}

// List returns every benefit ordered by ID
func (s *BenefitService) List(ctx context.Context) ([]*domain.Benefit, error) {
	benefits, err := s.Repo.List(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list benefits: %w", err)
	}
	return benefits, nil
}

// ListActive returns the active benefits ordered by name
func (s *BenefitService) ListActive(ctx context.Context) ([]*domain.Benefit, error) {
	benefits, err := s.Repo.List(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list active benefits: %w", err)
	}
	return benefits, nil
}

func (s *BenefitService) Get(ctx context.Context, id int64) (*domain.Benefit, error) {
	return s.Repo.GetByID(ctx, id)
}

// Create validates and persists a new benefit
// Logic:
//  1. Validate fields (no repository access on failure)
//  2. Reject a name already in use
//  3. Persist; the repository assigns ID and version 0
func (s *BenefitService) Create(ctx context.Context, in Input) (*domain.Benefit, error) {
	b := &domain.Benefit{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Balance:     in.Balance,
		Active:      true,
	}
	if in.Active != nil {
		b.Active = *in.Active
	}

	if err := b.Validate(); err != nil {
		return nil, err
	}

	exists, err := s.Repo.ExistsByName(ctx, b.Name, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to check benefit name: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: %q", domain.ErrDuplicateName, b.Name)
	}

	if err := s.Repo.Create(ctx, b); err != nil {
		return nil, err
	}

	s.Logger.Info("benefit created", zap.Int64("benefit_id", b.ID), zap.String("name", b.Name))
	return b, nil
}

// Update replaces the editable fields of an existing benefit
func (s *BenefitService) Update(ctx context.Context, id int64, in Input) (*domain.Benefit, error) {
	b, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Version != nil && *in.Version != b.Version {
		return nil, domain.ErrVersionMismatch
	}

	b.Name = strings.TrimSpace(in.Name)
	b.Description = in.Description
	b.Balance = in.Balance
	if in.Active != nil {
		b.Active = *in.Active
	}

	if err := b.Validate(); err != nil {
		return nil, err
	}

	exists, err := s.Repo.ExistsByName(ctx, b.Name, id)
	if err != nil {
		return nil, fmt.Errorf("failed to check benefit name: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: %q", domain.ErrDuplicateName, b.Name)
	}

	if err := s.Repo.Update(ctx, b); err != nil {
		return nil, err
	}

	s.Logger.Info("benefit updated", zap.Int64("benefit_id", b.ID), zap.Int64("version", b.Version))
	return b, nil
}

// Delete deactivates a benefit; records are never physically removed
func (s *BenefitService) Delete(ctx context.Context, id int64) error {
	b, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !b.Active {
		return nil
	}

	b.Active = false
	if err := s.Repo.Update(ctx, b); err != nil {
		return err
	}

	s.Logger.Info("benefit deactivated", zap.Int64("benefit_id", b.ID))
	return nil
}

// Summary counts benefits and sums their balances
// The total is unchanged by any committed transfer, which makes it useful for reconciliation
func (s *BenefitService) Summary(ctx context.Context) (*Summary, error) {
	benefits, err := s.Repo.List(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list benefits: %w", err)
	}

	summary := &Summary{TotalBalance: decimal.Zero}
	for _, b := range benefits {
		summary.Count++
		if b.Active {
			summary.ActiveCount++
		}
		summary.TotalBalance = summary.TotalBalance.Add(b.Balance)
	}
	return summary, nil
}
