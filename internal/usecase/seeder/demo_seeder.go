package seeder

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/simaogato/beneficio-backend/internal/domain"
)

// DemoBenefit defines a benefit to be seeded
type DemoBenefit struct {
	Name        string
	Description string
	Balance     decimal.Decimal
}

// DemoBenefits are the records created on a fresh store when seeding is enabled
var DemoBenefits = []DemoBenefit{
	{Name: "Vale Refeição", Description: "Benefício para refeições em restaurantes", Balance: decimal.NewFromInt(1000)},
	{Name: "Vale Alimentação", Description: "Benefício para compras em supermercados", Balance: decimal.NewFromInt(2000)},
	{Name: "Vale Transporte", Description: "Benefício para transporte público", Balance: decimal.NewFromInt(500)},
}

// DemoSeeder handles seeding of demo benefits
type DemoSeeder struct {
	repo   domain.BenefitRepository
	logger *zap.Logger
}

// NewDemoSeeder creates a new DemoSeeder instance
func NewDemoSeeder(repo domain.BenefitRepository, logger *zap.Logger) *DemoSeeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DemoSeeder{
		repo:   repo,
		logger: logger,
	}
}

// Seed ensures every demo benefit exists
// Benefits are matched by name, so running it twice creates nothing new
func (s *DemoSeeder) Seed(ctx context.Context) error {
	for _, demo := range DemoBenefits {
		exists, err := s.repo.ExistsByName(ctx, demo.Name, 0)
		if err != nil {
			return fmt.Errorf("failed to check demo benefit %q: %w", demo.Name, err)
		}
		if exists {
			continue
		}

		b := &domain.Benefit{
			Name:        demo.Name,
			Description: demo.Description,
			Balance:     demo.Balance,
			Active:      true,
		}

		// Validate before creating
		if err := b.Validate(); err != nil {
			return err
		}

		if err := s.repo.Create(ctx, b); err != nil {
			return fmt.Errorf("failed to create demo benefit %q: %w", demo.Name, err)
		}
		s.logger.Info("demo benefit seeded", zap.Int64("benefit_id", b.ID), zap.String("name", b.Name))
	}

	return nil
}
