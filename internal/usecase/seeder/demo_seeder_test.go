package seeder

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/beneficio-backend/internal/adapter/repository/memory"
	"github.com/simaogato/beneficio-backend/internal/domain"
)

// MockBenefitRepository is a mock implementation of BenefitRepository
type MockBenefitRepository struct {
	mock.Mock
}

func (m *MockBenefitRepository) GetByID(ctx context.Context, id int64) (*domain.Benefit, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Benefit), args.Error(1)
}

func (m *MockBenefitRepository) ConditionalUpdate(ctx context.Context, id int64, expectedVersion int64, newBalance decimal.Decimal) (int64, error) {
	args := m.Called(ctx, id, expectedVersion, newBalance)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBenefitRepository) Create(ctx context.Context, benefit *domain.Benefit) error {
	args := m.Called(ctx, benefit)
	return args.Error(0)
}

func (m *MockBenefitRepository) Update(ctx context.Context, benefit *domain.Benefit) error {
	args := m.Called(ctx, benefit)
	return args.Error(0)
}

func (m *MockBenefitRepository) List(ctx context.Context, activeOnly bool) ([]*domain.Benefit, error) {
	args := m.Called(ctx, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Benefit), args.Error(1)
}

func (m *MockBenefitRepository) ExistsByName(ctx context.Context, name string, excludeID int64) (bool, error) {
	args := m.Called(ctx, name, excludeID)
	return args.Bool(0), args.Error(1)
}

func TestDemoSeeder_Seed_EmptyStore(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewBenefitRepository()
	seeder := NewDemoSeeder(repo, nil)

	require.NoError(t, seeder.Seed(ctx))

	benefits, err := repo.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, benefits, len(DemoBenefits))
	assert.Equal(t, "Vale Refeição", benefits[0].Name)
	assert.True(t, benefits[0].Balance.Equal(decimal.NewFromInt(1000)))
	assert.True(t, benefits[0].Active)
}

func TestDemoSeeder_Seed_Idempotent(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewBenefitRepository()
	seeder := NewDemoSeeder(repo, nil)

	require.NoError(t, seeder.Seed(ctx))
	require.NoError(t, seeder.Seed(ctx))

	benefits, err := repo.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, benefits, len(DemoBenefits))
}

func TestDemoSeeder_Seed_PartialBenefitsExist(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockBenefitRepository)
	seeder := NewDemoSeeder(mockRepo, nil)

	// Mock: first benefit exists, the others are missing
	mockRepo.On("ExistsByName", ctx, "Vale Refeição", int64(0)).Return(true, nil)
	mockRepo.On("ExistsByName", ctx, "Vale Alimentação", int64(0)).Return(false, nil)
	mockRepo.On("ExistsByName", ctx, "Vale Transporte", int64(0)).Return(false, nil)
	mockRepo.On("Create", ctx, mock.MatchedBy(func(b *domain.Benefit) bool {
		return b.Name != "Vale Refeição" && b.Active
	})).Return(nil)

	err := seeder.Seed(ctx)

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockRepo.AssertNumberOfCalls(t, "Create", 2)
}

func TestDemoSeeder_Seed_CreateFails(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockBenefitRepository)
	seeder := NewDemoSeeder(mockRepo, nil)

	mockRepo.On("ExistsByName", ctx, mock.Anything, int64(0)).Return(false, nil)
	mockRepo.On("Create", ctx, mock.Anything).Return(errors.New("db down")).Once()

	err := seeder.Seed(ctx)

	assert.ErrorContains(t, err, "Vale Refeição")
	assert.ErrorContains(t, err, "db down")
	mockRepo.AssertNumberOfCalls(t, "Create", 1)
}
