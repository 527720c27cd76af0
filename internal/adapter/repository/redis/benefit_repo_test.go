package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/simaogato/beneficio-backend/internal/domain"
	"github.com/simaogato/beneficio-backend/internal/usecase/transfer"
)

func newTestRepository(t *testing.T) (domain.BenefitRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	client, err := Connect(context.Background(), mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return NewBenefitRepository(client), mr
}

func create(t *testing.T, repo domain.BenefitRepository, name string, balance string, active bool) *domain.Benefit {
	t.Helper()
	b := &domain.Benefit{Name: name, Balance: decimal.RequireFromString(balance), Active: active}
	require.NoError(t, repo.Create(context.Background(), b))
	return b
}

func TestConnect_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := Connect(context.Background(), addr)
	assert.ErrorContains(t, err, "failed to ping redis")
}

func TestBenefitRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo, mr := newTestRepository(t)

	b := create(t, repo, "Vale Refeição", "1000.50", true)
	assert.Equal(t, int64(1), b.ID)
	assert.Equal(t, int64(0), b.Version)

	got, err := repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Vale Refeição", got.Name)
	assert.True(t, got.Active)
	assert.True(t, got.Balance.Equal(decimal.RequireFromString("1000.50")))
	assert.Equal(t, b.CreatedAt.UnixNano(), got.CreatedAt.UnixNano())

	assert.Equal(t, "1000.5", mr.HGet("benefit:1", "balance"))

	_, err = repo.GetByID(ctx, 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBenefitRepository_CreateDuplicateName(t *testing.T) {
	repo, _ := newTestRepository(t)
	create(t, repo, "Vale Refeição", "1000", true)

	err := repo.Create(context.Background(), &domain.Benefit{Name: "Vale Refeição"})
	assert.ErrorIs(t, err, domain.ErrDuplicateName)

	next := create(t, repo, "Vale Transporte", "10", true)
	assert.Equal(t, int64(2), next.ID)
}

func TestBenefitRepository_CreateConcurrent_UniqueIDs(t *testing.T) {
	repo, _ := newTestRepository(t)

	const n = 10
	ids := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b := &domain.Benefit{Name: fmt.Sprintf("Vale %02d", i), Balance: decimal.NewFromInt(1), Active: true}
			for {
				err := repo.Create(context.Background(), b)
				if errors.Is(err, domain.ErrVersionMismatch) {
					continue
				}
				assert.NoError(t, err)
				break
			}
			ids <- b.ID
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool)
	for id := range ids {
		assert.False(t, seen[id], "id %d allocated twice", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
	for id := int64(1); id <= n; id++ {
		assert.True(t, seen[id], "id %d missing", id)
	}
}

func TestBenefitRepository_ConditionalUpdate(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)
	b := create(t, repo, "Vale Refeição", "1000", true)

	version, err := repo.ConditionalUpdate(ctx, b.ID, 0, decimal.NewFromInt(500))
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	_, err = repo.ConditionalUpdate(ctx, b.ID, 0, decimal.NewFromInt(400))
	assert.ErrorIs(t, err, domain.ErrVersionMismatch)

	_, err = repo.ConditionalUpdate(ctx, 99, 0, decimal.NewFromInt(400))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.ConditionalUpdate(ctx, b.ID, 1, decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, domain.ErrValidation)

	got, err := repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, int64(1), got.Version)
}

func TestBenefitRepository_BatchAllOrNothing(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)
	origin := create(t, repo, "Vale Refeição", "1000", true)
	destination := create(t, repo, "Vale Alimentação", "2000", true)

	batch, ok := repo.(domain.BalanceBatchUpdater)
	require.True(t, ok)

	_, err := batch.ConditionalUpdateBatch(ctx, []domain.BalanceUpdate{
		{ID: origin.ID, ExpectedVersion: 0, NewBalance: decimal.NewFromInt(500)},
		{ID: destination.ID, ExpectedVersion: 9, NewBalance: decimal.NewFromInt(2500)},
	})
	assert.ErrorIs(t, err, domain.ErrVersionMismatch)

	got, err := repo.GetByID(ctx, origin.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(1000)))

	versions, err := batch.ConditionalUpdateBatch(ctx, []domain.BalanceUpdate{
		{ID: origin.ID, ExpectedVersion: 0, NewBalance: decimal.NewFromInt(500)},
		{ID: destination.ID, ExpectedVersion: 0, NewBalance: decimal.NewFromInt(2500)},
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 1}, versions)
}

func TestBenefitRepository_UpdateRenames(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)
	b := create(t, repo, "Vale Refeição", "1000", true)
	create(t, repo, "Vale Transporte", "10", true)

	b.Name = "Vale Transporte"
	assert.ErrorIs(t, repo.Update(ctx, b), domain.ErrDuplicateName)

	b.Name = "Vale Refeição Plus"
	b.Active = false
	require.NoError(t, repo.Update(ctx, b))
	assert.Equal(t, int64(1), b.Version)

	exists, err := repo.ExistsByName(ctx, "Vale Refeição", 0)
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = repo.ExistsByName(ctx, "Vale Refeição Plus", b.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = repo.ExistsByName(ctx, "Vale Refeição Plus", 0)
	require.NoError(t, err)
	assert.True(t, exists)

	stale := b.Clone()
	stale.Version = 0
	assert.ErrorIs(t, repo.Update(ctx, stale), domain.ErrVersionMismatch)

	stale.ID = 77
	assert.ErrorIs(t, repo.Update(ctx, stale), domain.ErrNotFound)
}

func TestBenefitRepository_List(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)
	create(t, repo, "Vale Transporte", "100", true)
	create(t, repo, "Plano de Saúde", "100", false)
	create(t, repo, "Auxílio Creche", "100", true)

	all, err := repo.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{all[0].ID, all[1].ID, all[2].ID})

	active, err := repo.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "Auxílio Creche", active[0].Name)
}

func TestTransfer_AgainstRedis(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)
	origin := create(t, repo, "Vale Refeição", "1000", true)
	destination := create(t, repo, "Vale Alimentação", "2000", true)

	svc := transfer.NewTransferService(repo, transfer.DefaultConfig(), zap.NewNop())
	result, err := svc.Execute(ctx, domain.TransferRequest{
		OriginID:      origin.ID,
		DestinationID: destination.ID,
		Amount:        decimal.NewFromInt(500),
	})
	require.NoError(t, err)
	assert.True(t, result.Origin.BalanceAfter.Equal(decimal.NewFromInt(500)))

	got, err := repo.GetByID(ctx, destination.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(2500)))
	assert.Equal(t, int64(1), got.Version)
}
