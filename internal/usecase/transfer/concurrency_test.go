package transfer

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/simaogato/beneficio-backend/internal/adapter/repository/memory"
	"github.com/simaogato/beneficio-backend/internal/domain"
)

// singleRecordStore hides the batch capability so every transfer takes the
// debit, credit and compensate path
type singleRecordStore struct {
	domain.BalanceRepository
}

func seedBenefits(t *testing.T, repo *memory.BenefitRepository, balances ...int64) []int64 {
	t.Helper()
	names := []string{"Vale Refeição", "Vale Alimentação", "Vale Transporte", "Auxílio Creche"}
	ids := make([]int64, 0, len(balances))
	for i, balance := range balances {
		b := &domain.Benefit{Name: names[i], Balance: decimal.NewFromInt(balance), Active: true}
		require.NoError(t, repo.Create(context.Background(), b))
		ids = append(ids, b.ID)
	}
	return ids
}

func totalBalance(t *testing.T, repo *memory.BenefitRepository, ids []int64) decimal.Decimal {
	t.Helper()
	total := decimal.Zero
	for _, id := range ids {
		b, err := repo.GetByID(context.Background(), id)
		require.NoError(t, err)
		assert.False(t, b.Balance.IsNegative(), "benefit %d went negative", id)
		total = total.Add(b.Balance)
	}
	return total
}

func TestConcurrentTransfers_OnlyOneCanDrainOrigin(t *testing.T) {
	for _, tc := range []struct {
		name string
		repo func(*memory.BenefitRepository) domain.BalanceRepository
	}{
		{"Batch store", func(r *memory.BenefitRepository) domain.BalanceRepository { return r }},
		{"Single record store", func(r *memory.BenefitRepository) domain.BalanceRepository { return singleRecordStore{r} }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			mem := memory.NewBenefitRepository()
			ids := seedBenefits(t, mem, 1000, 0, 0)

			cfg := DefaultConfig()
			cfg.MaxAttempts = 10
			svc := NewTransferService(tc.repo(mem), cfg, zap.NewNop())

			var wg sync.WaitGroup
			errs := make([]error, 2)
			for i, destination := range ids[1:] {
				wg.Add(1)
				go func(i int, destination int64) {
					defer wg.Done()
					_, errs[i] = svc.Execute(context.Background(), domain.TransferRequest{
						OriginID:      ids[0],
						DestinationID: destination,
						Amount:        decimal.NewFromInt(800),
					})
				}(i, destination)
			}
			wg.Wait()

			succeeded := 0
			for _, err := range errs {
				if err == nil {
					succeeded++
					continue
				}
				assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
			}
			assert.Equal(t, 1, succeeded)

			origin, err := mem.GetByID(context.Background(), ids[0])
			require.NoError(t, err)
			assert.True(t, origin.Balance.Equal(decimal.NewFromInt(200)))
			assert.True(t, totalBalance(t, mem, ids).Equal(decimal.NewFromInt(1000)))
		})
	}
}

func TestConcurrentTransfers_ConserveTotal(t *testing.T) {
	mem := memory.NewBenefitRepository()
	ids := seedBenefits(t, mem, 1000, 1000, 1000, 1000)

	cfg := DefaultConfig()
	cfg.MaxAttempts = 50
	cfg.CompensationAttempts = 100
	svc := NewTransferService(singleRecordStore{mem}, cfg, zap.NewNop())

	const workers = 8
	const perWorker = 25

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				origin := ids[(w+i)%len(ids)]
				destination := ids[(w+i+1)%len(ids)]
				_, err := svc.Execute(context.Background(), domain.TransferRequest{
					OriginID:      origin,
					DestinationID: destination,
					Amount:        decimal.RequireFromString("12.34"),
				})
				// losers may run out of funds or retries but must never corrupt state
				if err != nil {
					kind := domain.KindOf(err)
					assert.Contains(t, []domain.FailureKind{domain.FailureInsufficientFunds, domain.FailureConflict}, kind)
				}
			}
		}(w)
	}
	wg.Wait()

	assert.True(t, totalBalance(t, mem, ids).Equal(decimal.NewFromInt(4000)))
}

func TestRepeatedRequest_IsNotIdempotent(t *testing.T) {
	mem := memory.NewBenefitRepository()
	ids := seedBenefits(t, mem, 1000, 2000)
	svc := NewTransferService(mem, DefaultConfig(), zap.NewNop())

	req := domain.TransferRequest{OriginID: ids[0], DestinationID: ids[1], Amount: decimal.NewFromInt(300)}

	first, err := svc.Execute(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.Execute(context.Background(), req)
	require.NoError(t, err)

	assert.NotEqual(t, first.TransactionID, second.TransactionID)
	assert.True(t, second.Origin.BalanceAfter.Equal(decimal.NewFromInt(400)))
	assert.True(t, second.Destination.BalanceAfter.Equal(decimal.NewFromInt(2600)))
}
