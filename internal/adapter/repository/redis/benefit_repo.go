package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/simaogato/beneficio-backend/internal/domain"
)

const (
	keySequence = "benefit:seq"
	keyIDs      = "benefit:ids"
	keyNames    = "benefit:names"

	// watchAttempts bounds retries when a watched key changes under a create or update
	watchAttempts = 5
)

func benefitKey(id int64) string {
	return "benefit:" + strconv.FormatInt(id, 10)
}

// Connect opens a client and verifies the server answers
func Connect(ctx context.Context, addr string) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr: addr,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return rdb, nil
}

// benefitRepository stores each benefit as a hash and relies on WATCH/MULTI/EXEC
// for version-checked writes
type benefitRepository struct {
	client *goredis.Client
	now    func() time.Time
}

// NewBenefitRepository creates a new redis-backed benefit repository
// The returned value also implements domain.BalanceBatchUpdater
func NewBenefitRepository(client *goredis.Client) domain.BenefitRepository {
	return &benefitRepository{client: client, now: time.Now}
}

// GetByID retrieves a benefit by its ID
func (r *benefitRepository) GetByID(ctx context.Context, id int64) (*domain.Benefit, error) {
	return r.get(ctx, r.client, id)
}

// hashReader is satisfied by both *goredis.Client and *goredis.Tx
type hashReader interface {
	HGetAll(ctx context.Context, key string) *goredis.MapStringStringCmd
}

func (r *benefitRepository) get(ctx context.Context, c hashReader, id int64) (*domain.Benefit, error) {
	fields, err := c.HGetAll(ctx, benefitKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get benefit by ID: %w", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrNotFound
	}
	return decodeBenefit(id, fields)
}

// ConditionalUpdate writes the balance if the stored version matches
func (r *benefitRepository) ConditionalUpdate(ctx context.Context, id int64, expectedVersion int64, newBalance decimal.Decimal) (int64, error) {
	versions, err := r.ConditionalUpdateBatch(ctx, []domain.BalanceUpdate{
		{ID: id, ExpectedVersion: expectedVersion, NewBalance: newBalance},
	})
	if err != nil {
		return 0, err
	}
	return versions[0], nil
}

// ConditionalUpdateBatch watches every touched key, checks all versions and
// applies the writes in one MULTI/EXEC block
func (r *benefitRepository) ConditionalUpdateBatch(ctx context.Context, updates []domain.BalanceUpdate) ([]int64, error) {
	keys := make([]string, 0, len(updates))
	for _, u := range updates {
		keys = append(keys, benefitKey(u.ID))
	}

	versions := make([]int64, len(updates))
	err := r.client.Watch(ctx, func(tx *goredis.Tx) error {
		for i, u := range updates {
			if u.NewBalance.IsNegative() {
				return fmt.Errorf("%w: benefit balance cannot be negative", domain.ErrValidation)
			}

			raw, err := tx.HGet(ctx, keys[i], "version").Result()
			if errors.Is(err, goredis.Nil) {
				return domain.ErrNotFound
			}
			if err != nil {
				return fmt.Errorf("failed to read benefit version: %w", err)
			}

			current, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return fmt.Errorf("failed to parse benefit version: %w", err)
			}
			if current != u.ExpectedVersion {
				return domain.ErrVersionMismatch
			}
			versions[i] = current + 1
		}

		updatedAt := r.now().UTC().Format(time.RFC3339Nano)
		_, err := tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			for i, u := range updates {
				pipe.HSet(ctx, keys[i],
					"balance", u.NewBalance.String(),
					"version", versions[i],
					"updated_at", updatedAt,
				)
			}
			return nil
		})
		return err
	}, keys...)
	if err != nil {
		if errors.Is(err, goredis.TxFailedErr) {
			return nil, domain.ErrVersionMismatch
		}
		return nil, err
	}

	return versions, nil
}

// Create persists a new benefit.
// The ID is allocated in the same transaction as the name check, so a rejected create does not consume one.
func (r *benefitRepository) Create(ctx context.Context, benefit *domain.Benefit) error {
	var (
		id  int64
		err error
	)

	now := r.now().UTC()
	for i := 0; i < watchAttempts; i++ {
		err = r.client.Watch(ctx, func(tx *goredis.Tx) error {
			taken, err := tx.HExists(ctx, keyNames, benefit.Name).Result()
			if err != nil {
				return fmt.Errorf("failed to check benefit name: %w", err)
			}
			if taken {
				return domain.ErrDuplicateName
			}

			last, err := tx.Get(ctx, keySequence).Int64()
			if err != nil && !errors.Is(err, goredis.Nil) {
				return fmt.Errorf("failed to allocate benefit ID: %w", err)
			}
			id = last + 1

			_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
				pipe.Set(ctx, keySequence, id, 0)
				pipe.HSet(ctx, benefitKey(id), encodeBenefit(&domain.Benefit{
					Name:        benefit.Name,
					Description: benefit.Description,
					Balance:     benefit.Balance,
					Active:      benefit.Active,
					CreatedAt:   now,
					UpdatedAt:   now,
				}))
				pipe.HSet(ctx, keyNames, benefit.Name, id)
				pipe.ZAdd(ctx, keyIDs, goredis.Z{Score: float64(id), Member: id})
				return nil
			})
			return err
		}, keyNames, keySequence)
		if !errors.Is(err, goredis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		if errors.Is(err, goredis.TxFailedErr) {
			return fmt.Errorf("failed to create benefit: %w", domain.ErrVersionMismatch)
		}
		return err
	}

	benefit.ID = id
	benefit.Version = 0
	benefit.CreatedAt = now
	benefit.UpdatedAt = now
	return nil
}

// Update writes the editable fields if benefit.Version is current
func (r *benefitRepository) Update(ctx context.Context, benefit *domain.Benefit) error {
	key := benefitKey(benefit.ID)
	var stored *domain.Benefit

	var err error
	for i := 0; i < watchAttempts; i++ {
		err = r.client.Watch(ctx, func(tx *goredis.Tx) error {
			var err error
			stored, err = r.get(ctx, tx, benefit.ID)
			if err != nil {
				return err
			}
			if stored.Version != benefit.Version {
				return domain.ErrVersionMismatch
			}

			oldName := stored.Name
			if oldName != benefit.Name {
				taken, err := tx.HExists(ctx, keyNames, benefit.Name).Result()
				if err != nil {
					return fmt.Errorf("failed to check benefit name: %w", err)
				}
				if taken {
					return domain.ErrDuplicateName
				}
			}

			stored.Name = benefit.Name
			stored.Description = benefit.Description
			stored.Balance = benefit.Balance
			stored.Active = benefit.Active
			stored.Version++
			stored.UpdatedAt = r.now().UTC()

			_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
				pipe.HSet(ctx, key, encodeBenefit(stored))
				if oldName != stored.Name {
					pipe.HDel(ctx, keyNames, oldName)
					pipe.HSet(ctx, keyNames, stored.Name, stored.ID)
				}
				return nil
			})
			return err
		}, key, keyNames)
		if !errors.Is(err, goredis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		if errors.Is(err, goredis.TxFailedErr) {
			return domain.ErrVersionMismatch
		}
		return err
	}

	benefit.Version = stored.Version
	benefit.CreatedAt = stored.CreatedAt
	benefit.UpdatedAt = stored.UpdatedAt
	return nil
}

// List retrieves benefits, optionally only the active ones
func (r *benefitRepository) List(ctx context.Context, activeOnly bool) ([]*domain.Benefit, error) {
	ids, err := r.client.ZRange(ctx, keyIDs, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list benefit IDs: %w", err)
	}

	benefits := make([]*domain.Benefit, 0, len(ids))
	for _, raw := range ids {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse benefit ID: %w", err)
		}

		b, err := r.get(ctx, r.client, id)
		if err != nil {
			return nil, err
		}
		if activeOnly && !b.Active {
			continue
		}
		benefits = append(benefits, b)
	}

	if activeOnly {
		sort.Slice(benefits, func(i, j int) bool { return benefits[i].Name < benefits[j].Name })
	}
	return benefits, nil
}

// ExistsByName reports whether another benefit already uses name
func (r *benefitRepository) ExistsByName(ctx context.Context, name string, excludeID int64) (bool, error) {
	raw, err := r.client.HGet(ctx, keyNames, name).Result()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check benefit name: %w", err)
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, fmt.Errorf("failed to parse benefit ID: %w", err)
	}
	return id != excludeID, nil
}

func encodeBenefit(b *domain.Benefit) map[string]any {
	active := "0"
	if b.Active {
		active = "1"
	}
	return map[string]any{
		"name":        b.Name,
		"description": b.Description,
		"balance":     b.Balance.String(),
		"active":      active,
		"version":     b.Version,
		"created_at":  b.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updated_at":  b.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func decodeBenefit(id int64, fields map[string]string) (*domain.Benefit, error) {
	b := &domain.Benefit{
		ID:          id,
		Name:        fields["name"],
		Description: fields["description"],
		Active:      fields["active"] == "1",
	}

	var err error
	if b.Balance, err = decimal.NewFromString(fields["balance"]); err != nil {
		return nil, fmt.Errorf("failed to parse balance: %w", err)
	}
	if b.Version, err = strconv.ParseInt(fields["version"], 10, 64); err != nil {
		return nil, fmt.Errorf("failed to parse version: %w", err)
	}
	if b.CreatedAt, err = time.Parse(time.RFC3339Nano, fields["created_at"]); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if b.UpdatedAt, err = time.Parse(time.RFC3339Nano, fields["updated_at"]); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return b, nil
}

var (
	_ domain.BenefitRepository   = (*benefitRepository)(nil)
	_ domain.BalanceBatchUpdater = (*benefitRepository)(nil)
)
