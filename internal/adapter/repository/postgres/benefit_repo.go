package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/simaogato/beneficio-backend/internal/domain"
)

const (
	pqUniqueViolation = "23505"
	pqCheckViolation  = "23514"
)

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// benefitRepository implements domain.BenefitRepository and domain.BalanceBatchUpdater
type benefitRepository struct {
	db *DB
}

// NewBenefitRepository creates a new benefit repository
// The returned value also implements domain.BalanceBatchUpdater
func NewBenefitRepository(db *DB) domain.BenefitRepository {
	return &benefitRepository{db: db}
}

const selectBenefit = `
	SELECT id, name, description, balance, active, version, created_at, updated_at
	FROM benefits
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBenefit(row rowScanner) (*domain.Benefit, error) {
	var b domain.Benefit
	var balanceStr string

	if err := row.Scan(
		&b.ID,
		&b.Name,
		&b.Description,
		&balanceStr,
		&b.Active,
		&b.Version,
		&b.CreatedAt,
		&b.UpdatedAt,
	); err != nil {
		return nil, err
	}

	// Parse balance (NUMERIC)
	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse balance: %w", err)
	}
	b.Balance = balance

	return &b, nil
}

// GetByID retrieves a benefit by its ID
func (r *benefitRepository) GetByID(ctx context.Context, id int64) (*domain.Benefit, error) {
	b, err := scanBenefit(r.db.QueryRowContext(ctx, selectBenefit+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get benefit by ID: %w", err)
	}
	return b, nil
}

// ConditionalUpdate writes the balance if the stored version matches
func (r *benefitRepository) ConditionalUpdate(ctx context.Context, id int64, expectedVersion int64, newBalance decimal.Decimal) (int64, error) {
	return conditionalUpdate(ctx, r.db, id, expectedVersion, newBalance)
}

func conditionalUpdate(ctx context.Context, q querier, id int64, expectedVersion int64, newBalance decimal.Decimal) (int64, error) {
	query := `
		UPDATE benefits
		SET balance = $3, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING version
	`

	var version int64
	err := q.QueryRowContext(ctx, query, id, expectedVersion, newBalance.String()).Scan(&version)
	if err == nil {
		return version, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, mapWriteError("failed to update benefit balance", err)
	}

	// Zero rows: either the benefit is gone or its version moved
	var exists bool
	if err := q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM benefits WHERE id = $1)`, id).Scan(&exists); err != nil {
		return 0, fmt.Errorf("failed to check benefit existence: %w", err)
	}
	if !exists {
		return 0, domain.ErrNotFound
	}
	return 0, domain.ErrVersionMismatch
}

// ConditionalUpdateBatch applies all updates in one database transaction
func (r *benefitRepository) ConditionalUpdateBatch(ctx context.Context, updates []domain.BalanceUpdate) ([]int64, error) {
	// Start a database transaction
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	versions := make([]int64, 0, len(updates))
	for _, u := range updates {
		version, err := conditionalUpdate(ctx, dbTx, u.ID, u.ExpectedVersion, u.NewBalance)
		if err != nil {
			return nil, err
		}
		versions = append(versions, version)
	}

	// Commit the transaction
	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return versions, nil
}

// Create creates a new benefit
func (r *benefitRepository) Create(ctx context.Context, benefit *domain.Benefit) error {
	query := `
		INSERT INTO benefits (name, description, balance, active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, version, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		benefit.Name,
		benefit.Description,
		benefit.Balance.String(),
		benefit.Active,
	).Scan(&benefit.ID, &benefit.Version, &benefit.CreatedAt, &benefit.UpdatedAt)
	if err != nil {
		return mapWriteError("failed to create benefit", err)
	}

	return nil
}

// Update writes the editable fields if benefit.Version is current
func (r *benefitRepository) Update(ctx context.Context, benefit *domain.Benefit) error {
	query := `
		UPDATE benefits
		SET name = $3, description = $4, balance = $5, active = $6,
		    version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING version, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		benefit.ID,
		benefit.Version,
		benefit.Name,
		benefit.Description,
		benefit.Balance.String(),
		benefit.Active,
	).Scan(&benefit.Version, &benefit.UpdatedAt)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return mapWriteError("failed to update benefit", err)
	}

	if _, err := r.GetByID(ctx, benefit.ID); err != nil {
		return err
	}
	return domain.ErrVersionMismatch
}

// List retrieves benefits, optionally only the active ones
func (r *benefitRepository) List(ctx context.Context, activeOnly bool) ([]*domain.Benefit, error) {
	query := selectBenefit + ` ORDER BY id`
	if activeOnly {
		query = selectBenefit + ` WHERE active = TRUE ORDER BY name`
	}

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list benefits: %w", err)
	}
	defer rows.Close()

	var benefits []*domain.Benefit
	for rows.Next() {
		b, err := scanBenefit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan benefit: %w", err)
		}
		benefits = append(benefits, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating benefits: %w", err)
	}

	return benefits, nil
}

// ExistsByName reports whether another benefit already uses name
func (r *benefitRepository) ExistsByName(ctx context.Context, name string, excludeID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM benefits WHERE name = $1 AND id <> $2)`,
		name, excludeID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check benefit name: %w", err)
	}
	return exists, nil
}

// mapWriteError turns constraint violations into domain errors
func mapWriteError(msg string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return domain.ErrDuplicateName
		case pqCheckViolation:
			return fmt.Errorf("%w: %s", domain.ErrValidation, pqErr.Message)
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}

var (
	_ domain.BenefitRepository   = (*benefitRepository)(nil)
	_ domain.BalanceBatchUpdater = (*benefitRepository)(nil)
)
