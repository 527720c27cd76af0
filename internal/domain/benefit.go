package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	NameMinLength        = 3
	NameMaxLength        = 100
	DescriptionMaxLength = 500

	// MoneyScale is the number of decimal places balances and amounts are stored with
	MoneyScale = 2
)

// IsMoneyScale reports whether d fits in MoneyScale decimal places; trailing zeros do not count
func IsMoneyScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(MoneyScale))
}

// Benefit represents a benefit entity in the domain layer
// Balance is the only financial field; Version drives optimistic concurrency
type Benefit struct {
	ID          int64
	Name        string
	Description string
	Balance     decimal.Decimal
	Active      bool
	Version     int64 // incremented by exactly 1 on every committed mutation
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate ensures the benefit adheres to domain rules
// Returns an error wrapping ErrValidation if validation fails
func (b *Benefit) Validate() error {
	name := strings.TrimSpace(b.Name)
	if name == "" {
		return fmt.Errorf("%w: benefit name cannot be empty", ErrValidation)
	}

	if n := utf8.RuneCountInString(name); n < NameMinLength || n > NameMaxLength {
		return fmt.Errorf("%w: benefit name must be between %d and %d characters", ErrValidation, NameMinLength, NameMaxLength)
	}

	if utf8.RuneCountInString(b.Description) > DescriptionMaxLength {
		return fmt.Errorf("%w: benefit description must be at most %d characters", ErrValidation, DescriptionMaxLength)
	}

	if b.Balance.IsNegative() {
		return fmt.Errorf("%w: benefit balance cannot be negative", ErrValidation)
	}

	if !IsMoneyScale(b.Balance) {
		return fmt.Errorf("%w: benefit balance must have at most %d decimal places", ErrValidation, MoneyScale)
	}

	return nil
}

// Clone returns a copy that can be handed out without sharing state
func (b *Benefit) Clone() *Benefit {
	c := *b
	return &c
}
