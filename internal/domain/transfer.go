package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransferRequest represents an intent to move an amount between two benefits
// It is created per call and never persisted
type TransferRequest struct {
	OriginID      int64
	DestinationID int64
	Amount        decimal.Decimal
}

// Validate checks the request shape before any repository access
// Same-endpoint is reported before a non-positive amount
func (r TransferRequest) Validate() error {
	if r.OriginID == r.DestinationID {
		return NewInvalidRequest("same endpoint")
	}

	if !r.Amount.IsPositive() {
		return NewInvalidRequest("non-positive amount")
	}

	if !IsMoneyScale(r.Amount) {
		return NewInvalidRequest(fmt.Sprintf("amount %s has more than %d decimal places", r.Amount.String(), MoneyScale))
	}

	return nil
}

// TransferEndpoint is the before/after view of one side of a committed transfer
type TransferEndpoint struct {
	ID            int64
	Name          string
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	Version       int64
}

// TransferResult summarizes a committed transfer
// It is a derived report, not a ledger entry
type TransferResult struct {
	TransactionID uuid.UUID
	OriginID      int64
	DestinationID int64
	Amount        decimal.Decimal
	Timestamp     time.Time
	Origin        TransferEndpoint
	Destination   TransferEndpoint
}

// BalanceUpdate is one conditional balance write
type BalanceUpdate struct {
	ID              int64
	ExpectedVersion int64
	NewBalance      decimal.Decimal
}
