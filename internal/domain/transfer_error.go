package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// FailureKind classifies why a transfer did not commit
type FailureKind string

const (
	FailureInvalidRequest    FailureKind = "INVALID_REQUEST"
	FailureNotFound          FailureKind = "NOT_FOUND"
	FailureInvalidState      FailureKind = "INVALID_STATE"
	FailureInsufficientFunds FailureKind = "INSUFFICIENT_FUNDS"
	FailureConflict          FailureKind = "CONFLICT"
	FailureInconsistent      FailureKind = "INCONSISTENT"
)

// Retryable reports whether the caller may resubmit the same request unchanged
func (k FailureKind) Retryable() bool {
	return k == FailureConflict
}

// TransferError is the structured failure returned by the transfer engine
type TransferError struct {
	Kind      FailureKind
	Message   string
	BenefitID int64
	Available decimal.Decimal
	Requested decimal.Decimal
	Err       error
}

// Sentinels for errors.Is checks; they match any TransferError of the same kind
var (
	ErrInvalidRequest    = &TransferError{Kind: FailureInvalidRequest, Message: "invalid transfer request"}
	ErrTransferNotFound  = &TransferError{Kind: FailureNotFound, Message: "transfer endpoint not found"}
	ErrInvalidState      = &TransferError{Kind: FailureInvalidState, Message: "inactive endpoint"}
	ErrInsufficientFunds = &TransferError{Kind: FailureInsufficientFunds, Message: "insufficient funds"}
	ErrConflict          = &TransferError{Kind: FailureConflict, Message: "concurrent modification"}
	ErrInconsistent      = &TransferError{Kind: FailureInconsistent, Message: "partial transfer could not be compensated"}
)

func (e *TransferError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// Is matches on kind so callers can compare against the package sentinels
func (e *TransferError) Is(target error) bool {
	t, ok := target.(*TransferError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the failure kind carried by err, or "" if err is not a TransferError
func KindOf(err error) FailureKind {
	var te *TransferError
	if errors.As(err, &te) {
		return te.Kind
	}
	return ""
}

func NewInvalidRequest(reason string) *TransferError {
	return &TransferError{
		Kind:    FailureInvalidRequest,
		Message: "invalid transfer request: " + reason,
	}
}

func NewTransferNotFound(id int64, cause error) *TransferError {
	return &TransferError{
		Kind:      FailureNotFound,
		Message:   fmt.Sprintf("benefit %d not found", id),
		BenefitID: id,
		Err:       cause,
	}
}

// NewInvalidState reports an inactive endpoint; role is "origin" or "destination"
func NewInvalidState(id int64, role string) *TransferError {
	return &TransferError{
		Kind:      FailureInvalidState,
		Message:   fmt.Sprintf("inactive endpoint: %s benefit %d is not active", role, id),
		BenefitID: id,
	}
}

func NewInsufficientFunds(id int64, available, requested decimal.Decimal) *TransferError {
	return &TransferError{
		Kind:      FailureInsufficientFunds,
		Message:   fmt.Sprintf("insufficient funds in benefit %d: available %s, requested %s", id, available.String(), requested.String()),
		BenefitID: id,
		Available: available,
		Requested: requested,
	}
}

func NewConflict(attempts int, cause error) *TransferError {
	return &TransferError{
		Kind:    FailureConflict,
		Message: fmt.Sprintf("transfer aborted after %d attempts due to concurrent modification", attempts),
		Err:     cause,
	}
}

// NewInconsistent reports a partial write that could not be undone
// Manual reconciliation of the origin benefit may be required
func NewInconsistent(originID int64, amount decimal.Decimal, cause error) *TransferError {
	return &TransferError{
		Kind:      FailureInconsistent,
		Message:   fmt.Sprintf("origin benefit %d was debited %s but compensation failed", originID, amount.String()),
		BenefitID: originID,
		Requested: amount,
		Err:       cause,
	}
}
