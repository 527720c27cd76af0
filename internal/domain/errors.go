package domain

import "errors"

var (
	ErrNotFound        = errors.New("benefit not found")
	ErrVersionMismatch = errors.New("benefit version mismatch")
	ErrDuplicateName   = errors.New("benefit name already exists")
	ErrValidation      = errors.New("validation failed")
)
