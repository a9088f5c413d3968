package apperrors

import (
	"errors"
)

var (
	ErrAmountNotPositive = errors.New("amount must be a positive integer")
	ErrReasonRequired    = errors.New("reason must not be empty")
	ErrMetadataInvalid   = errors.New("metadata values must be primitives")

	ErrBalanceNotFound     = errors.New("balance not found")
	ErrBalanceInsufficient = errors.New("insufficient balance")

	ErrTransactionNotFound = errors.New("transaction not found")
	ErrAlreadyRefunded     = errors.New("transaction already refunded")

	ErrIdempotencyKeyExists   = errors.New("idempotency key already used")
	ErrIdempotencyKeyNotFound = errors.New("idempotency key not found")

	ErrTokenInvalid = errors.New("access token invalid")
)
