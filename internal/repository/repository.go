package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/inkdraft/credits/internal/models"
)

type CreateTransactionParams struct {
	UserID   uuid.UUID
	Type     string
	Amount   int64
	Reason   string
	Metadata models.Metadata

	// Set when the transaction reverses another one
	RefundOf *uuid.UUID
}

type SaveIdempotencyKeyParams struct {
	UserID        uuid.UUID
	Key           string
	TransactionID uuid.UUID
	ExpiresAt     time.Time
}

// Balance repository interface
type BalanceRepo interface {
	// Get user balance
	// If no row exists must return apperrors.ErrBalanceNotFound
	GetBalance(ctx context.Context, userID uuid.UUID) (models.Balance, error)

	// Increase balance by amount, creating the row if it does not exist yet
	AddToBalance(ctx context.Context, userID uuid.UUID, amount int64) (models.Balance, error)

	// Decrease balance by amount as a single conditional statement
	// If the row is missing or holds less than amount must return
	// apperrors.ErrBalanceInsufficient and change nothing
	SubtractFromBalance(ctx context.Context, userID uuid.UUID, amount int64) (models.Balance, error)
}

// Transaction repository interface
// Transactions are append only: there are no update or delete methods
type TransactionRepo interface {
	// Append transaction to the log
	// If params reference an already refunded transaction must return
	// apperrors.ErrAlreadyRefunded
	CreateTransaction(ctx context.Context, arg CreateTransactionParams) (models.Transaction, error)

	// Get transaction by id
	// If not found must return apperrors.ErrTransactionNotFound
	GetTransactionByID(ctx context.Context, id uuid.UUID) (models.Transaction, error)

	// List user transactions newest first, ties broken by id
	// Returns the total number of user transactions alongside the page
	ListTransactions(ctx context.Context, userID uuid.UUID, limit int, offset int) ([]models.Transaction, int64, error)

	// Sum earn and spend amounts over the whole log for the user
	SumByType(ctx context.Context, userID uuid.UUID) (earned int64, spent int64, err error)
}

// Idempotency key repository interface
type IdempotencyRepo interface {
	// Save key for the user
	// If the key was saved before must return apperrors.ErrIdempotencyKeyExists
	SaveKey(ctx context.Context, arg SaveIdempotencyKeyParams) error

	// Get previously saved key
	// If not found must return apperrors.ErrIdempotencyKeyNotFound
	GetKey(ctx context.Context, userID uuid.UUID, key string) (models.IdempotencyKey, error)

	// Delete keys that expired before now, returns the number of deleted rows
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type Storage interface {
	Balance() BalanceRepo
	Transaction() TransactionRepo
	Idempotency() IdempotencyRepo

	// Run fn within a single database transaction
	// The storage passed to fn shares that transaction, so every repo
	// call inside commits or rolls back as one unit
	InTx(ctx context.Context, fn func(Storage) error) error
}
