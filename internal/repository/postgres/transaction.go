package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/inkdraft/credits/internal/apperrors"
	"github.com/inkdraft/credits/internal/models"
	"github.com/inkdraft/credits/internal/repository"
)

type TransactionRepo struct {
	DB DBTX
}

const createTransaction = `-- name: CreateTransaction
INSERT INTO transactions (id, user_id, type, amount, reason, metadata, refund_of, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
RETURNING id, user_id, type, amount, reason, metadata, refund_of, created_at, updated_at
`

func (r *TransactionRepo) CreateTransaction(ctx context.Context, arg repository.CreateTransactionParams) (models.Transaction, error) {
	now := time.Now()

	metadata := arg.Metadata
	if metadata == nil {
		metadata = models.Metadata{}
	}

	rows, _ := r.DB.Query(ctx, createTransaction,
		uuid.New(), arg.UserID, arg.Type, arg.Amount, arg.Reason, metadata, arg.RefundOf, now,
	)
	t, err := pgx.CollectOneRow(rows, rowToTransaction)

	if err != nil {
		var pgErr *pgconn.PgError
		// The partial unique index on refund_of makes "refund once" structural
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation && pgErr.ConstraintName == "transactions_refund_of_key" {
			return t, apperrors.ErrAlreadyRefunded
		}

		return t, fmt.Errorf("db error: %w", err)
	}

	return t, nil
}

const getTransactionByID = `-- name: GetTransactionByID
SELECT id, user_id, type, amount, reason, metadata, refund_of, created_at, updated_at
FROM transactions
WHERE id = $1
`

func (r *TransactionRepo) GetTransactionByID(ctx context.Context, id uuid.UUID) (models.Transaction, error) {
	rows, _ := r.DB.Query(ctx, getTransactionByID, id)
	t, err := pgx.CollectOneRow(rows, rowToTransaction)

	switch {
	case err == nil:
		return t, nil
	case errors.Is(err, pgx.ErrNoRows):
		return t, apperrors.ErrTransactionNotFound
	default:
		return t, fmt.Errorf("db error: %w", err)
	}
}

// Newest first, id breaks created_at ties so pagination is stable
const listTransactions = `-- name: ListTransactions
SELECT id, user_id, type, amount, reason, metadata, refund_of, created_at, updated_at
FROM transactions
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3
`

const countTransactions = `-- name: CountTransactions
SELECT count(*) FROM transactions
WHERE user_id = $1
`

func (r *TransactionRepo) ListTransactions(ctx context.Context, userID uuid.UUID, limit int, offset int) ([]models.Transaction, int64, error) {
	var total int64
	err := r.DB.QueryRow(ctx, countTransactions, userID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	rows, _ := r.DB.Query(ctx, listTransactions, userID, limit, offset)
	transactions, err := pgx.CollectRows(rows, rowToTransaction)
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	return transactions, total, nil
}

const sumByType = `-- name: SumByType
SELECT
	COALESCE(SUM(amount) FILTER (WHERE type = 'earn'), 0),
	COALESCE(SUM(amount) FILTER (WHERE type = 'spend'), 0)
FROM transactions
WHERE user_id = $1
`

func (r *TransactionRepo) SumByType(ctx context.Context, userID uuid.UUID) (earned int64, spent int64, err error) {
	err = r.DB.QueryRow(ctx, sumByType, userID).Scan(&earned, &spent)
	if err != nil {
		return 0, 0, fmt.Errorf("db error: %w", err)
	}

	return earned, spent, nil
}

func rowToTransaction(row pgx.CollectableRow) (models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount, &t.Reason, &t.Metadata, &t.RefundOf, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}
