package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/inkdraft/credits/internal/apperrors"
	"github.com/inkdraft/credits/internal/models"
)

type BalanceRepo struct {
	DB DBTX
}

const getBalance = `-- name: GetBalance
SELECT user_id, balance, updated_at FROM balances
WHERE user_id = $1
`

func (r *BalanceRepo) GetBalance(ctx context.Context, userID uuid.UUID) (models.Balance, error) {
	rows, _ := r.DB.Query(ctx, getBalance, userID)
	balance, err := pgx.CollectOneRow(rows, rowToBalance)

	switch {
	case err == nil:
		return balance, nil
	case errors.Is(err, pgx.ErrNoRows):
		return balance, apperrors.ErrBalanceNotFound
	default:
		return balance, fmt.Errorf("db error: %w", err)
	}
}

// Balance row is created lazily on the first earn
const addToBalance = `-- name: AddToBalance
INSERT INTO balances (user_id, balance, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (user_id) DO UPDATE
SET balance = balances.balance + EXCLUDED.balance, updated_at = now()
RETURNING user_id, balance, updated_at
`

func (r *BalanceRepo) AddToBalance(ctx context.Context, userID uuid.UUID, amount int64) (models.Balance, error) {
	rows, _ := r.DB.Query(ctx, addToBalance, userID, amount)
	balance, err := pgx.CollectOneRow(rows, rowToBalance)
	if err != nil {
		return balance, fmt.Errorf("db error: %w", err)
	}

	return balance, nil
}

// Conditional single statement decrement: two racing spends can not
// both pass the balance check, the losing one simply matches no row
const subtractFromBalance = `-- name: SubtractFromBalance
UPDATE balances
SET balance = balance - $2, updated_at = now()
WHERE user_id = $1 AND balance >= $2
RETURNING user_id, balance, updated_at
`

func (r *BalanceRepo) SubtractFromBalance(ctx context.Context, userID uuid.UUID, amount int64) (models.Balance, error) {
	rows, _ := r.DB.Query(ctx, subtractFromBalance, userID, amount)
	balance, err := pgx.CollectOneRow(rows, rowToBalance)

	switch {
	case err == nil:
		return balance, nil
	case errors.Is(err, pgx.ErrNoRows):
		// Missing row means zero balance, so both cases are the same condition
		return balance, apperrors.ErrBalanceInsufficient
	default:
		return balance, fmt.Errorf("db error: %w", err)
	}
}

func rowToBalance(row pgx.CollectableRow) (models.Balance, error) {
	var b models.Balance
	err := row.Scan(&b.UserID, &b.Balance, &b.UpdatedAt)
	return b, err
}
