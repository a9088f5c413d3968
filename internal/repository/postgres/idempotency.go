package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/inkdraft/credits/internal/apperrors"
	"github.com/inkdraft/credits/internal/models"
	"github.com/inkdraft/credits/internal/repository"
)

type IdempotencyRepo struct {
	DB DBTX
}

// An expired row still occupies the (user_id, key) slot until the sweeper
// removes it, so the insert reclaims such rows instead of failing on them
const saveKey = `-- name: SaveKey
INSERT INTO idempotency_keys (user_id, key, transaction_id, created_at, expires_at)
VALUES ($1, $2, $3, now(), $4)
ON CONFLICT (user_id, key) DO UPDATE
SET transaction_id = EXCLUDED.transaction_id, created_at = now(), expires_at = EXCLUDED.expires_at
WHERE idempotency_keys.expires_at <= now()
`

func (r *IdempotencyRepo) SaveKey(ctx context.Context, arg repository.SaveIdempotencyKeyParams) error {
	tag, err := r.DB.Exec(ctx, saveKey, arg.UserID, arg.Key, arg.TransactionID, arg.ExpiresAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	// Nothing inserted or updated means the key is held by a live row
	if tag.RowsAffected() == 0 {
		return apperrors.ErrIdempotencyKeyExists
	}

	return nil
}

const getKey = `-- name: GetKey
SELECT user_id, key, transaction_id, created_at, expires_at
FROM idempotency_keys
WHERE user_id = $1 AND key = $2 AND expires_at > now()
`

func (r *IdempotencyRepo) GetKey(ctx context.Context, userID uuid.UUID, key string) (models.IdempotencyKey, error) {
	rows, _ := r.DB.Query(ctx, getKey, userID, key)
	k, err := pgx.CollectOneRow(rows, func(row pgx.CollectableRow) (models.IdempotencyKey, error) {
		var k models.IdempotencyKey
		err := row.Scan(&k.UserID, &k.Key, &k.TransactionID, &k.CreatedAt, &k.ExpiresAt)
		return k, err
	})

	switch {
	case err == nil:
		return k, nil
	case errors.Is(err, pgx.ErrNoRows):
		return k, apperrors.ErrIdempotencyKeyNotFound
	default:
		return k, fmt.Errorf("db error: %w", err)
	}
}

const deleteExpired = `-- name: DeleteExpired
DELETE FROM idempotency_keys
WHERE expires_at <= $1
`

func (r *IdempotencyRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.DB.Exec(ctx, deleteExpired, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return tag.RowsAffected(), nil
}
