package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/inkdraft/credits/internal/apperrors"
	"github.com/inkdraft/credits/internal/logger"
	"github.com/inkdraft/credits/internal/models"
	"github.com/inkdraft/credits/internal/repository"
	"github.com/inkdraft/credits/internal/repository/postgres"
	"github.com/inkdraft/credits/internal/testutil"
)

func TestSweeper(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	storage := postgres.NewStorage(pg.Pool)

	saveKey := func(t *testing.T, userID uuid.UUID, key string, expiresAt time.Time) {
		t.Helper()

		tr, err := storage.Transaction().CreateTransaction(t.Context(), repository.CreateTransactionParams{
			UserID: userID,
			Type:   models.TransactionTypeEarn,
			Amount: 1,
			Reason: "X",
		})
		require.NoError(t, err)

		err = storage.Idempotency().SaveKey(t.Context(), repository.SaveIdempotencyKeyParams{
			UserID:        userID,
			Key:           key,
			TransactionID: tr.ID,
			ExpiresAt:     expiresAt,
		})
		require.NoError(t, err)
	}

	t.Run("removes expired keys and stops on cancel", func(t *testing.T) {
		userID := uuid.New()
		saveKey(t, userID, "expired", time.Now().Add(-time.Minute))
		saveKey(t, userID, "alive", time.Now().Add(time.Hour))

		ctx, cancel := context.WithCancel(t.Context())
		sweeper := NewSweeper(10*time.Millisecond, storage, logger.NewNoOpLogger())
		stopped := sweeper.Run(ctx)

		require.Eventually(t, func() bool {
			_, err := storage.Idempotency().GetKey(t.Context(), userID, "expired")
			return errors.Is(err, apperrors.ErrIdempotencyKeyNotFound)
		}, 5*time.Second, 20*time.Millisecond, "expired key should be swept")

		_, err := storage.Idempotency().GetKey(t.Context(), userID, "alive")
		require.NoError(t, err, "alive key should survive the sweep")

		cancel()
		select {
		case <-stopped:
		case <-time.After(5 * time.Second):
			t.Fatal("sweeper did not stop after context cancellation")
		}

		// The expired row itself must be gone, not only filtered by GetKey
		deleted, err := storage.Idempotency().DeleteExpired(t.Context(), time.Now())
		require.NoError(t, err)
		require.Equal(t, int64(0), deleted, "sweeper should have already deleted expired rows")
	})

	t.Run("default interval applied", func(t *testing.T) {
		sweeper := NewSweeper(0, storage, logger.NewNoOpLogger())

		require.Equal(t, defaultSweepInterval, sweeper.interval)
	})
}
