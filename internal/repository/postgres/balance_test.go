package postgres

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/inkdraft/credits/internal/apperrors"
	"github.com/inkdraft/credits/internal/repository"
	"github.com/inkdraft/credits/internal/testutil"
)

func TestBalance(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	inTx := func(t *testing.T, fn func(storage repository.Storage)) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			fn(NewStorage(tx))
		})
	}

	t.Run("AddToBalance", func(t *testing.T) {
		t.Run("creates row lazily", func(t *testing.T) {
			inTx(t, func(storage repository.Storage) {
				userID := uuid.New()

				balance, err := storage.Balance().AddToBalance(t.Context(), userID, 100)

				require.NoError(t, err, "first add should create the balance row")
				require.Equal(t, userID, balance.UserID)
				require.Equal(t, int64(100), balance.Balance)
				require.NotZero(t, balance.UpdatedAt, "updated at should be set")
			})
		})

		t.Run("adds to existing row", func(t *testing.T) {
			inTx(t, func(storage repository.Storage) {
				userID := uuid.New()

				_, err := storage.Balance().AddToBalance(t.Context(), userID, 100)
				require.NoError(t, err)

				balance, err := storage.Balance().AddToBalance(t.Context(), userID, 50)

				require.NoError(t, err)
				require.Equal(t, int64(150), balance.Balance)

				stored, err := storage.Balance().GetBalance(t.Context(), userID)
				require.NoError(t, err)
				require.Equal(t, int64(150), stored.Balance, "stored balance should match returned one")
			})
		})
	})

	t.Run("GetBalance", func(t *testing.T) {
		t.Run("missing row", func(t *testing.T) {
			inTx(t, func(storage repository.Storage) {
				_, err := storage.Balance().GetBalance(t.Context(), uuid.New())

				require.Error(t, err, "getting nonexistent balance should fail")
				require.ErrorIs(t, err, apperrors.ErrBalanceNotFound, "should return well known error")
			})
		})
	})

	t.Run("SubtractFromBalance", func(t *testing.T) {
		t.Run("subtract ok", func(t *testing.T) {
			inTx(t, func(storage repository.Storage) {
				userID := uuid.New()

				_, err := storage.Balance().AddToBalance(t.Context(), userID, 100)
				require.NoError(t, err)

				balance, err := storage.Balance().SubtractFromBalance(t.Context(), userID, 70)

				require.NoError(t, err, "subtracting within balance should not fail")
				require.Equal(t, int64(30), balance.Balance)
			})
		})

		t.Run("subtract to exactly zero", func(t *testing.T) {
			inTx(t, func(storage repository.Storage) {
				userID := uuid.New()

				_, err := storage.Balance().AddToBalance(t.Context(), userID, 100)
				require.NoError(t, err)

				balance, err := storage.Balance().SubtractFromBalance(t.Context(), userID, 100)

				require.NoError(t, err)
				require.Equal(t, int64(0), balance.Balance)
			})
		})

		t.Run("insufficient balance", func(t *testing.T) {
			inTx(t, func(storage repository.Storage) {
				userID := uuid.New()

				_, err := storage.Balance().AddToBalance(t.Context(), userID, 100)
				require.NoError(t, err)

				_, err = storage.Balance().SubtractFromBalance(t.Context(), userID, 101)

				require.ErrorIs(t, err, apperrors.ErrBalanceInsufficient)

				stored, err := storage.Balance().GetBalance(t.Context(), userID)
				require.NoError(t, err)
				require.Equal(t, int64(100), stored.Balance, "failed subtract should leave balance unchanged")
			})
		})

		t.Run("missing row means zero balance", func(t *testing.T) {
			inTx(t, func(storage repository.Storage) {
				_, err := storage.Balance().SubtractFromBalance(t.Context(), uuid.New(), 1)

				require.ErrorIs(t, err, apperrors.ErrBalanceInsufficient)
			})
		})
	})
}
