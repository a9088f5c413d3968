package query

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/inkdraft/credits/internal/models"
	"github.com/inkdraft/credits/internal/repository"
	"github.com/inkdraft/credits/internal/repository/postgres"
	"github.com/inkdraft/credits/internal/testutil"
)

func TestQuery(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	inTx := func(t *testing.T, fn func(s *QueryService, storage repository.Storage)) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)
			fn(NewService(storage), storage)
		})
	}

	createTransaction := func(t *testing.T, storage repository.Storage, userID uuid.UUID, txType string, amount int64) models.Transaction {
		t.Helper()
		tr, err := storage.Transaction().CreateTransaction(t.Context(), repository.CreateTransactionParams{
			UserID: userID,
			Type:   txType,
			Amount: amount,
			Reason: "X",
		})
		require.NoError(t, err)
		return tr
	}

	t.Run("GetBalance", func(t *testing.T) {
		t.Run("unknown user has zero balance", func(t *testing.T) {
			inTx(t, func(s *QueryService, _ repository.Storage) {
				userID := uuid.New()

				balance, err := s.GetBalance(t.Context(), userID)

				require.NoError(t, err, "absence means zero, not an error")
				require.Equal(t, userID, balance.UserID)
				require.Equal(t, int64(0), balance.Balance)
			})
		})

		t.Run("existing balance returned", func(t *testing.T) {
			inTx(t, func(s *QueryService, storage repository.Storage) {
				userID := uuid.New()
				_, err := storage.Balance().AddToBalance(t.Context(), userID, 300)
				require.NoError(t, err)

				balance, err := s.GetBalance(t.Context(), userID)

				require.NoError(t, err)
				require.Equal(t, int64(300), balance.Balance)
				require.NotZero(t, balance.UpdatedAt)
			})
		})
	})

	t.Run("GetTransactionHistory", func(t *testing.T) {
		t.Run("single earn single row", func(t *testing.T) {
			inTx(t, func(s *QueryService, storage repository.Storage) {
				userID := uuid.New()
				createTransaction(t, storage, userID, models.TransactionTypeEarn, 1000)

				history, err := s.GetTransactionHistory(t.Context(), userID, 10, 0)

				require.NoError(t, err)
				require.Len(t, history.Transactions, 1)
				require.Equal(t, int64(1), history.Pagination.Total)
				require.False(t, history.Pagination.HasMore)
			})
		})

		t.Run("limit clamped to maximum", func(t *testing.T) {
			inTx(t, func(s *QueryService, _ repository.Storage) {
				history, err := s.GetTransactionHistory(t.Context(), uuid.New(), 100500, 0)

				require.NoError(t, err)
				require.Equal(t, maxHistoryLimit, history.Pagination.Limit)
			})
		})

		t.Run("zero limit returns empty page with total", func(t *testing.T) {
			inTx(t, func(s *QueryService, storage repository.Storage) {
				userID := uuid.New()
				createTransaction(t, storage, userID, models.TransactionTypeEarn, 10)
				createTransaction(t, storage, userID, models.TransactionTypeSpend, 5)

				history, err := s.GetTransactionHistory(t.Context(), userID, 0, 0)

				require.NoError(t, err)
				require.Empty(t, history.Transactions)
				require.Equal(t, int64(2), history.Pagination.Total)
				require.True(t, history.Pagination.HasMore)
			})
		})

		t.Run("has more pages", func(t *testing.T) {
			inTx(t, func(s *QueryService, storage repository.Storage) {
				userID := uuid.New()
				for range 3 {
					createTransaction(t, storage, userID, models.TransactionTypeEarn, 10)
				}

				history, err := s.GetTransactionHistory(t.Context(), userID, 2, 0)

				require.NoError(t, err)
				require.Len(t, history.Transactions, 2)
				require.True(t, history.Pagination.HasMore)

				history, err = s.GetTransactionHistory(t.Context(), userID, 2, 2)

				require.NoError(t, err)
				require.Len(t, history.Transactions, 1)
				require.False(t, history.Pagination.HasMore)
			})
		})

		t.Run("negative values treated as zero", func(t *testing.T) {
			inTx(t, func(s *QueryService, _ repository.Storage) {
				history, err := s.GetTransactionHistory(t.Context(), uuid.New(), -1, -10)

				require.NoError(t, err)
				require.Equal(t, 0, history.Pagination.Limit)
				require.Equal(t, 0, history.Pagination.Offset)
			})
		})
	})

	t.Run("GetCreditSummary", func(t *testing.T) {
		inTx(t, func(s *QueryService, storage repository.Storage) {
			userID := uuid.New()
			createTransaction(t, storage, userID, models.TransactionTypeEarn, 300)
			createTransaction(t, storage, userID, models.TransactionTypeEarn, 200)
			createTransaction(t, storage, userID, models.TransactionTypeSpend, 150)

			summary, err := s.GetCreditSummary(t.Context(), userID)

			require.NoError(t, err)
			require.Equal(t, int64(500), summary.TotalEarned)
			require.Equal(t, int64(150), summary.TotalSpent)
		})
	})
}
