package postgres

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/inkdraft/credits/internal/apperrors"
	"github.com/inkdraft/credits/internal/models"
	"github.com/inkdraft/credits/internal/repository"
	"github.com/inkdraft/credits/internal/testutil"
)

func TestTransaction(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	inTx := func(t *testing.T, fn func(storage repository.Storage)) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			fn(NewStorage(tx))
		})
	}

	t.Run("CreateTransaction", func(t *testing.T) {
		t.Run("create ok", func(t *testing.T) {
			inTx(t, func(storage repository.Storage) {
				userID := uuid.New()

				tr, err := storage.Transaction().CreateTransaction(t.Context(), repository.CreateTransactionParams{
					UserID:   userID,
					Type:     models.TransactionTypeEarn,
					Amount:   300,
					Reason:   models.ReasonBookCreation,
					Metadata: models.Metadata{"bookId": "42", "autoGranted": true},
				})

				require.NoError(t, err, "transaction has to be created ok")
				require.NotEqual(t, uuid.Nil, tr.ID, "id should be generated")
				require.Equal(t, userID, tr.UserID)
				require.Equal(t, models.TransactionTypeEarn, tr.Type)
				require.Equal(t, int64(300), tr.Amount)
				require.Equal(t, models.ReasonBookCreation, tr.Reason)
				require.Equal(t, "42", tr.Metadata["bookId"], "metadata should round trip")
				require.Equal(t, true, tr.Metadata["autoGranted"])
				require.Nil(t, tr.RefundOf)
				require.NotZero(t, tr.CreatedAt)
			})
		})

		t.Run("nil metadata stored as empty map", func(t *testing.T) {
			inTx(t, func(storage repository.Storage) {
				tr, err := storage.Transaction().CreateTransaction(t.Context(), repository.CreateTransactionParams{
					UserID: uuid.New(),
					Type:   models.TransactionTypeEarn,
					Amount: 1,
					Reason: "X",
				})

				require.NoError(t, err)
				require.NotNil(t, tr.Metadata)
				require.Empty(t, tr.Metadata)
			})
		})

		t.Run("refund referenced at most once", func(t *testing.T) {
			inTx(t, func(storage repository.Storage) {
				userID := uuid.New()

				original, err := storage.Transaction().CreateTransaction(t.Context(), repository.CreateTransactionParams{
					UserID: userID,
					Type:   models.TransactionTypeSpend,
					Amount: 50,
					Reason: models.ReasonPublishEpub,
				})
				require.NoError(t, err)

				refund := repository.CreateTransactionParams{
					UserID:   userID,
					Type:     models.TransactionTypeEarn,
					Amount:   50,
					Reason:   models.ReasonRefund,
					RefundOf: &original.ID,
				}

				first, err := storage.Transaction().CreateTransaction(t.Context(), refund)
				require.NoError(t, err, "first refund should be created ok")
				require.NotNil(t, first.RefundOf)
				require.Equal(t, original.ID, *first.RefundOf)

				_, err = storage.Transaction().CreateTransaction(t.Context(), refund)
				require.ErrorIs(t, err, apperrors.ErrAlreadyRefunded, "second refund of same transaction should fail")
			})
		})
	})

	t.Run("GetTransactionByID", func(t *testing.T) {
		t.Run("not found", func(t *testing.T) {
			inTx(t, func(storage repository.Storage) {
				_, err := storage.Transaction().GetTransactionByID(t.Context(), uuid.New())

				require.ErrorIs(t, err, apperrors.ErrTransactionNotFound)
			})
		})

		t.Run("found", func(t *testing.T) {
			inTx(t, func(storage repository.Storage) {
				created, err := storage.Transaction().CreateTransaction(t.Context(), repository.CreateTransactionParams{
					UserID: uuid.New(),
					Type:   models.TransactionTypeEarn,
					Amount: 10,
					Reason: "X",
				})
				require.NoError(t, err)

				got, err := storage.Transaction().GetTransactionByID(t.Context(), created.ID)

				require.NoError(t, err)
				require.Equal(t, created.ID, got.ID)
				require.Equal(t, created.Amount, got.Amount)
			})
		})
	})

	t.Run("ListTransactions", func(t *testing.T) {
		inTx(t, func(storage repository.Storage) {
			userID := uuid.New()

			var ids []uuid.UUID
			for range 3 {
				tr, err := storage.Transaction().CreateTransaction(t.Context(), repository.CreateTransactionParams{
					UserID: userID,
					Type:   models.TransactionTypeEarn,
					Amount: 10,
					Reason: "X",
				})
				require.NoError(t, err)
				ids = append(ids, tr.ID)
			}

			// Other user's transaction should not leak into the list
			_, err := storage.Transaction().CreateTransaction(t.Context(), repository.CreateTransactionParams{
				UserID: uuid.New(),
				Type:   models.TransactionTypeEarn,
				Amount: 10,
				Reason: "X",
			})
			require.NoError(t, err)

			t.Run("newest first with total", func(t *testing.T) {
				transactions, total, err := storage.Transaction().ListTransactions(t.Context(), userID, 10, 0)

				require.NoError(t, err)
				require.Equal(t, int64(3), total)
				require.Len(t, transactions, 3)
				for _, tr := range transactions {
					require.Equal(t, userID, tr.UserID)
				}
				for i := 1; i < len(transactions); i++ {
					prev, cur := transactions[i-1], transactions[i]
					ordered := prev.CreatedAt.After(cur.CreatedAt) ||
						(prev.CreatedAt.Equal(cur.CreatedAt) && prev.ID.String() > cur.ID.String())
					require.True(t, ordered, "transactions should be ordered newest first, ties by id")
				}
			})

			t.Run("offset pagination", func(t *testing.T) {
				transactions, total, err := storage.Transaction().ListTransactions(t.Context(), userID, 2, 2)

				require.NoError(t, err)
				require.Equal(t, int64(3), total)
				require.Len(t, transactions, 1, "offset past the first page should leave one row")
			})

			t.Run("zero limit returns total only", func(t *testing.T) {
				transactions, total, err := storage.Transaction().ListTransactions(t.Context(), userID, 0, 0)

				require.NoError(t, err)
				require.Equal(t, int64(3), total)
				require.Empty(t, transactions)
			})
		})
	})

	t.Run("SumByType", func(t *testing.T) {
		t.Run("empty log sums to zero", func(t *testing.T) {
			inTx(t, func(storage repository.Storage) {
				earned, spent, err := storage.Transaction().SumByType(t.Context(), uuid.New())

				require.NoError(t, err)
				require.Equal(t, int64(0), earned)
				require.Equal(t, int64(0), spent)
			})
		})

		t.Run("sums per type", func(t *testing.T) {
			inTx(t, func(storage repository.Storage) {
				userID := uuid.New()

				for _, arg := range []repository.CreateTransactionParams{
					{UserID: userID, Type: models.TransactionTypeEarn, Amount: 300, Reason: "X"},
					{UserID: userID, Type: models.TransactionTypeEarn, Amount: 100, Reason: "X"},
					{UserID: userID, Type: models.TransactionTypeSpend, Amount: 150, Reason: "X"},
				} {
					_, err := storage.Transaction().CreateTransaction(t.Context(), arg)
					require.NoError(t, err)
				}

				earned, spent, err := storage.Transaction().SumByType(t.Context(), userID)

				require.NoError(t, err)
				require.Equal(t, int64(400), earned)
				require.Equal(t, int64(150), spent)
			})
		})
	})
}
