package e2e

import (
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stretchr/testify/require"

	"github.com/inkdraft/credits/internal/handlers"
	"github.com/inkdraft/credits/internal/logger"
	"github.com/inkdraft/credits/internal/repository"
	"github.com/inkdraft/credits/internal/repository/postgres"
	"github.com/inkdraft/credits/internal/service/auth/tokenmanager"
	"github.com/inkdraft/credits/internal/service/ledger"
	"github.com/inkdraft/credits/internal/service/query"
	"github.com/inkdraft/credits/internal/testutil"
)

type Services struct {
	Storage      repository.Storage
	Ledger       *ledger.LedgerService
	Query        *query.QueryService
	TokenManager *tokenmanager.TokenManager
}

// Create db transaction and run server with that connection (one connection cause one transaction)
// The created transaction passed to inner function: so, you can safely use testutil.WithTx with it
func ServeWithTx(dbpool *pgxpool.Pool, t *testing.T, fn func(tx pgx.Tx, srvURL string, services Services)) {
	testutil.WithTx(dbpool, t, func(tx pgx.Tx) {
		storage := postgres.NewStorage(tx)

		tokenManager, err := tokenmanager.New(tokenmanager.Config{SecretKey: "test-secret"})
		require.NoError(t, err, "token manager should be created without errors")

		ledgerService := ledger.NewService(ledger.Config{}, storage)
		queryService := query.NewService(storage)

		router := handlers.NewRouter(
			ledgerService,
			queryService,
			tokenManager,
			logger.NewNoOpLogger(),
		)

		// Run http server with the router in transaction
		srv := httptest.NewServer(router)
		defer srv.Close()

		fn(tx, srv.URL, Services{
			Storage:      storage,
			Ledger:       ledgerService,
			Query:        queryService,
			TokenManager: tokenManager,
		})
	})
}
