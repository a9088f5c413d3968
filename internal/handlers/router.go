package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/inkdraft/credits/internal/handlers/middleware"
	"github.com/inkdraft/credits/internal/logger"
	"github.com/inkdraft/credits/internal/models"
	"github.com/inkdraft/credits/internal/service/ledger"
	"github.com/inkdraft/credits/internal/service/query"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	ledgerService ledgerService,
	queryService queryService,
	tokenParser tokenParser,
	logger logger.Logger,
) http.Handler {
	authMiddleware := middleware.AuthMiddleware(tokenParser)
	withAuth := func(h http.Handler) http.Handler {
		return authMiddleware(h)
	}

	api := http.NewServeMux()

	api.Handle("POST /earn", withAuth(handleEarn(ledgerService, logger)))
	api.Handle("POST /spend", withAuth(handleSpend(ledgerService, logger)))
	api.Handle("POST /refund", withAuth(handleRefund(ledgerService, queryService, logger)))
	api.Handle("GET /balance", withAuth(handleGetBalance(queryService, logger)))
	api.Handle("GET /transactions", withAuth(handleListTransactions(queryService, logger)))
	api.Handle("GET /summary", withAuth(handleGetSummary(queryService, logger)))

	root := http.NewServeMux()
	root.Handle("/api/credits/", http.StripPrefix("/api/credits", api))

	handler := chain(root,
		middleware.LoggerMiddleware(logger),
	)

	return handler
}

type ledgerService interface {
	// Credit user, creating the balance on first earn
	Earn(ctx context.Context, arg ledger.EarnParams) (ledger.Result, error)

	// Debit user
	// Has to return apperrors.ErrBalanceInsufficient if balance is too low
	Spend(ctx context.Context, arg ledger.SpendParams) (ledger.Result, error)

	// Reverse a prior transaction exactly once
	// Has to return apperrors.ErrTransactionNotFound or apperrors.ErrAlreadyRefunded
	Refund(ctx context.Context, arg ledger.RefundParams) (ledger.Result, error)
}

type queryService interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (models.Balance, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (models.Transaction, error)
	GetTransactionHistory(ctx context.Context, userID uuid.UUID, limit int, offset int) (query.History, error)
	GetCreditSummary(ctx context.Context, userID uuid.UUID) (query.Summary, error)
}

type tokenParser interface {
	Parse(access string) (models.Caller, error)
}
