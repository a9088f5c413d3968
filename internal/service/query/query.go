package query

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/inkdraft/credits/internal/apperrors"
	"github.com/inkdraft/credits/internal/models"
	"github.com/inkdraft/credits/internal/repository"
)

// History pages are capped to bound response size
const maxHistoryLimit = 100

// QueryService is the read side of the ledger, it never mutates
type QueryService struct {
	storage repository.Storage
}

func NewService(storage repository.Storage) *QueryService {
	return &QueryService{storage: storage}
}

type Pagination struct {
	Total   int64
	Limit   int
	Offset  int
	HasMore bool
}

type History struct {
	Transactions []models.Transaction
	Pagination   Pagination
}

type Summary struct {
	TotalEarned int64
	TotalSpent  int64
}

// GetBalance returns the user balance
// A user without a balance row simply has zero credits, not an error
func (s *QueryService) GetBalance(ctx context.Context, userID uuid.UUID) (models.Balance, error) {
	balance, err := s.storage.Balance().GetBalance(ctx, userID)

	switch {
	case err == nil:
		return balance, nil
	case errors.Is(err, apperrors.ErrBalanceNotFound):
		return models.Balance{UserID: userID}, nil
	default:
		return balance, err
	}
}

func (s *QueryService) GetTransaction(ctx context.Context, id uuid.UUID) (models.Transaction, error) {
	return s.storage.Transaction().GetTransactionByID(ctx, id)
}

// GetTransactionHistory returns a page of user transactions, newest first
// Limit is clamped to maxHistoryLimit, limit <= 0 returns an empty page
// with the total still filled in
func (s *QueryService) GetTransactionHistory(ctx context.Context, userID uuid.UUID, limit int, offset int) (History, error) {
	if limit < 0 {
		limit = 0
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}

	transactions, total, err := s.storage.Transaction().ListTransactions(ctx, userID, limit, offset)
	if err != nil {
		return History{}, err
	}

	return History{
		Transactions: transactions,
		Pagination: Pagination{
			Total:   total,
			Limit:   limit,
			Offset:  offset,
			HasMore: int64(offset+len(transactions)) < total,
		},
	}, nil
}

// GetCreditSummary aggregates over the whole transaction log for the user
func (s *QueryService) GetCreditSummary(ctx context.Context, userID uuid.UUID) (Summary, error) {
	earned, spent, err := s.storage.Transaction().SumByType(ctx, userID)
	if err != nil {
		return Summary{}, err
	}

	return Summary{TotalEarned: earned, TotalSpent: spent}, nil
}
