package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/inkdraft/credits/internal/apperrors"
	"github.com/inkdraft/credits/internal/models"
	"github.com/inkdraft/credits/internal/repository"
)

const defaultIdempotencyKeyTTL = 24 * time.Hour

type Config struct {
	// How long a saved idempotency key shields against retries
	// If not set than default is used
	IdempotencyKeyTTL time.Duration
}

// LedgerService is the only component allowed to mutate balances and
// the transaction log. Every operation is a single database transaction:
// the balance change and the log append commit together or not at all.
type LedgerService struct {
	storage repository.Storage
	keyTTL  time.Duration
}

func NewService(cfg Config, storage repository.Storage) *LedgerService {
	if cfg.IdempotencyKeyTTL == 0 {
		cfg.IdempotencyKeyTTL = defaultIdempotencyKeyTTL
	}

	return &LedgerService{
		storage: storage,
		keyTTL:  cfg.IdempotencyKeyTTL,
	}
}

type EarnParams struct {
	UserID   uuid.UUID
	Amount   int64
	Reason   string
	Metadata models.Metadata

	// Optional caller generated key, retries with the same key replay
	// the stored outcome instead of applying the operation again
	IdempotencyKey string
}

type SpendParams struct {
	UserID         uuid.UUID
	Amount         int64
	Reason         string
	Metadata       models.Metadata
	IdempotencyKey string
}

type RefundParams struct {
	TransactionID uuid.UUID

	// Optional, models.ReasonRefund is used when empty
	Reason string
}

type Result struct {
	Balance     models.Balance
	Transaction models.Transaction

	// Replayed marks a result restored from a previously used idempotency key
	Replayed bool
}

// Earn credits the user: appends an earn transaction and increases the
// balance, creating the balance row on first earn
func (s *LedgerService) Earn(ctx context.Context, arg EarnParams) (Result, error) {
	if err := validateOperation(arg.Amount, arg.Reason, arg.Metadata); err != nil {
		return Result{}, err
	}

	return s.apply(ctx, repository.CreateTransactionParams{
		UserID:   arg.UserID,
		Type:     models.TransactionTypeEarn,
		Amount:   arg.Amount,
		Reason:   arg.Reason,
		Metadata: arg.Metadata,
	}, arg.IdempotencyKey)
}

// Spend debits the user: appends a spend transaction and decreases the
// balance. Returns apperrors.ErrBalanceInsufficient and changes nothing
// when the balance is too low
func (s *LedgerService) Spend(ctx context.Context, arg SpendParams) (Result, error) {
	if err := validateOperation(arg.Amount, arg.Reason, arg.Metadata); err != nil {
		return Result{}, err
	}

	return s.apply(ctx, repository.CreateTransactionParams{
		UserID:   arg.UserID,
		Type:     models.TransactionTypeSpend,
		Amount:   arg.Amount,
		Reason:   arg.Reason,
		Metadata: arg.Metadata,
	}, arg.IdempotencyKey)
}

// Refund reverses a prior transaction: an earn is spent back, a spend is
// earned back, same amount. The original transaction stays untouched, the
// new one references it, and a transaction may be refunded at most once
func (s *LedgerService) Refund(ctx context.Context, arg RefundParams) (Result, error) {
	reason := arg.Reason
	if reason == "" {
		reason = models.ReasonRefund
	}

	var result Result
	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		original, err := storage.Transaction().GetTransactionByID(ctx, arg.TransactionID)
		if err != nil {
			return err
		}

		// Reverse whichever direction was recorded
		reversed := models.TransactionTypeEarn
		if original.Type == models.TransactionTypeEarn {
			reversed = models.TransactionTypeSpend
		}

		t, err := storage.Transaction().CreateTransaction(ctx, repository.CreateTransactionParams{
			UserID:   original.UserID,
			Type:     reversed,
			Amount:   original.Amount,
			Reason:   reason,
			Metadata: models.Metadata{models.MetadataRefundOf: original.ID.String()},
			RefundOf: &original.ID,
		})
		if err != nil {
			return err
		}

		balance, err := s.applyToBalance(ctx, storage, t)
		if err != nil {
			return err
		}

		result = Result{Balance: balance, Transaction: t}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	return result, nil
}

// apply runs the shared earn/spend path: one transaction row, one balance
// change and (optionally) one idempotency key, all in the same commit
func (s *LedgerService) apply(ctx context.Context, arg repository.CreateTransactionParams, key string) (Result, error) {
	if key != "" {
		result, err := s.replay(ctx, arg.UserID, key)
		switch {
		case err == nil:
			return result, nil
		case !errors.Is(err, apperrors.ErrIdempotencyKeyNotFound):
			return Result{}, err
		}
	}

	var result Result
	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		t, err := storage.Transaction().CreateTransaction(ctx, arg)
		if err != nil {
			return err
		}

		balance, err := s.applyToBalance(ctx, storage, t)
		if err != nil {
			return err
		}

		if key != "" {
			err = storage.Idempotency().SaveKey(ctx, repository.SaveIdempotencyKeyParams{
				UserID:        arg.UserID,
				Key:           key,
				TransactionID: t.ID,
				ExpiresAt:     time.Now().Add(s.keyTTL),
			})
			if err != nil {
				return err
			}
		}

		result = Result{Balance: balance, Transaction: t}
		return nil
	})

	switch {
	case err == nil:
		return result, nil
	case errors.Is(err, apperrors.ErrIdempotencyKeyExists):
		// Lost the race against a concurrent retry, return its outcome
		return s.replay(ctx, arg.UserID, key)
	default:
		return Result{}, err
	}
}

func (s *LedgerService) applyToBalance(ctx context.Context, storage repository.Storage, t models.Transaction) (models.Balance, error) {
	switch t.Type {
	case models.TransactionTypeEarn:
		return storage.Balance().AddToBalance(ctx, t.UserID, t.Amount)
	case models.TransactionTypeSpend:
		return storage.Balance().SubtractFromBalance(ctx, t.UserID, t.Amount)
	default:
		return models.Balance{}, fmt.Errorf("unknown transaction type: %q", t.Type)
	}
}

// replay returns the outcome stored for the idempotency key:
// the originally created transaction and the current balance
func (s *LedgerService) replay(ctx context.Context, userID uuid.UUID, key string) (Result, error) {
	saved, err := s.storage.Idempotency().GetKey(ctx, userID, key)
	if err != nil {
		return Result{}, err
	}

	t, err := s.storage.Transaction().GetTransactionByID(ctx, saved.TransactionID)
	if err != nil {
		return Result{}, fmt.Errorf("can't load transaction for idempotency key. Err: %w", err)
	}

	balance, err := s.storage.Balance().GetBalance(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("can't load balance for idempotency key. Err: %w", err)
	}

	return Result{Balance: balance, Transaction: t, Replayed: true}, nil
}

func validateOperation(amount int64, reason string, metadata models.Metadata) error {
	if amount <= 0 {
		return apperrors.ErrAmountNotPositive
	}
	if reason == "" {
		return apperrors.ErrReasonRequired
	}

	return metadata.Validate()
}
