package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/inkdraft/credits/internal/apperrors"
	"github.com/inkdraft/credits/internal/handlers/render"
	"github.com/inkdraft/credits/internal/handlers/userctx"
	"github.com/inkdraft/credits/internal/logger"
	"github.com/inkdraft/credits/internal/models"
	"github.com/inkdraft/credits/internal/service/ledger"
)

// Header with the caller generated key that makes earn/spend retries safe
const idempotencyKeyHeader = "Idempotency-Key"

type operationRequest struct {
	// Defaults to the caller, setting it requires the service role
	UserID   string         `json:"userId" validate:"omitempty,uuid"`
	Amount   int64          `json:"amount" validate:"required,gt=0"`
	Reason   string         `json:"reason" validate:"required,max=64"`
	Metadata map[string]any `json:"metadata"`
}

type transactionResponse struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Type      string          `json:"type"`
	Amount    int64           `json:"amount"`
	Reason    string          `json:"reason"`
	Metadata  models.Metadata `json:"metadata"`
	RefundOf  string          `json:"refundOf,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

type operationResponse struct {
	Balance     int64               `json:"balance"`
	UpdatedAt   time.Time           `json:"updatedAt"`
	Transaction transactionResponse `json:"transaction"`
}

func toTransactionResponse(t models.Transaction) transactionResponse {
	resp := transactionResponse{
		ID:        t.ID.String(),
		UserID:    t.UserID.String(),
		Type:      t.Type,
		Amount:    t.Amount,
		Reason:    t.Reason,
		Metadata:  t.Metadata,
		CreatedAt: t.CreatedAt,
	}
	if t.RefundOf != nil {
		resp.RefundOf = t.RefundOf.String()
	}

	return resp
}

func toOperationResponse(result ledger.Result) operationResponse {
	return operationResponse{
		Balance:     result.Balance.Balance,
		UpdatedAt:   result.Balance.UpdatedAt,
		Transaction: toTransactionResponse(result.Transaction),
	}
}

func handleEarn(ledgerService ledgerService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := render.BindAndValidate[operationRequest](w, r)
		if err != nil {
			return
		}

		target, ok := resolveTargetUser(w, r, req.UserID)
		if !ok {
			return
		}

		result, err := ledgerService.Earn(r.Context(), ledger.EarnParams{
			UserID:         target,
			Amount:         req.Amount,
			Reason:         req.Reason,
			Metadata:       models.Metadata(req.Metadata),
			IdempotencyKey: r.Header.Get(idempotencyKeyHeader),
		})

		switch {
		case err == nil:
			render.JSON(w, toOperationResponse(result))
		case errors.Is(err, apperrors.ErrAmountNotPositive), errors.Is(err, apperrors.ErrReasonRequired), errors.Is(err, apperrors.ErrMetadataInvalid):
			render.ServiceError(w, err.Error(), http.StatusBadRequest)
		default:
			l.Error("Failed to earn credits", "error", err, "userID", target, "amount", req.Amount)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleSpend(ledgerService ledgerService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := render.BindAndValidate[operationRequest](w, r)
		if err != nil {
			return
		}

		target, ok := resolveTargetUser(w, r, req.UserID)
		if !ok {
			return
		}

		result, err := ledgerService.Spend(r.Context(), ledger.SpendParams{
			UserID:         target,
			Amount:         req.Amount,
			Reason:         req.Reason,
			Metadata:       models.Metadata(req.Metadata),
			IdempotencyKey: r.Header.Get(idempotencyKeyHeader),
		})

		switch {
		case err == nil:
			render.JSON(w, toOperationResponse(result))
		case errors.Is(err, apperrors.ErrBalanceInsufficient):
			render.ServiceError(w, "Insufficient credits", http.StatusPaymentRequired)
		case errors.Is(err, apperrors.ErrAmountNotPositive), errors.Is(err, apperrors.ErrReasonRequired), errors.Is(err, apperrors.ErrMetadataInvalid):
			render.ServiceError(w, err.Error(), http.StatusBadRequest)
		default:
			l.Error("Failed to spend credits", "error", err, "userID", target, "amount", req.Amount)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleRefund(ledgerService ledgerService, queryService queryService, l logger.Logger) http.Handler {
	type request struct {
		TransactionID string `json:"transactionId" validate:"required,uuid"`
		Reason        string `json:"reason" validate:"omitempty,max=64"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}
		transactionID := uuid.MustParse(req.TransactionID)

		// Ownership check happens here, the engine only verifies existence
		original, err := queryService.GetTransaction(r.Context(), transactionID)
		switch {
		case errors.Is(err, apperrors.ErrTransactionNotFound):
			render.ServiceError(w, "Transaction not found", http.StatusNotFound)
			return
		case err != nil:
			l.Error("Failed to load transaction", "error", err, "transactionID", transactionID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		case !caller.MayActOn(original.UserID):
			render.ServiceError(w, "Forbidden", http.StatusForbidden)
			return
		}

		result, err := ledgerService.Refund(r.Context(), ledger.RefundParams{
			TransactionID: transactionID,
			Reason:        req.Reason,
		})

		switch {
		case err == nil:
			render.JSON(w, toOperationResponse(result))
		case errors.Is(err, apperrors.ErrTransactionNotFound):
			render.ServiceError(w, "Transaction not found", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrAlreadyRefunded):
			render.ServiceError(w, "Transaction already refunded", http.StatusConflict)
		case errors.Is(err, apperrors.ErrBalanceInsufficient):
			// Reversing an earn the user already spent away
			render.ServiceError(w, "Insufficient credits", http.StatusPaymentRequired)
		default:
			l.Error("Failed to refund transaction", "error", err, "transactionID", transactionID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

// resolveTargetUser applies the ownership rule: a caller operates on its
// own credits, the service role may act for any user
func resolveTargetUser(w http.ResponseWriter, r *http.Request, rawUserID string) (uuid.UUID, bool) {
	caller, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return uuid.Nil, false
	}

	target := caller.ID
	if rawUserID != "" {
		parsed, err := uuid.Parse(rawUserID)
		if err != nil {
			render.ServiceError(w, "Invalid user id", http.StatusBadRequest)
			return uuid.Nil, false
		}
		target = parsed
	}

	if !caller.MayActOn(target) {
		render.ServiceError(w, "Forbidden", http.StatusForbidden)
		return uuid.Nil, false
	}

	return target, true
}
