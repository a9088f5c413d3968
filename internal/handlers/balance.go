package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/inkdraft/credits/internal/handlers/render"
	"github.com/inkdraft/credits/internal/logger"
)

func handleGetBalance(queryService queryService, l logger.Logger) http.Handler {
	type response struct {
		Balance   int64     `json:"balance"`
		UpdatedAt time.Time `json:"updatedAt"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		target, ok := resolveTargetUser(w, r, r.URL.Query().Get("userId"))
		if !ok {
			return
		}

		balance, err := queryService.GetBalance(r.Context(), target)

		switch err {
		case nil:
			render.JSON(w, response{Balance: balance.Balance, UpdatedAt: balance.UpdatedAt})
		default:
			l.Error("Failed to get balance", "error", err, "userID", target)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleListTransactions(queryService queryService, l logger.Logger) http.Handler {
	type pagination struct {
		Total   int64 `json:"total"`
		Limit   int   `json:"limit"`
		Offset  int   `json:"offset"`
		HasMore bool  `json:"hasMore"`
	}

	type response struct {
		Transactions []transactionResponse `json:"transactions"`
		Pagination   pagination            `json:"pagination"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		target, ok := resolveTargetUser(w, r, r.URL.Query().Get("userId"))
		if !ok {
			return
		}

		limit, ok := queryInt(w, r, "limit")
		if !ok {
			return
		}
		offset, ok := queryInt(w, r, "offset")
		if !ok {
			return
		}

		history, err := queryService.GetTransactionHistory(r.Context(), target, limit, offset)

		switch err {
		case nil:
			transactions := make([]transactionResponse, 0, len(history.Transactions))
			for _, t := range history.Transactions {
				transactions = append(transactions, toTransactionResponse(t))
			}
			render.JSON(w, response{
				Transactions: transactions,
				Pagination: pagination{
					Total:   history.Pagination.Total,
					Limit:   history.Pagination.Limit,
					Offset:  history.Pagination.Offset,
					HasMore: history.Pagination.HasMore,
				},
			})
		default:
			l.Error("Failed to list transactions", "error", err, "userID", target)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleGetSummary(queryService queryService, l logger.Logger) http.Handler {
	type response struct {
		TotalEarned int64 `json:"totalEarned"`
		TotalSpent  int64 `json:"totalSpent"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		target, ok := resolveTargetUser(w, r, r.URL.Query().Get("userId"))
		if !ok {
			return
		}

		summary, err := queryService.GetCreditSummary(r.Context(), target)

		switch err {
		case nil:
			render.JSON(w, response{TotalEarned: summary.TotalEarned, TotalSpent: summary.TotalSpent})
		default:
			l.Error("Failed to get credit summary", "error", err, "userID", target)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

// queryInt parses an optional non negative integer query parameter
func queryInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}

	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		render.ServiceError(w, "Parameter '"+name+"' must be a non-negative integer", http.StatusBadRequest)
		return 0, false
	}

	return value, true
}
