package userctx

import (
	"context"

	"github.com/inkdraft/credits/internal/models"
)

type ctxKey string

const (
	callerKey ctxKey = "caller"
	recordKey ctxKey = "callerRecord"
)

// Requests pass the logging middleware before authentication, so the
// resolved caller is also written into a record created up front and
// read back after the handler ran
type callerRecord struct {
	caller models.Caller
	set    bool
}

// Create a new context with the authenticated caller
func New(ctx context.Context, c models.Caller) context.Context {
	if record, ok := ctx.Value(recordKey).(*callerRecord); ok {
		record.caller = c
		record.set = true
	}

	return context.WithValue(ctx, callerKey, c)
}

// Extract the caller from the context
func FromContext(ctx context.Context) (models.Caller, bool) {
	c, ok := ctx.Value(callerKey).(models.Caller)
	return c, ok
}

// Create a new context with an empty caller record
func WithRecord(ctx context.Context) context.Context {
	return context.WithValue(ctx, recordKey, &callerRecord{})
}

// Extract the recorded caller, if any handler down the chain resolved one
func Recorded(ctx context.Context) (models.Caller, bool) {
	record, ok := ctx.Value(recordKey).(*callerRecord)
	if !ok || !record.set {
		return models.Caller{}, false
	}

	return record.caller, true
}
