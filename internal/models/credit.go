package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/inkdraft/credits/internal/apperrors"
)

const (
	TransactionTypeEarn  = "earn"
	TransactionTypeSpend = "spend"
)

// Well known reason codes
// Reasons are caller supplied, the ledger stores them as is
const (
	ReasonBookCreation       = "BOOK_CREATION"
	ReasonPublishEpub        = "PUBLISH_EPUB"
	ReasonRefund             = "REFUND"
	ReasonRefundBookDeletion = "REFUND_BOOK_DELETION"
)

// Metadata key that marks a transaction as a refund of another one
const MetadataRefundOf = "refundOf"

type Balance struct {
	UserID    uuid.UUID
	Balance   int64
	UpdatedAt time.Time
}

// Metadata is an opaque audit context attached to a transaction
// Values must be JSON primitives (string, number, boolean or null)
type Metadata map[string]any

// Validate checks every value is a JSON primitive
func (m Metadata) Validate() error {
	for key, value := range m {
		switch value.(type) {
		case string, bool, float64, int, int64, nil:
		default:
			return fmt.Errorf("%w: value for %q", apperrors.ErrMetadataInvalid, key)
		}
	}

	return nil
}

type Transaction struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Type      string
	Amount    int64
	Reason    string
	Metadata  Metadata
	RefundOf  *uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsRefund reports whether the transaction reverses another one
func (t Transaction) IsRefund() bool {
	return t.RefundOf != nil
}

type IdempotencyKey struct {
	UserID        uuid.UUID
	Key           string
	TransactionID uuid.UUID
	CreatedAt     time.Time
	ExpiresAt     time.Time
}
