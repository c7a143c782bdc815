package sales

import (
	"fmt"
	"time"

	"github.com/bizsuite/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Intent names what a queued status call wants to achieve
type Intent string

const (
	IntentVerifyPayment Intent = "verify_payment"
	IntentMarkDelivered Intent = "mark_delivered"
)

// IsValid checks if the intent is known
func (i Intent) IsValid() bool {
	return i == IntentVerifyPayment || i == IntentMarkDelivered
}

// PendingVerification is a status call that failed and waits to be replayed.
// At most one entry exists per (sale, intent); a newer one replaces it.
type PendingVerification struct {
	SaleID          uuid.UUID `json:"sale_id"`
	Intent          Intent    `json:"intent"`
	DesiredStatus   Status    `json:"desired_status"`
	DesiredVerified bool      `json:"desired_verified"`
	shared.OutboxState
}

// NewPendingVerification creates a pending entry
func NewPendingVerification(saleID uuid.UUID, intent Intent, status Status, verified bool, maxAttempts int) (*PendingVerification, error) {
	if saleID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeValidation, "Sale id is required")
	}
	if !intent.IsValid() {
		return nil, shared.NewDomainError(shared.CodeValidation, "Invalid intent")
	}
	if !status.IsValid() {
		return nil, shared.NewDomainError(shared.CodeValidation, "Invalid status")
	}
	return &PendingVerification{
		SaleID:          saleID,
		Intent:          intent,
		DesiredStatus:   status,
		DesiredVerified: verified,
		OutboxState:     shared.NewOutboxState(maxAttempts, time.Now()),
	}, nil
}

// Key is the dedupe key of the entry
func (p *PendingVerification) Key() string {
	return PendingKey(p.SaleID, p.Intent)
}

// PendingKey formats the dedupe key for a sale and intent
func PendingKey(saleID uuid.UUID, intent Intent) string {
	return fmt.Sprintf("%s:%s", saleID, intent)
}
