package sales

import (
	"fmt"
	"time"

	"github.com/bizsuite/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentRecord is a supplementary ledger line. The sale row stays authoritative.
type PaymentRecord struct {
	ID         uuid.UUID
	SaleID     uuid.UUID
	Amount     decimal.Decimal
	Method     PaymentMethod
	RecordedAt time.Time
}

// NewPaymentRecord creates a ledger line
func NewPaymentRecord(saleID uuid.UUID, amount decimal.Decimal, method PaymentMethod) *PaymentRecord {
	return &PaymentRecord{
		ID:         uuid.New(),
		SaleID:     saleID,
		Amount:     amount,
		Method:     method,
		RecordedAt: time.Now(),
	}
}

// PaymentUpdate is the single patch written to a sale when a payment is applied
type PaymentUpdate struct {
	PaidAmount    decimal.Decimal
	Status        Status
	Verified      bool
	PaymentMethod PaymentMethod
}

// PaymentTransition is the computed outcome of applying an amount
type PaymentTransition struct {
	PaymentUpdate
	IsFull bool
}

// ApplyPayment computes the new payment state of a sale without mutating it.
//
//	delivery  delivered  full   status     verified
//	true      false      any    delivered  false
//	true      true       true   delivered  true
//	true      true       false  delivered  false
//	false     -          true   paid       true
//	false     -          false  pending    false
//
// The resulting status never ranks below the current one.
func ApplyPayment(sale *Sale, amount decimal.Decimal, method PaymentMethod) (*PaymentTransition, error) {
	if !amount.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeValidation, "Payment amount must be positive")
	}
	if err := shared.ValidateMoney("Payment amount", amount); err != nil {
		return nil, err
	}
	if sale.Verified && sale.IsFullyPaid() {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "Sale is already settled")
	}
	if amount.GreaterThan(sale.Outstanding()) {
		return nil, shared.NewDomainError(shared.CodeExceedsOutstanding,
			fmt.Sprintf("Payment of %s exceeds the outstanding balance of %s",
				amount.StringFixed(2), sale.Outstanding().StringFixed(2)))
	}
	if method == "" {
		method = sale.PaymentMethod
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError(shared.CodeValidation, "Invalid payment method")
	}

	newPaid := sale.PaidAmount.Add(amount)
	isFull := newPaid.GreaterThanOrEqual(sale.TotalAmount)

	var status Status
	var verified bool
	switch {
	case sale.Delivery && !sale.IsDelivered():
		status, verified = StatusDelivered, false
	case sale.Delivery:
		status, verified = StatusDelivered, isFull
	case isFull:
		status, verified = StatusPaid, true
	default:
		status, verified = StatusPending, false
	}

	return &PaymentTransition{
		PaymentUpdate: PaymentUpdate{
			PaidAmount:    newPaid,
			Status:        sale.Status.Advance(status),
			Verified:      verified,
			PaymentMethod: method,
		},
		IsFull: isFull,
	}, nil
}

// Apply copies an update onto the sale
func (s *Sale) Apply(update PaymentUpdate) {
	s.PaidAmount = update.PaidAmount
	s.Status = update.Status
	s.Verified = update.Verified
	s.PaymentMethod = update.PaymentMethod
}
