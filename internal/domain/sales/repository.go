package sales

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SaleFilter narrows sale listings
type SaleFilter struct {
	From       *time.Time
	To         *time.Time
	Status     []Status
	Unverified bool
}

// SaleRepository defines persistence for the sales table
type SaleRepository interface {
	// FindByID finds a sale without its items
	FindByID(ctx context.Context, id uuid.UUID) (*Sale, error)

	// FindAll lists sales matching the filter, newest first
	FindAll(ctx context.Context, filter SaleFilter) ([]Sale, error)

	// Insert writes a new sale row. A duplicate invoice number yields shared.ErrAlreadyExists.
	Insert(ctx context.Context, sale *Sale) error

	// UpdatePayment writes paid amount, status, verified and method in one
	// update, provided the stored paid amount and status still equal those of
	// current. Otherwise nothing is written and the error wraps ErrSaleChanged.
	UpdatePayment(ctx context.Context, current *Sale, update PaymentUpdate) error

	// Delete removes a sale row
	Delete(ctx context.Context, id uuid.UUID) error

	// CountCreatedBetween counts sales created in [from, to)
	CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error)
}

// SaleItemRepository defines persistence for the sale_items table
type SaleItemRepository interface {
	Insert(ctx context.Context, item *SaleLineItem) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteBySale(ctx context.Context, saleID uuid.UUID) error
	FindBySale(ctx context.Context, saleID uuid.UUID) ([]SaleLineItem, error)
}

// CustomerRepository defines persistence for the customers table
type CustomerRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Customer, error)
	Insert(ctx context.Context, customer *Customer) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// PaymentRepository defines persistence for the supplementary payments table
type PaymentRepository interface {
	Append(ctx context.Context, record *PaymentRecord) error
	FindBySale(ctx context.Context, saleID uuid.UUID) ([]PaymentRecord, error)
}

// StatusUpdater is the remote update_sales_payment_status call. Implementations
// treat a call that is already applied, or that would move the status
// backwards, as a successful no-op.
type StatusUpdater interface {
	UpdateSalePaymentStatus(ctx context.Context, saleID uuid.UUID, status Status, verified bool) error
}
