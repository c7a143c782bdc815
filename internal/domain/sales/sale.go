package sales

import (
	"strings"
	"time"

	"github.com/bizsuite/backend/internal/domain/inventory"
	"github.com/bizsuite/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleType distinguishes who the sale is made to
type SaleType string

const (
	SaleTypeCustomer    SaleType = "customer"
	SaleTypeDistributor SaleType = "distributor"
	SaleTypeQuick       SaleType = "quick"
)

// IsValid checks if the sale type is valid
func (t SaleType) IsValid() bool {
	switch t {
	case SaleTypeCustomer, SaleTypeDistributor, SaleTypeQuick:
		return true
	}
	return false
}

// PaymentMethod is how the buyer settles the sale
type PaymentMethod string

const (
	PaymentMethodCash          PaymentMethod = "cash"
	PaymentMethodUPI           PaymentMethod = "upi"
	PaymentMethodBankTransfer  PaymentMethod = "bank_transfer"
	PaymentMethodCheque        PaymentMethod = "cheque"
	PaymentMethodCredit        PaymentMethod = "credit"
	PaymentMethodPayOnDelivery PaymentMethod = "pay_on_delivery"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodUPI, PaymentMethodBankTransfer,
		PaymentMethodCheque, PaymentMethodCredit, PaymentMethodPayOnDelivery:
		return true
	}
	return false
}

// EffectivePaymentMethod resolves the method stored on a new sale.
// Delivery wins over the sale type; an empty selection means cash.
func EffectivePaymentMethod(saleType SaleType, delivery bool, selected PaymentMethod) PaymentMethod {
	switch {
	case delivery:
		return PaymentMethodPayOnDelivery
	case saleType == SaleTypeDistributor:
		return PaymentMethodCredit
	case saleType == SaleTypeQuick:
		return PaymentMethodCash
	case selected == "":
		return PaymentMethodCash
	default:
		return selected
	}
}

// Status represents the lifecycle of a sale. Statuses only advance.
type Status string

const (
	StatusPending   Status = "pending"
	StatusDelivered Status = "delivered"
	StatusPaid      Status = "paid"
	StatusCompleted Status = "completed"
)

// IsValid checks if the status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusDelivered, StatusPaid, StatusCompleted:
		return true
	}
	return false
}

// Rank orders statuses; paid and completed share the terminal rank
func (s Status) Rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusDelivered:
		return 1
	case StatusPaid, StatusCompleted:
		return 2
	}
	return -1
}

// IsTerminal returns true for paid and completed
func (s Status) IsTerminal() bool {
	return s.Rank() == 2
}

// CanAdvanceTo reports whether moving to target keeps the status monotonic
func (s Status) CanAdvanceTo(target Status) bool {
	return target.IsValid() && target.Rank() >= s.Rank()
}

// Advance returns target unless it would move the status backwards
func (s Status) Advance(target Status) Status {
	if s.CanAdvanceTo(target) {
		return target
	}
	return s
}

// Sale is the aggregate root for one invoice
type Sale struct {
	ID              uuid.UUID
	CustomerID      *uuid.UUID
	CustomerName    string
	CustomerPhone   string
	CustomerAddress string
	Type            SaleType
	Pool            inventory.Pool
	PaymentMethod   PaymentMethod
	TotalAmount     decimal.Decimal
	PaidAmount      decimal.Decimal
	Status          Status
	Verified        bool
	Delivery        bool
	DeliveryDate    *time.Time
	InvoiceNumber   string
	CreatedAt       time.Time
	Items           []SaleLineItem
}

// NewSaleParams carries the resolved inputs of a new sale
type NewSaleParams struct {
	CustomerID    *uuid.UUID
	Customer      CustomerInfo
	Type          SaleType
	Pool          inventory.Pool
	PaymentMethod PaymentMethod
	Delivery      bool
	DeliveryDate  *time.Time
	InvoiceNumber string
	UpfrontAmount decimal.Decimal
	Lines         []LineRequest
	CreatedAt     time.Time
}

// NewSale builds a sale and its line items from already filtered lines.
// Cash sales without delivery are settled at once and created completed and
// verified. Every other sale starts pending with the upfront amount clamped
// to the total.
func NewSale(p NewSaleParams) (*Sale, error) {
	if !p.Type.IsValid() {
		return nil, shared.NewDomainError(shared.CodeValidation, "Invalid sale type")
	}
	if !p.Pool.IsValid() {
		return nil, shared.NewDomainError(shared.CodeValidation, "Invalid stock pool")
	}
	if !p.PaymentMethod.IsValid() {
		return nil, shared.NewDomainError(shared.CodeValidation, "Invalid payment method")
	}
	if strings.TrimSpace(p.InvoiceNumber) == "" {
		return nil, shared.NewDomainError(shared.CodeValidation, "Invoice number is required")
	}
	if len(p.Lines) == 0 {
		return nil, shared.ErrNoItemsSelected
	}
	if p.UpfrontAmount.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeValidation, "Amount paid cannot be negative")
	}
	if err := shared.ValidateMoney("Amount paid", p.UpfrontAmount); err != nil {
		return nil, err
	}

	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	sale := &Sale{
		ID:              uuid.New(),
		CustomerID:      p.CustomerID,
		CustomerName:    strings.TrimSpace(p.Customer.Name),
		CustomerPhone:   strings.TrimSpace(p.Customer.Phone),
		CustomerAddress: strings.TrimSpace(p.Customer.Address),
		Type:            p.Type,
		Pool:            p.Pool,
		PaymentMethod:   p.PaymentMethod,
		Delivery:        p.Delivery,
		DeliveryDate:    p.DeliveryDate,
		InvoiceNumber:   p.InvoiceNumber,
		CreatedAt:       createdAt,
		Items:           make([]SaleLineItem, 0, len(p.Lines)),
	}

	total := decimal.Zero
	for _, line := range p.Lines {
		item, err := NewSaleLineItem(sale.ID, sale.InvoiceNumber, line)
		if err != nil {
			return nil, err
		}
		sale.Items = append(sale.Items, *item)
		total = total.Add(item.TotalPrice)
	}
	sale.TotalAmount = total

	sale.Verified = !p.Delivery && p.PaymentMethod == PaymentMethodCash
	if sale.Verified {
		sale.PaidAmount = total
		sale.Status = StatusCompleted
	} else {
		sale.PaidAmount = decimal.Min(p.UpfrontAmount, total)
		sale.Status = StatusPending
	}

	return sale, nil
}

// Outstanding returns the unpaid balance
func (s *Sale) Outstanding() decimal.Decimal {
	out := s.TotalAmount.Sub(s.PaidAmount)
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}

// IsFullyPaid returns true if nothing is outstanding
func (s *Sale) IsFullyPaid() bool {
	return s.PaidAmount.GreaterThanOrEqual(s.TotalAmount)
}

// IsDelivered returns true once the goods have left
func (s *Sale) IsDelivered() bool {
	return s.Status.Rank() >= StatusDelivered.Rank()
}

// DueDate returns when an unpaid sale becomes overdue: the delivery date when
// set, otherwise creation plus the credit term.
func (s *Sale) DueDate(creditTerm time.Duration) time.Time {
	if s.DeliveryDate != nil {
		return *s.DeliveryDate
	}
	return s.CreatedAt.Add(creditTerm)
}

// SetInvoiceNumber replaces the invoice number on the sale and its items
func (s *Sale) SetInvoiceNumber(number string) {
	s.InvoiceNumber = number
	for i := range s.Items {
		s.Items[i].InvoiceNumber = number
	}
}

// Demand returns the stock this sale takes out of its pool
func (s *Sale) Demand() inventory.Demand {
	d := inventory.Demand{}
	for _, item := range s.Items {
		d.Add(item.ProductID, item.Quantity)
	}
	return d
}
