package sales

import (
	"github.com/bizsuite/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineRequest is one requested product line of a sale
type LineRequest struct {
	ProductID   uuid.UUID
	ProductName string
	Quantity    int64
	UnitPrice   decimal.Decimal
}

// SaleLineItem is a committed product line of a sale
type SaleLineItem struct {
	ID            uuid.UUID
	SaleID        uuid.UUID
	ProductID     uuid.UUID
	ProductName   string
	Quantity      int64
	UnitPrice     decimal.Decimal
	TotalPrice    decimal.Decimal
	InvoiceNumber string
}

// Validate checks a requested line before anything is written
func (l LineRequest) Validate() error {
	if l.ProductID == uuid.Nil {
		return shared.NewDomainError(shared.CodeValidation, "Product is required")
	}
	if l.Quantity <= 0 {
		return shared.NewDomainError(shared.CodeValidation, "Quantity must be positive")
	}
	if l.UnitPrice.IsNegative() {
		return shared.NewDomainError(shared.CodeValidation, "Unit price cannot be negative")
	}
	return shared.ValidateMoney("Unit price", l.UnitPrice)
}

// ValidateLines validates every line, returning the first failure
func ValidateLines(lines []LineRequest) error {
	for _, line := range lines {
		if err := line.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// NewSaleLineItem creates a line item, computing its total
func NewSaleLineItem(saleID uuid.UUID, invoiceNumber string, line LineRequest) (*SaleLineItem, error) {
	if err := line.Validate(); err != nil {
		return nil, err
	}

	return &SaleLineItem{
		ID:            uuid.New(),
		SaleID:        saleID,
		ProductID:     line.ProductID,
		ProductName:   line.ProductName,
		Quantity:      line.Quantity,
		UnitPrice:     line.UnitPrice,
		TotalPrice:    line.UnitPrice.Mul(decimal.NewFromInt(line.Quantity)),
		InvoiceNumber: invoiceNumber,
	}, nil
}

// SelectLines keeps only lines with a positive quantity.
// It returns shared.ErrNoItemsSelected when nothing remains.
func SelectLines(lines []LineRequest) ([]LineRequest, error) {
	selected := make([]LineRequest, 0, len(lines))
	for _, line := range lines {
		if line.Quantity > 0 {
			selected = append(selected, line)
		}
	}
	if len(selected) == 0 {
		return nil, shared.ErrNoItemsSelected
	}
	return selected, nil
}
