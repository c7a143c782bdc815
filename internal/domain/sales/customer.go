package sales

import (
	"strings"
	"time"

	"github.com/bizsuite/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CustomerInfo is the inline contact data typed at the counter
type CustomerInfo struct {
	Name    string
	Phone   string
	Address string
}

// IsEmpty returns true if no contact data was entered
func (c CustomerInfo) IsEmpty() bool {
	return strings.TrimSpace(c.Name) == "" &&
		strings.TrimSpace(c.Phone) == "" &&
		strings.TrimSpace(c.Address) == ""
}

// Customer is a persisted buyer
type Customer struct {
	ID             uuid.UUID
	Name           string
	Phone          string
	Address        string
	Type           SaleType
	CreditLimit    decimal.Decimal
	CurrentBalance decimal.Decimal
	CreatedAt      time.Time
}

// NewCustomer creates a customer from inline info
func NewCustomer(info CustomerInfo, customerType SaleType) (*Customer, error) {
	name := strings.TrimSpace(info.Name)
	if name == "" {
		return nil, shared.NewDomainError(shared.CodeValidation, "Customer name is required")
	}
	if len(name) > 200 {
		return nil, shared.NewDomainError(shared.CodeValidation, "Customer name cannot exceed 200 characters")
	}
	if customerType == SaleTypeQuick || !customerType.IsValid() {
		return nil, shared.NewDomainError(shared.CodeValidation, "Invalid customer type")
	}

	return &Customer{
		ID:             uuid.New(),
		Name:           name,
		Phone:          strings.TrimSpace(info.Phone),
		Address:        strings.TrimSpace(info.Address),
		Type:           customerType,
		CreditLimit:    decimal.Zero,
		CurrentBalance: decimal.Zero,
		CreatedAt:      time.Now(),
	}, nil
}
