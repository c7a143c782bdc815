package models

import (
	"time"

	"github.com/bizsuite/backend/internal/domain/inventory"
	"github.com/bizsuite/backend/internal/domain/sales"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleModel is the persistence model for a sale header
type SaleModel struct {
	BaseModel
	CustomerID      *uuid.UUID      `gorm:"type:uuid;index"`
	CustomerName    string          `gorm:"type:varchar(200)"`
	CustomerPhone   string          `gorm:"type:varchar(50)"`
	CustomerAddress string          `gorm:"type:varchar(500)"`
	SaleType        string          `gorm:"type:varchar(20);not null"`
	StockPool       string          `gorm:"type:varchar(20);not null"`
	PaymentMethod   string          `gorm:"type:varchar(30);not null"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	PaidAmount      decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	Status          string          `gorm:"type:varchar(20);not null;index"`
	Verified        bool            `gorm:"not null;default:false"`
	Delivery        bool            `gorm:"not null;default:false"`
	DeliveryDate    *time.Time
	InvoiceNumber   string          `gorm:"type:varchar(40);not null;uniqueIndex"`
	Items           []SaleItemModel `gorm:"foreignKey:SaleID;references:ID"`
}

// TableName returns the table name for GORM
func (SaleModel) TableName() string {
	return "sales"
}

// ToDomain converts the model to a domain Sale. Items are copied when loaded.
func (m *SaleModel) ToDomain() *sales.Sale {
	sale := &sales.Sale{
		ID:              m.ID,
		CustomerID:      m.CustomerID,
		CustomerName:    m.CustomerName,
		CustomerPhone:   m.CustomerPhone,
		CustomerAddress: m.CustomerAddress,
		Type:            sales.SaleType(m.SaleType),
		Pool:            inventory.Pool(m.StockPool),
		PaymentMethod:   sales.PaymentMethod(m.PaymentMethod),
		TotalAmount:     m.TotalAmount,
		PaidAmount:      m.PaidAmount,
		Status:          sales.Status(m.Status),
		Verified:        m.Verified,
		Delivery:        m.Delivery,
		DeliveryDate:    m.DeliveryDate,
		InvoiceNumber:   m.InvoiceNumber,
		CreatedAt:       m.CreatedAt,
	}
	if len(m.Items) > 0 {
		sale.Items = make([]sales.SaleLineItem, len(m.Items))
		for i := range m.Items {
			sale.Items[i] = *m.Items[i].ToDomain()
		}
	}
	return sale
}

// SaleModelFromDomain creates the header model. Items are written separately.
func SaleModelFromDomain(s *sales.Sale) *SaleModel {
	return &SaleModel{
		BaseModel:       BaseModel{ID: s.ID, CreatedAt: utc(s.CreatedAt)},
		CustomerID:      s.CustomerID,
		CustomerName:    s.CustomerName,
		CustomerPhone:   s.CustomerPhone,
		CustomerAddress: s.CustomerAddress,
		SaleType:        string(s.Type),
		StockPool:       string(s.Pool),
		PaymentMethod:   string(s.PaymentMethod),
		TotalAmount:     s.TotalAmount,
		PaidAmount:      s.PaidAmount,
		Status:          string(s.Status),
		Verified:        s.Verified,
		Delivery:        s.Delivery,
		DeliveryDate:    utcPtr(s.DeliveryDate),
		InvoiceNumber:   s.InvoiceNumber,
	}
}

// SaleItemModel is the persistence model for a committed sale line
type SaleItemModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SaleID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID     uuid.UUID       `gorm:"type:uuid;not null"`
	ProductName   string          `gorm:"type:varchar(200)"`
	Quantity      int64           `gorm:"not null"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	TotalPrice    decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	InvoiceNumber string          `gorm:"type:varchar(40);not null;index"`
}

// TableName returns the table name for GORM
func (SaleItemModel) TableName() string {
	return "sale_items"
}

// ToDomain converts the model to a domain SaleLineItem
func (m *SaleItemModel) ToDomain() *sales.SaleLineItem {
	return &sales.SaleLineItem{
		ID:            m.ID,
		SaleID:        m.SaleID,
		ProductID:     m.ProductID,
		ProductName:   m.ProductName,
		Quantity:      m.Quantity,
		UnitPrice:     m.UnitPrice,
		TotalPrice:    m.TotalPrice,
		InvoiceNumber: m.InvoiceNumber,
	}
}

// SaleItemModelFromDomain creates a model from a domain SaleLineItem
func SaleItemModelFromDomain(i *sales.SaleLineItem) *SaleItemModel {
	return &SaleItemModel{
		ID:            i.ID,
		SaleID:        i.SaleID,
		ProductID:     i.ProductID,
		ProductName:   i.ProductName,
		Quantity:      i.Quantity,
		UnitPrice:     i.UnitPrice,
		TotalPrice:    i.TotalPrice,
		InvoiceNumber: i.InvoiceNumber,
	}
}

// CustomerModel is the persistence model for a saved customer
type CustomerModel struct {
	BaseModel
	Name           string          `gorm:"type:varchar(200);not null"`
	Phone          string          `gorm:"type:varchar(50)"`
	Address        string          `gorm:"type:varchar(500)"`
	CustomerType   string          `gorm:"type:varchar(20);not null"`
	CreditLimit    decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	CurrentBalance decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
}

// TableName returns the table name for GORM
func (CustomerModel) TableName() string {
	return "customers"
}

// ToDomain converts the model to a domain Customer
func (m *CustomerModel) ToDomain() *sales.Customer {
	return &sales.Customer{
		ID:             m.ID,
		Name:           m.Name,
		Phone:          m.Phone,
		Address:        m.Address,
		Type:           sales.SaleType(m.CustomerType),
		CreditLimit:    m.CreditLimit,
		CurrentBalance: m.CurrentBalance,
		CreatedAt:      m.CreatedAt,
	}
}

// CustomerModelFromDomain creates a model from a domain Customer
func CustomerModelFromDomain(c *sales.Customer) *CustomerModel {
	return &CustomerModel{
		BaseModel:      BaseModel{ID: c.ID, CreatedAt: utc(c.CreatedAt)},
		Name:           c.Name,
		Phone:          c.Phone,
		Address:        c.Address,
		CustomerType:   string(c.Type),
		CreditLimit:    c.CreditLimit,
		CurrentBalance: c.CurrentBalance,
	}
}

// PaymentModel is one line of the supplementary payment ledger
type PaymentModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SaleID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount        decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	PaymentMethod string          `gorm:"type:varchar(30);not null"`
	RecordedAt    time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the model to a domain PaymentRecord
func (m *PaymentModel) ToDomain() *sales.PaymentRecord {
	return &sales.PaymentRecord{
		ID:         m.ID,
		SaleID:     m.SaleID,
		Amount:     m.Amount,
		Method:     sales.PaymentMethod(m.PaymentMethod),
		RecordedAt: m.RecordedAt,
	}
}

// PaymentModelFromDomain creates a model from a domain PaymentRecord
func PaymentModelFromDomain(p *sales.PaymentRecord) *PaymentModel {
	return &PaymentModel{
		ID:            p.ID,
		SaleID:        p.SaleID,
		Amount:        p.Amount,
		PaymentMethod: string(p.Method),
		RecordedAt:    utc(p.RecordedAt),
	}
}
