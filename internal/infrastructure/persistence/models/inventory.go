package models

import (
	"time"

	"github.com/bizsuite/backend/internal/domain/inventory"
	"github.com/google/uuid"
)

// StockModel holds the columns shared by the per-pool stock tables
type StockModel struct {
	ProductID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	ProductName string    `gorm:"type:varchar(200);not null"`
	Quantity    int64     `gorm:"not null;default:0;check:quantity >= 0"`
	UpdatedAt   time.Time
}

// ToDomain converts the row to a stock entry of the given pool
func (m *StockModel) ToDomain(pool inventory.Pool) inventory.StockEntry {
	return inventory.StockEntry{
		ProductID:   m.ProductID,
		ProductName: m.ProductName,
		Pool:        pool,
		Quantity:    m.Quantity,
	}
}

// FactoryStockModel is a row of the factory pool
type FactoryStockModel struct {
	StockModel
}

// TableName returns the table name for GORM
func (FactoryStockModel) TableName() string {
	return "factory_stock"
}

// GodownStockModel is a row of the godown pool
type GodownStockModel struct {
	StockModel
}

// TableName returns the table name for GORM
func (GodownStockModel) TableName() string {
	return "godown_stock"
}

// StockTable returns the table backing a pool
func StockTable(pool inventory.Pool) (string, error) {
	switch pool {
	case inventory.PoolFactory:
		return FactoryStockModel{}.TableName(), nil
	case inventory.PoolGodown:
		return GodownStockModel{}.TableName(), nil
	default:
		return "", inventory.ErrUnknownPool
	}
}
