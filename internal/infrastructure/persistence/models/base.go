package models

import (
	"time"

	"github.com/google/uuid"
)

// BaseModel provides the id and creation time shared by the sales tables
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null;index"`
}

// utc normalizes stored instants so sqlite string comparison orders them
func utc(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

// All returns every model the remote store schema consists of
func All() []any {
	return []any{
		&CustomerModel{},
		&SaleModel{},
		&SaleItemModel{},
		&PaymentModel{},
		&FactoryStockModel{},
		&GodownStockModel{},
	}
}
