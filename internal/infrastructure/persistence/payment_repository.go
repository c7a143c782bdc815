package persistence

import (
	"context"

	"github.com/bizsuite/backend/internal/domain/sales"
	"github.com/bizsuite/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPaymentRepository implements sales.PaymentRepository using GORM
type GormPaymentRepository struct {
	repo
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB, guard *CallGuard) *GormPaymentRepository {
	return &GormPaymentRepository{repo{db: db, guard: guard}}
}

// Append records one payment
func (r *GormPaymentRepository) Append(ctx context.Context, record *sales.PaymentRecord) error {
	model := models.PaymentModelFromDomain(record)
	return r.do(ctx, "payments.append", func(db *gorm.DB) error {
		return db.Create(model).Error
	})
}

// FindBySale lists the payments of a sale, oldest first
func (r *GormPaymentRepository) FindBySale(ctx context.Context, saleID uuid.UUID) ([]sales.PaymentRecord, error) {
	var rows []models.PaymentModel
	err := r.do(ctx, "payments.find_by_sale", func(db *gorm.DB) error {
		return db.Where("sale_id = ?", saleID).Order("recorded_at ASC").Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}

	records := make([]sales.PaymentRecord, len(rows))
	for i := range rows {
		records[i] = *rows[i].ToDomain()
	}
	return records, nil
}

// Ensure GormPaymentRepository implements PaymentRepository
var _ sales.PaymentRepository = (*GormPaymentRepository)(nil)
