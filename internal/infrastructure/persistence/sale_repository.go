package persistence

import (
	"context"
	"time"

	"github.com/bizsuite/backend/internal/domain/sales"
	"github.com/bizsuite/backend/internal/domain/shared"
	"github.com/bizsuite/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSaleRepository implements sales.SaleRepository using GORM
type GormSaleRepository struct {
	repo
}

// NewGormSaleRepository creates a new GormSaleRepository
func NewGormSaleRepository(db *gorm.DB, guard *CallGuard) *GormSaleRepository {
	return &GormSaleRepository{repo{db: db, guard: guard}}
}

// FindByID finds a sale by its ID
func (r *GormSaleRepository) FindByID(ctx context.Context, id uuid.UUID) (*sales.Sale, error) {
	var model models.SaleModel
	err := r.do(ctx, "sales.find", func(db *gorm.DB) error {
		return db.Where("id = ?", id).First(&model).Error
	})
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists sales matching the filter, newest first
func (r *GormSaleRepository) FindAll(ctx context.Context, filter sales.SaleFilter) ([]sales.Sale, error) {
	var rows []models.SaleModel
	err := r.do(ctx, "sales.list", func(db *gorm.DB) error {
		query := db.Model(&models.SaleModel{})
		if filter.From != nil {
			query = query.Where("created_at >= ?", filter.From.UTC())
		}
		if filter.To != nil {
			query = query.Where("created_at < ?", filter.To.UTC())
		}
		if len(filter.Status) > 0 {
			statuses := make([]string, len(filter.Status))
			for i, s := range filter.Status {
				statuses[i] = string(s)
			}
			query = query.Where("status IN ?", statuses)
		}
		if filter.Unverified {
			query = query.Where("verified = ?", false)
		}
		return query.Order("created_at DESC").Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}

	result := make([]sales.Sale, len(rows))
	for i := range rows {
		result[i] = *rows[i].ToDomain()
	}
	return result, nil
}

// Insert writes a new sale row
func (r *GormSaleRepository) Insert(ctx context.Context, sale *sales.Sale) error {
	model := models.SaleModelFromDomain(sale)
	return r.do(ctx, "sales.insert", func(db *gorm.DB) error {
		return db.Omit("Items").Create(model).Error
	})
}

// UpdatePayment writes the payment columns of a sale in one statement. The
// write is conditional on the paid amount and status read into current.
func (r *GormSaleRepository) UpdatePayment(ctx context.Context, current *sales.Sale, update sales.PaymentUpdate) error {
	return r.do(ctx, "sales.update_payment", func(db *gorm.DB) error {
		result := db.Model(&models.SaleModel{}).
			Where("id = ? AND paid_amount = ? AND status = ?", current.ID, current.PaidAmount, string(current.Status)).
			Updates(map[string]any{
				"paid_amount":    update.PaidAmount,
				"status":         string(update.Status),
				"verified":       update.Verified,
				"payment_method": string(update.PaymentMethod),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			return nil
		}

		var count int64
		if err := db.Model(&models.SaleModel{}).Where("id = ?", current.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return shared.ErrNotFound
		}
		return sales.NewSaleChangedError(current.ID)
	})
}

// Delete removes a sale row. Deleting a missing row is not an error.
func (r *GormSaleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.do(ctx, "sales.delete", func(db *gorm.DB) error {
		return db.Where("id = ?", id).Delete(&models.SaleModel{}).Error
	})
}

// CountCreatedBetween counts sales created in [from, to)
func (r *GormSaleRepository) CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64
	err := r.do(ctx, "sales.count", func(db *gorm.DB) error {
		return db.Model(&models.SaleModel{}).
			Where("created_at >= ? AND created_at < ?", from.UTC(), to.UTC()).
			Count(&count).Error
	})
	return count, err
}

// Ensure GormSaleRepository implements SaleRepository
var _ sales.SaleRepository = (*GormSaleRepository)(nil)

// GormSaleItemRepository implements sales.SaleItemRepository using GORM
type GormSaleItemRepository struct {
	repo
}

// NewGormSaleItemRepository creates a new GormSaleItemRepository
func NewGormSaleItemRepository(db *gorm.DB, guard *CallGuard) *GormSaleItemRepository {
	return &GormSaleItemRepository{repo{db: db, guard: guard}}
}

// Insert writes one sale line
func (r *GormSaleItemRepository) Insert(ctx context.Context, item *sales.SaleLineItem) error {
	model := models.SaleItemModelFromDomain(item)
	return r.do(ctx, "sale_items.insert", func(db *gorm.DB) error {
		return db.Create(model).Error
	})
}

// Delete removes one sale line
func (r *GormSaleItemRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.do(ctx, "sale_items.delete", func(db *gorm.DB) error {
		return db.Where("id = ?", id).Delete(&models.SaleItemModel{}).Error
	})
}

// DeleteBySale removes every line of a sale
func (r *GormSaleItemRepository) DeleteBySale(ctx context.Context, saleID uuid.UUID) error {
	return r.do(ctx, "sale_items.delete_by_sale", func(db *gorm.DB) error {
		return db.Where("sale_id = ?", saleID).Delete(&models.SaleItemModel{}).Error
	})
}

// FindBySale lists the lines of a sale
func (r *GormSaleItemRepository) FindBySale(ctx context.Context, saleID uuid.UUID) ([]sales.SaleLineItem, error) {
	var rows []models.SaleItemModel
	err := r.do(ctx, "sale_items.find_by_sale", func(db *gorm.DB) error {
		return db.Where("sale_id = ?", saleID).Order("product_name, id").Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}

	items := make([]sales.SaleLineItem, len(rows))
	for i := range rows {
		items[i] = *rows[i].ToDomain()
	}
	return items, nil
}

// Ensure GormSaleItemRepository implements SaleItemRepository
var _ sales.SaleItemRepository = (*GormSaleItemRepository)(nil)
