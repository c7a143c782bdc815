package persistence

import (
	"context"

	"github.com/bizsuite/backend/internal/domain/sales"
	"github.com/bizsuite/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCustomerRepository implements sales.CustomerRepository using GORM
type GormCustomerRepository struct {
	repo
}

// NewGormCustomerRepository creates a new GormCustomerRepository
func NewGormCustomerRepository(db *gorm.DB, guard *CallGuard) *GormCustomerRepository {
	return &GormCustomerRepository{repo{db: db, guard: guard}}
}

// FindByID finds a customer by ID
func (r *GormCustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (*sales.Customer, error) {
	var model models.CustomerModel
	err := r.do(ctx, "customers.find", func(db *gorm.DB) error {
		return db.Where("id = ?", id).First(&model).Error
	})
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// Insert saves a new customer
func (r *GormCustomerRepository) Insert(ctx context.Context, customer *sales.Customer) error {
	model := models.CustomerModelFromDomain(customer)
	return r.do(ctx, "customers.insert", func(db *gorm.DB) error {
		return db.Create(model).Error
	})
}

// Delete removes a customer. Deleting a missing row is not an error.
func (r *GormCustomerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.do(ctx, "customers.delete", func(db *gorm.DB) error {
		return db.Where("id = ?", id).Delete(&models.CustomerModel{}).Error
	})
}

// Ensure GormCustomerRepository implements CustomerRepository
var _ sales.CustomerRepository = (*GormCustomerRepository)(nil)
