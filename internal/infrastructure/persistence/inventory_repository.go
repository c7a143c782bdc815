package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/bizsuite/backend/internal/domain/inventory"
	"github.com/bizsuite/backend/internal/domain/shared"
	"github.com/bizsuite/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormStockRepository implements inventory.StockRepository over the
// factory_stock and godown_stock tables
type GormStockRepository struct {
	repo
}

// NewGormStockRepository creates a new GormStockRepository
func NewGormStockRepository(db *gorm.DB, guard *CallGuard) *GormStockRepository {
	return &GormStockRepository{repo{db: db, guard: guard}}
}

// Snapshot reads every row of a pool
func (r *GormStockRepository) Snapshot(ctx context.Context, pool inventory.Pool) (inventory.Snapshot, error) {
	table, err := models.StockTable(pool)
	if err != nil {
		return nil, err
	}

	var rows []models.StockModel
	err = r.do(ctx, "stock.snapshot", func(db *gorm.DB) error {
		return db.Table(table).Select("product_id", "quantity").Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	return toSnapshot(rows), nil
}

// Quantities reads the live quantity of the given products
func (r *GormStockRepository) Quantities(ctx context.Context, pool inventory.Pool, productIDs []uuid.UUID) (inventory.Snapshot, error) {
	table, err := models.StockTable(pool)
	if err != nil {
		return nil, err
	}
	if len(productIDs) == 0 {
		return inventory.Snapshot{}, nil
	}

	var rows []models.StockModel
	err = r.do(ctx, "stock.quantities", func(db *gorm.DB) error {
		return db.Table(table).
			Select("product_id", "quantity").
			Where("product_id IN ?", productIDs).
			Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	return toSnapshot(rows), nil
}

// List returns the entries of a pool ordered by product name
func (r *GormStockRepository) List(ctx context.Context, pool inventory.Pool) ([]inventory.StockEntry, error) {
	table, err := models.StockTable(pool)
	if err != nil {
		return nil, err
	}

	var rows []models.StockModel
	err = r.do(ctx, "stock.list", func(db *gorm.DB) error {
		return db.Table(table).Order("product_name ASC").Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}

	entries := make([]inventory.StockEntry, len(rows))
	for i := range rows {
		entries[i] = rows[i].ToDomain(pool)
	}
	return entries, nil
}

// DecrementIfAvailable subtracts quantity in a single conditional update, so
// two concurrent sales can never take the same units
func (r *GormStockRepository) DecrementIfAvailable(ctx context.Context, pool inventory.Pool, productID uuid.UUID, quantity int64) error {
	table, err := models.StockTable(pool)
	if err != nil {
		return err
	}
	if quantity <= 0 {
		return shared.NewDomainError(shared.CodeValidation, "Quantity must be positive")
	}

	return r.do(ctx, "stock.decrement", func(db *gorm.DB) error {
		result := db.Table(table).
			Where("product_id = ? AND quantity >= ?", productID, quantity).
			UpdateColumns(map[string]any{
				"quantity":   gorm.Expr("quantity - ?", quantity),
				"updated_at": time.Now().UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			return nil
		}

		var row models.StockModel
		err := db.Table(table).Select("quantity").Where("product_id = ?", productID).Take(&row).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return inventory.NewShortageError(pool, productID, quantity, row.Quantity)
	})
}

// Increment adds quantity back to a product
func (r *GormStockRepository) Increment(ctx context.Context, pool inventory.Pool, productID uuid.UUID, quantity int64) error {
	table, err := models.StockTable(pool)
	if err != nil {
		return err
	}
	if quantity <= 0 {
		return shared.NewDomainError(shared.CodeValidation, "Quantity must be positive")
	}

	return r.do(ctx, "stock.increment", func(db *gorm.DB) error {
		result := db.Table(table).
			Where("product_id = ?", productID).
			UpdateColumns(map[string]any{
				"quantity":   gorm.Expr("quantity + ?", quantity),
				"updated_at": time.Now().UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// Upsert sets the quantity of a product, creating the row if needed. It is
// used by seeding and tests; sales only ever decrement and increment.
func (r *GormStockRepository) Upsert(ctx context.Context, entry inventory.StockEntry) error {
	table, err := models.StockTable(entry.Pool)
	if err != nil {
		return err
	}
	row := models.StockModel{
		ProductID:   entry.ProductID,
		ProductName: entry.ProductName,
		Quantity:    entry.Quantity,
		UpdatedAt:   time.Now().UTC(),
	}
	return r.do(ctx, "stock.upsert", func(db *gorm.DB) error {
		return db.Table(table).Save(&row).Error
	})
}

func toSnapshot(rows []models.StockModel) inventory.Snapshot {
	snapshot := make(inventory.Snapshot, len(rows))
	for _, row := range rows {
		snapshot[row.ProductID] = row.Quantity
	}
	return snapshot
}

// Ensure GormStockRepository implements StockRepository
var _ inventory.StockRepository = (*GormStockRepository)(nil)
