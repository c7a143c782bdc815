package inventory

import (
	"context"

	"github.com/google/uuid"
)

// StockRepository defines persistence for the per-pool stock tables
type StockRepository interface {
	// Snapshot reads every stock row of a pool
	Snapshot(ctx context.Context, pool Pool) (Snapshot, error)

	// Quantities reads the live quantity of the given products
	Quantities(ctx context.Context, pool Pool, productIDs []uuid.UUID) (Snapshot, error)

	// List returns the stock entries of a pool ordered by product name
	List(ctx context.Context, pool Pool) ([]StockEntry, error)

	// DecrementIfAvailable atomically subtracts quantity when at least that much
	// is on hand. It returns an *InsufficientStockError otherwise.
	DecrementIfAvailable(ctx context.Context, pool Pool, productID uuid.UUID, quantity int64) error

	// Increment adds quantity back to a product, used to undo a decrement
	Increment(ctx context.Context, pool Pool, productID uuid.UUID, quantity int64) error
}
