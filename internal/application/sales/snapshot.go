package sales

import (
	"context"
	"time"

	"github.com/bizsuite/backend/internal/domain/inventory"
	"github.com/bizsuite/backend/internal/infrastructure/telemetry"
)

// InventorySnapshotProvider reads the current stock of a pool.
// The result is advisory; SaleSaga re-checks before writing.
type InventorySnapshotProvider struct {
	stock inventory.StockRepository
}

// NewInventorySnapshotProvider creates a new snapshot provider
func NewInventorySnapshotProvider(stock inventory.StockRepository) *InventorySnapshotProvider {
	return &InventorySnapshotProvider{stock: stock}
}

// Read returns product id to quantity for the pool
func (p *InventorySnapshotProvider) Read(ctx context.Context, pool inventory.Pool) (inventory.Snapshot, error) {
	if !pool.IsValid() {
		return nil, inventory.ErrUnknownPool
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "inventory_snapshot", "read", telemetry.SpanAttrPool, pool.String())
	defer span.End()

	snapshot, err := p.stock.Snapshot(ctx, pool)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return snapshot, nil
}

// StockView is a pool listing with the time it was read
type StockView struct {
	Pool    inventory.Pool
	Entries []inventory.StockEntry
	Total   int64
	ReadAt  time.Time
}

// List returns the named stock rows of a pool
func (p *InventorySnapshotProvider) List(ctx context.Context, pool inventory.Pool) (*StockView, error) {
	if !pool.IsValid() {
		return nil, inventory.ErrUnknownPool
	}
	entries, err := p.stock.List(ctx, pool)
	if err != nil {
		return nil, err
	}
	view := &StockView{Pool: pool, Entries: entries, ReadAt: time.Now()}
	for _, e := range entries {
		view.Total += e.Quantity
	}
	return view, nil
}
