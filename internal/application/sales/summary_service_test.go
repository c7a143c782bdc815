package sales

import (
	"context"
	"testing"
	"time"

	"github.com/bizsuite/backend/internal/domain/inventory"
	"github.com/bizsuite/backend/internal/domain/sales"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummaryService_Summary(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	now := time.Date(2026, time.June, 30, 12, 0, 0, 0, time.UTC)

	add := func(total, paid int64, verified bool, createdAgo time.Duration, deliveryDate *time.Time) {
		require.NoError(t, store.saleRepo().Insert(ctx, &sales.Sale{
			ID:            uuid.New(),
			Type:          sales.SaleTypeCustomer,
			Pool:          inventory.PoolFactory,
			PaymentMethod: sales.PaymentMethodCredit,
			TotalAmount:   decimal.NewFromInt(total),
			PaidAmount:    decimal.NewFromInt(paid),
			Status:        sales.StatusPending,
			Verified:      verified,
			DeliveryDate:  deliveryDate,
			InvoiceNumber: uuid.NewString(),
			CreatedAt:     now.Add(-createdAgo),
		}))
	}

	yesterday := now.Add(-24 * time.Hour)
	nextWeek := now.Add(7 * 24 * time.Hour)

	add(1000, 1000, true, time.Hour, nil)             // paid
	add(500, 100, false, 2*time.Hour, nil)            // due, within credit term
	add(800, 0, false, 45*24*time.Hour, nil)          // overdue, credit term passed
	add(300, 0, false, time.Hour, &yesterday)         // overdue, delivery date passed
	add(200, 50, false, 40*24*time.Hour, &nextWeek)   // due, delivery date ahead
	add(400, 400, false, 60*24*time.Hour, nil)        // due, fully paid awaiting verification

	store.setStock(inventory.PoolFactory, uuid.New(), 120)
	store.setStock(inventory.PoolFactory, uuid.New(), 30)
	store.setStock(inventory.PoolGodown, uuid.New(), 75)

	svc := NewSummaryService(store.saleRepo(), store.stockRepo(), 0)
	svc.SetClock(func() time.Time { return now })

	summary, err := svc.Summary(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Paid.Count)
	assert.Equal(t, "1000", summary.Paid.Amount.String())
	assert.Equal(t, 2, summary.Overdue.Count)
	assert.Equal(t, "1100", summary.Overdue.Amount.String())
	assert.Equal(t, 3, summary.Due.Count)
	assert.Equal(t, "550", summary.Due.Amount.String())
	assert.Equal(t, int64(150), summary.Stock[inventory.PoolFactory])
	assert.Equal(t, int64(75), summary.Stock[inventory.PoolGodown])
	assert.Equal(t, now, summary.GeneratedAt)
}

func TestInventorySnapshotProvider(t *testing.T) {
	store := newMemStore()
	brick := uuid.New()
	store.setStock(inventory.PoolGodown, brick, 64)
	provider := NewInventorySnapshotProvider(store.stockRepo())

	snapshot, err := provider.Read(context.Background(), inventory.PoolGodown)
	require.NoError(t, err)
	assert.Equal(t, int64(64), snapshot.Available(brick))

	view, err := provider.List(context.Background(), inventory.PoolGodown)
	require.NoError(t, err)
	assert.Equal(t, int64(64), view.Total)
	assert.Len(t, view.Entries, 1)

	_, err = provider.Read(context.Background(), inventory.Pool("yard"))
	assert.ErrorIs(t, err, inventory.ErrUnknownPool)
}
