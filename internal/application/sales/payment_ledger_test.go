package sales

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bizsuite/backend/internal/domain/inventory"
	"github.com/bizsuite/backend/internal/domain/sales"
	"github.com/bizsuite/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedSale(t *testing.T, store *memStore, total, paid int64, delivery bool, status sales.Status) *sales.Sale {
	t.Helper()
	method := sales.PaymentMethodCredit
	if delivery {
		method = sales.PaymentMethodPayOnDelivery
	}
	sale := &sales.Sale{
		ID:            uuid.New(),
		Type:          sales.SaleTypeCustomer,
		Pool:          inventory.PoolFactory,
		PaymentMethod: method,
		TotalAmount:   decimal.NewFromInt(total),
		PaidAmount:    decimal.NewFromInt(paid),
		Status:        status,
		Delivery:      delivery,
		InvoiceNumber: "INV/BM-05-" + uuid.NewString()[:3],
		CreatedAt:     time.Now(),
	}
	require.NoError(t, store.saleRepo().Insert(context.Background(), sale))
	return sale
}

func newLedger(store *memStore) (*PaymentLedger, *recordingNotifier) {
	ledger := NewPaymentLedger(store.saleRepo(), store.paymentRepo(), nil)
	notifier := &recordingNotifier{}
	ledger.SetNotifier(notifier)
	return ledger, notifier
}

func TestPaymentLedger_Apply_PartialThenFull(t *testing.T) {
	store := newMemStore()
	ledger, notifier := newLedger(store)
	sale := seedSale(t, store, 1000, 0, false, sales.StatusPending)
	ctx := context.Background()

	result, err := ledger.Apply(ctx, ApplyPaymentRequest{SaleID: sale.ID, Amount: decimal.NewFromInt(400)})
	require.NoError(t, err)
	assert.Equal(t, "400", result.Sale.PaidAmount.String())
	assert.Equal(t, sales.StatusPending, result.Sale.Status)
	assert.False(t, result.Sale.Verified)
	assert.False(t, result.IsFull)
	assert.NoError(t, result.LedgerErr)
	require.NotNil(t, result.Record)
	assert.Equal(t, []uuid.UUID{sale.ID}, notifier.patched, "partial payment patches in place")
	assert.Zero(t, notifier.deferred)

	result, err = ledger.Apply(ctx, ApplyPaymentRequest{SaleID: sale.ID, Amount: decimal.NewFromInt(600)})
	require.NoError(t, err)
	assert.Equal(t, "1000", result.Sale.PaidAmount.String())
	assert.Equal(t, sales.StatusPaid, result.Sale.Status)
	assert.True(t, result.Sale.Verified)
	assert.True(t, result.IsFull)
	assert.Equal(t, 1, notifier.deferred, "full payment defers a reload")

	stored, err := store.saleRepo().FindByID(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, "1000", stored.PaidAmount.String())
	assert.Equal(t, sales.StatusPaid, stored.Status)

	history, err := ledger.History(ctx, sale.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestPaymentLedger_Apply_UndeliveredDeliverySale(t *testing.T) {
	store := newMemStore()
	ledger, _ := newLedger(store)
	sale := seedSale(t, store, 800, 0, true, sales.StatusPending)

	result, err := ledger.Apply(context.Background(), ApplyPaymentRequest{SaleID: sale.ID, Amount: decimal.NewFromInt(800)})
	require.NoError(t, err)

	assert.Equal(t, sales.StatusDelivered, result.Sale.Status)
	assert.False(t, result.Sale.Verified)
}

func TestPaymentLedger_Apply_RereadsStoredPaidAmount(t *testing.T) {
	store := newMemStore()
	ledger, _ := newLedger(store)
	sale := seedSale(t, store, 1000, 0, false, sales.StatusPending)

	// another device recorded 300 after our copy was read
	require.NoError(t, store.saleRepo().UpdatePayment(context.Background(), sale, sales.PaymentUpdate{
		PaidAmount:    decimal.NewFromInt(300),
		Status:        sales.StatusPending,
		PaymentMethod: sales.PaymentMethodCredit,
	}))

	result, err := ledger.Apply(context.Background(), ApplyPaymentRequest{SaleID: sale.ID, Amount: decimal.NewFromInt(700)})
	require.NoError(t, err)
	assert.Equal(t, "1000", result.Sale.PaidAmount.String())
	assert.True(t, result.Sale.Verified)

	_, err = ledger.Apply(context.Background(), ApplyPaymentRequest{SaleID: sale.ID, Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestPaymentLedger_Apply_ExceedsOutstanding(t *testing.T) {
	store := newMemStore()
	ledger, _ := newLedger(store)
	sale := seedSale(t, store, 1000, 700, false, sales.StatusPending)

	_, err := ledger.Apply(context.Background(), ApplyPaymentRequest{SaleID: sale.ID, Amount: decimal.NewFromInt(301)})
	assert.ErrorIs(t, err, shared.ErrExceedsOutstanding)

	stored, _ := store.saleRepo().FindByID(context.Background(), sale.ID)
	assert.Equal(t, "700", stored.PaidAmount.String())
}

func TestPaymentLedger_Apply_UpdateFailureReloadsNow(t *testing.T) {
	store := newMemStore()
	ledger, notifier := newLedger(store)
	sale := seedSale(t, store, 1000, 0, false, sales.StatusPending)
	store.failUpdate = shared.WrapDomainError(shared.CodeRemoteWrite, "Could not record the payment", errors.New("timeout"))

	result, err := ledger.Apply(context.Background(), ApplyPaymentRequest{SaleID: sale.ID, Amount: decimal.NewFromInt(100)})

	assert.Nil(t, result)
	assert.ErrorIs(t, err, shared.ErrRemoteWrite)
	assert.Equal(t, 1, notifier.now)
	assert.Empty(t, store.payments)
}

func TestPaymentLedger_Apply_LedgerFailureIsIgnorable(t *testing.T) {
	store := newMemStore()
	ledger, _ := newLedger(store)
	sale := seedSale(t, store, 1000, 0, false, sales.StatusPending)
	store.failAppend = errors.New("payments table unavailable")

	result, err := ledger.Apply(context.Background(), ApplyPaymentRequest{SaleID: sale.ID, Amount: decimal.NewFromInt(250)})

	require.NoError(t, err)
	assert.Error(t, result.LedgerErr)
	assert.Nil(t, result.Record)
	assert.Equal(t, "250", result.Sale.PaidAmount.String())
}

func TestPaymentLedger_Apply_NotFound(t *testing.T) {
	store := newMemStore()
	ledger, _ := newLedger(store)

	_, err := ledger.Apply(context.Background(), ApplyPaymentRequest{SaleID: uuid.New(), Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestPaymentLedger_Apply_ConcurrentPaymentSettlesSale(t *testing.T) {
	store := newMemStore()
	ledger, _ := newLedger(store)
	sale := seedSale(t, store, 1000, 400, false, sales.StatusPending)
	ctx := context.Background()

	// a second device settles the sale between our read and our write
	var concurrentErr error
	store.beforeUpdate = func() {
		store.beforeUpdate = nil
		_, concurrentErr = ledger.Apply(ctx, ApplyPaymentRequest{SaleID: sale.ID, Amount: decimal.NewFromInt(600)})
	}

	result, err := ledger.Apply(ctx, ApplyPaymentRequest{SaleID: sale.ID, Amount: decimal.NewFromInt(100)})
	require.NoError(t, concurrentErr)

	assert.Nil(t, result)
	assert.ErrorIs(t, err, shared.ErrInvalidState, "the re-read sees a settled sale")

	stored, err := store.saleRepo().FindByID(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, "1000", stored.PaidAmount.String())
	assert.Equal(t, sales.StatusPaid, stored.Status)
	assert.True(t, stored.Verified)
	assert.Len(t, store.payments, 1)
}

func TestPaymentLedger_Apply_ConcurrentPartialPaymentsBothCount(t *testing.T) {
	store := newMemStore()
	ledger, _ := newLedger(store)
	sale := seedSale(t, store, 1000, 400, false, sales.StatusPending)
	ctx := context.Background()

	store.beforeUpdate = func() {
		store.beforeUpdate = nil
		_, err := ledger.Apply(ctx, ApplyPaymentRequest{SaleID: sale.ID, Amount: decimal.NewFromInt(200)})
		require.NoError(t, err)
	}

	result, err := ledger.Apply(ctx, ApplyPaymentRequest{SaleID: sale.ID, Amount: decimal.NewFromInt(100)})
	require.NoError(t, err)
	assert.Equal(t, "700", result.Sale.PaidAmount.String())

	stored, err := store.saleRepo().FindByID(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, "700", stored.PaidAmount.String())
	assert.Equal(t, sales.StatusPending, stored.Status)
	assert.Len(t, store.payments, 2)
}

func TestPaymentLedger_Apply_GivesUpAfterRepeatedConflicts(t *testing.T) {
	store := newMemStore()
	ledger, notifier := newLedger(store)
	sale := seedSale(t, store, 1000, 0, false, sales.StatusPending)
	ctx := context.Background()

	bumps := 0
	store.beforeUpdate = func() {
		bumps++
		store.mu.Lock()
		defer store.mu.Unlock()
		stored := store.sales[sale.ID]
		stored.PaidAmount = stored.PaidAmount.Add(decimal.NewFromInt(10))
		store.sales[sale.ID] = stored
	}

	result, err := ledger.Apply(ctx, ApplyPaymentRequest{SaleID: sale.ID, Amount: decimal.NewFromInt(100)})

	assert.Nil(t, result)
	assert.ErrorIs(t, err, sales.ErrSaleChanged)
	assert.True(t, shared.IsTransient(err))
	assert.Equal(t, MaxPaymentAttempts, bumps)
	assert.Equal(t, 1, notifier.now)
	assert.Empty(t, store.payments)

	stored, _ := store.saleRepo().FindByID(ctx, sale.ID)
	assert.Equal(t, "30", stored.PaidAmount.String(), "only the other writer's changes remain")
}
