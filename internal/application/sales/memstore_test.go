package sales

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bizsuite/backend/internal/domain/inventory"
	"github.com/bizsuite/backend/internal/domain/sales"
	"github.com/bizsuite/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// memStore is an in-memory remote store with failure injection.
type memStore struct {
	mu        sync.Mutex
	sales     map[uuid.UUID]sales.Sale
	items     map[uuid.UUID]sales.SaleLineItem
	customers map[uuid.UUID]sales.Customer
	payments  []sales.PaymentRecord
	stock     map[inventory.Pool]map[uuid.UUID]int64
	invoices  map[string]bool

	failSaleInsert   error
	failItemInsertAt int // 1-based index of the item insert that fails
	failItemInsert   error
	failUpdate       error
	failAppend       error
	failDelete       error
	beforeDecrement  func(productID uuid.UUID)
	beforeUpdate     func()

	itemInserts     int
	customerInserts int
}

func newMemStore() *memStore {
	return &memStore{
		sales:     map[uuid.UUID]sales.Sale{},
		items:     map[uuid.UUID]sales.SaleLineItem{},
		customers: map[uuid.UUID]sales.Customer{},
		stock: map[inventory.Pool]map[uuid.UUID]int64{
			inventory.PoolFactory: {},
			inventory.PoolGodown:  {},
		},
		invoices: map[string]bool{},
	}
}

func (m *memStore) setStock(pool inventory.Pool, productID uuid.UUID, qty int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stock[pool][productID] = qty
}

func (m *memStore) stockOf(pool inventory.Pool, productID uuid.UUID) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stock[pool][productID]
}

func (m *memStore) counts() (salesCount, items, customers int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sales), len(m.items), len(m.customers)
}

func (m *memStore) saleRepo() *memSales         { return &memSales{m} }
func (m *memStore) itemRepo() *memItems         { return &memItems{m} }
func (m *memStore) customerRepo() *memCustomers { return &memCustomers{m} }
func (m *memStore) paymentRepo() *memPayments   { return &memPayments{m} }
func (m *memStore) stockRepo() *memStock        { return &memStock{m} }

type memSales struct{ *memStore }

func (r *memSales) FindByID(_ context.Context, id uuid.UUID) (*sales.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sale, ok := r.sales[id]
	if !ok {
		return nil, shared.NewDomainError(shared.CodeNotFound, "Sale not found")
	}
	sale.Items = nil
	return &sale, nil
}

func (r *memSales) FindAll(_ context.Context, _ sales.SaleFilter) ([]sales.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]sales.Sale, 0, len(r.sales))
	for _, s := range r.sales {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memSales) Insert(_ context.Context, sale *sales.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSaleInsert != nil {
		return r.failSaleInsert
	}
	if r.invoices[sale.InvoiceNumber] {
		return shared.NewDomainError(shared.CodeAlreadyExists, "Invoice number already used")
	}
	stored := *sale
	stored.Items = nil
	r.sales[sale.ID] = stored
	r.invoices[sale.InvoiceNumber] = true
	return nil
}

func (r *memSales) UpdatePayment(_ context.Context, current *sales.Sale, update sales.PaymentUpdate) error {
	if r.beforeUpdate != nil {
		r.beforeUpdate()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpdate != nil {
		return r.failUpdate
	}
	sale, ok := r.sales[current.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if !sale.PaidAmount.Equal(current.PaidAmount) || sale.Status != current.Status {
		return sales.NewSaleChangedError(current.ID)
	}
	sale.Apply(update)
	r.sales[current.ID] = sale
	return nil
}

func (r *memSales) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failDelete != nil {
		return r.failDelete
	}
	if sale, ok := r.sales[id]; ok {
		delete(r.invoices, sale.InvoiceNumber)
	}
	delete(r.sales, id)
	return nil
}

func (r *memSales) CountCreatedBetween(_ context.Context, from, to time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.sales {
		if !s.CreatedAt.Before(from) && s.CreatedAt.Before(to) {
			n++
		}
	}
	return n, nil
}

type memItems struct{ *memStore }

func (r *memItems) Insert(_ context.Context, item *sales.SaleLineItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.itemInserts++
	if r.failItemInsert != nil && r.itemInserts == r.failItemInsertAt {
		return r.failItemInsert
	}
	r.items[item.ID] = *item
	return nil
}

func (r *memItems) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failDelete != nil {
		return r.failDelete
	}
	delete(r.items, id)
	return nil
}

func (r *memItems) DeleteBySale(_ context.Context, saleID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, item := range r.items {
		if item.SaleID == saleID {
			delete(r.items, id)
		}
	}
	return nil
}

func (r *memItems) FindBySale(_ context.Context, saleID uuid.UUID) ([]sales.SaleLineItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sales.SaleLineItem
	for _, item := range r.items {
		if item.SaleID == saleID {
			out = append(out, item)
		}
	}
	return out, nil
}

type memCustomers struct{ *memStore }

func (r *memCustomers) FindByID(_ context.Context, id uuid.UUID) (*sales.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.customers[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &c, nil
}

func (r *memCustomers) Insert(_ context.Context, c *sales.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.customerInserts++
	r.customers[c.ID] = *c
	return nil
}

func (r *memCustomers) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failDelete != nil {
		return r.failDelete
	}
	delete(r.customers, id)
	return nil
}

type memPayments struct{ *memStore }

func (r *memPayments) Append(_ context.Context, record *sales.PaymentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAppend != nil {
		return r.failAppend
	}
	r.payments = append(r.payments, *record)
	return nil
}

func (r *memPayments) FindBySale(_ context.Context, saleID uuid.UUID) ([]sales.PaymentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sales.PaymentRecord
	for _, p := range r.payments {
		if p.SaleID == saleID {
			out = append(out, p)
		}
	}
	return out, nil
}

type memStock struct{ *memStore }

func (r *memStock) Snapshot(_ context.Context, pool inventory.Pool) (inventory.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := inventory.Snapshot{}
	for id, q := range r.stock[pool] {
		out[id] = q
	}
	return out, nil
}

func (r *memStock) Quantities(_ context.Context, pool inventory.Pool, ids []uuid.UUID) (inventory.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := inventory.Snapshot{}
	for _, id := range ids {
		if q, ok := r.stock[pool][id]; ok {
			out[id] = q
		}
	}
	return out, nil
}

func (r *memStock) List(_ context.Context, pool inventory.Pool) ([]inventory.StockEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []inventory.StockEntry
	for id, q := range r.stock[pool] {
		out = append(out, inventory.StockEntry{ProductID: id, Pool: pool, Quantity: q})
	}
	return out, nil
}

func (r *memStock) DecrementIfAvailable(_ context.Context, pool inventory.Pool, productID uuid.UUID, quantity int64) error {
	if r.beforeDecrement != nil {
		r.beforeDecrement(productID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	available := r.stock[pool][productID]
	if available < quantity {
		return inventory.NewShortageError(pool, productID, quantity, available)
	}
	r.stock[pool][productID] = available - quantity
	return nil
}

func (r *memStock) Increment(_ context.Context, pool inventory.Pool, productID uuid.UUID, quantity int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stock[pool][productID] += quantity
	return nil
}

// recordingNotifier counts refresh notifications.
type recordingNotifier struct {
	mu       sync.Mutex
	patched  []uuid.UUID
	deferred int
	now      int
}

func (n *recordingNotifier) SalePatched(sale *sales.Sale) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.patched = append(n.patched, sale.ID)
}

func (n *recordingNotifier) ReloadDeferred() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deferred++
}

func (n *recordingNotifier) ReloadNow() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.now++
}
