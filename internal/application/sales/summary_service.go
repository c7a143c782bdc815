package sales

import (
	"context"
	"time"

	"github.com/bizsuite/backend/internal/domain/inventory"
	"github.com/bizsuite/backend/internal/domain/sales"
	"github.com/shopspring/decimal"
)

// DefaultCreditTerm is how long an unverified sale without delivery date stays due
const DefaultCreditTerm = 30 * 24 * time.Hour

// Bucket is a count and amount of sales
type Bucket struct {
	Count  int
	Amount decimal.Decimal
}

func (b *Bucket) add(amount decimal.Decimal) {
	b.Count++
	b.Amount = b.Amount.Add(amount)
}

// Summary holds dashboard totals computed from authoritative rows
type Summary struct {
	Due         Bucket
	Overdue     Bucket
	Paid        Bucket
	Stock       map[inventory.Pool]int64
	GeneratedAt time.Time
}

// SummaryService recomputes totals on every read instead of keeping counters
type SummaryService struct {
	sales      sales.SaleRepository
	stock      inventory.StockRepository
	creditTerm time.Duration
	now        func() time.Time
}

// NewSummaryService creates a new summary service. creditTerm <= 0 uses DefaultCreditTerm.
func NewSummaryService(saleRepo sales.SaleRepository, stockRepo inventory.StockRepository, creditTerm time.Duration) *SummaryService {
	if creditTerm <= 0 {
		creditTerm = DefaultCreditTerm
	}
	return &SummaryService{
		sales:      saleRepo,
		stock:      stockRepo,
		creditTerm: creditTerm,
		now:        time.Now,
	}
}

// SetClock overrides the time source
func (s *SummaryService) SetClock(now func() time.Time) {
	s.now = now
}

// Summary classifies every sale: verified sales are paid; unverified sales are
// overdue once their due date has passed with money outstanding, due otherwise.
func (s *SummaryService) Summary(ctx context.Context) (*Summary, error) {
	all, err := s.sales.FindAll(ctx, sales.SaleFilter{})
	if err != nil {
		return nil, err
	}

	now := s.now()
	summary := &Summary{
		Due:         Bucket{Amount: decimal.Zero},
		Overdue:     Bucket{Amount: decimal.Zero},
		Paid:        Bucket{Amount: decimal.Zero},
		Stock:       make(map[inventory.Pool]int64, 2),
		GeneratedAt: now,
	}

	for i := range all {
		sale := &all[i]
		switch {
		case sale.Verified:
			summary.Paid.add(sale.PaidAmount)
		case sale.Outstanding().IsPositive() && now.After(sale.DueDate(s.creditTerm)):
			summary.Overdue.add(sale.Outstanding())
		default:
			summary.Due.add(sale.Outstanding())
		}
	}

	for _, pool := range inventory.AllPools() {
		snapshot, err := s.stock.Snapshot(ctx, pool)
		if err != nil {
			return nil, err
		}
		summary.Stock[pool] = snapshot.Total()
	}

	return summary, nil
}
