package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/bizsuite/backend/internal/domain/sales"
)

// DefaultInvoiceTag is used when no business tag is configured
const DefaultInvoiceTag = "BM"

// InvoiceSequencer allocates per-month invoice numbers of the form
// INV/<tag>-<MM>-<NNN>. The sequence is derived from the number of sales
// already created in the month and is not reserved; the unique index on
// sales.invoice_number catches collisions.
type InvoiceSequencer struct {
	sales    sales.SaleRepository
	tag      string
	location *time.Location
}

// NewInvoiceSequencer creates a new sequencer. A nil location means UTC.
func NewInvoiceSequencer(repo sales.SaleRepository, tag string, location *time.Location) *InvoiceSequencer {
	if tag == "" {
		tag = DefaultInvoiceTag
	}
	if location == nil {
		location = time.UTC
	}
	return &InvoiceSequencer{
		sales:    repo,
		tag:      tag,
		location: location,
	}
}

// Next returns the next invoice number for the month containing at
func (s *InvoiceSequencer) Next(ctx context.Context, at time.Time) (string, error) {
	return s.NextWithOffset(ctx, at, 0)
}

// NextWithOffset skips offset numbers past the count-derived one, used after
// a duplicate invoice number was rejected
func (s *InvoiceSequencer) NextWithOffset(ctx context.Context, at time.Time, offset int) (string, error) {
	start, end := MonthBounds(at, s.location)
	count, err := s.sales.CountCreatedBetween(ctx, start, end)
	if err != nil {
		return "", err
	}
	return FormatInvoiceNumber(s.tag, start.Month(), count+1+int64(offset)), nil
}

// FormatInvoiceNumber renders an invoice number with a zero-padded sequence
func FormatInvoiceNumber(tag string, month time.Month, seq int64) string {
	return fmt.Sprintf("INV/%s-%02d-%03d", tag, int(month), seq)
}

// MonthBounds returns [first instant of the month, first instant of the next month)
func MonthBounds(at time.Time, location *time.Location) (time.Time, time.Time) {
	local := at.In(location)
	start := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, location)
	return start, start.AddDate(0, 1, 0)
}
