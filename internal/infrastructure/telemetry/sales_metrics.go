package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
var (
	AttrSaleType = attribute.Key("sale_type")
	AttrPool     = attribute.Key("pool")
	AttrOutcome  = attribute.Key("outcome")
	AttrIntent   = attribute.Key("intent")
	AttrFull     = attribute.Key("full")
	AttrReason   = attribute.Key("reason")
)

// Replay outcomes
const (
	ReplaySucceeded = "succeeded"
	ReplayRetrying  = "retrying"
	ReplayDead      = "dead"
)

// SalesMetrics records sale, payment and replay activity.
// All methods are safe to call on a nil receiver.
type SalesMetrics struct {
	salesCreated        *Counter
	saleDuration        *Histogram
	compensations       *Counter
	stockShortages      *Counter
	paymentsApplied     *Counter
	verificationsQueued *Counter
	replays             *Counter
}

// NewSalesMetrics registers the sales instruments on meter.
func NewSalesMetrics(meter metric.Meter) (*SalesMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	m := &SalesMetrics{}
	var err error

	if m.salesCreated, err = NewCounter(meter, "biz_sales_created_total", "Sales committed", "{sales}"); err != nil {
		return nil, err
	}
	if m.saleDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "biz_sale_create_duration_seconds",
		Description: "Time spent creating a sale including compensation",
		Unit:        "s",
		Boundaries:  []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}); err != nil {
		return nil, err
	}
	if m.compensations, err = NewCounter(meter, "biz_sale_compensations_total", "Sales rolled back after a failed step", "{sales}"); err != nil {
		return nil, err
	}
	if m.stockShortages, err = NewCounter(meter, "biz_stock_shortages_total", "Sales refused for insufficient stock", "{sales}"); err != nil {
		return nil, err
	}
	if m.paymentsApplied, err = NewCounter(meter, "biz_payments_applied_total", "Payments applied to sales", "{payments}"); err != nil {
		return nil, err
	}
	if m.verificationsQueued, err = NewCounter(meter, "biz_verifications_queued_total", "Status calls queued for replay", "{calls}"); err != nil {
		return nil, err
	}
	if m.replays, err = NewCounter(meter, "biz_verification_replays_total", "Replayed status calls by outcome", "{calls}"); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordSaleCreated counts a committed sale.
func (m *SalesMetrics) RecordSaleCreated(ctx context.Context, saleType, pool string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.salesCreated.Inc(ctx, AttrSaleType.String(saleType), AttrPool.String(pool))
	m.saleDuration.RecordDuration(ctx, elapsed, AttrOutcome.String("committed"))
}

// RecordCompensation counts a rolled back sale.
func (m *SalesMetrics) RecordCompensation(ctx context.Context, reason string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.compensations.Inc(ctx, AttrReason.String(reason))
	m.saleDuration.RecordDuration(ctx, elapsed, AttrOutcome.String("compensated"))
}

// RecordStockShortage counts a sale refused before any write.
func (m *SalesMetrics) RecordStockShortage(ctx context.Context, pool string) {
	if m == nil {
		return
	}
	m.stockShortages.Inc(ctx, AttrPool.String(pool))
}

// RecordPaymentApplied counts an applied payment.
func (m *SalesMetrics) RecordPaymentApplied(ctx context.Context, full bool) {
	if m == nil {
		return
	}
	m.paymentsApplied.Inc(ctx, AttrFull.Bool(full))
}

// RecordVerificationQueued counts a status call moved to the local queue.
func (m *SalesMetrics) RecordVerificationQueued(ctx context.Context, intent string) {
	if m == nil {
		return
	}
	m.verificationsQueued.Inc(ctx, AttrIntent.String(intent))
}

// RecordReplay counts a replayed status call.
func (m *SalesMetrics) RecordReplay(ctx context.Context, intent, outcome string) {
	if m == nil {
		return
	}
	m.replays.Inc(ctx, AttrIntent.String(intent), AttrOutcome.String(outcome))
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewSalesMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
