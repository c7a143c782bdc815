package sales

import (
	"context"
	"errors"

	"github.com/bizsuite/backend/internal/domain/sales"
	"github.com/bizsuite/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MaxPaymentAttempts bounds how often Apply re-reads a sale that another
// writer changed between its read and its conditional update.
const MaxPaymentAttempts = 3

// ApplyPaymentRequest is the input of PaymentLedger.Apply
type ApplyPaymentRequest struct {
	SaleID uuid.UUID
	Amount decimal.Decimal
	Method sales.PaymentMethod
}

// PaymentResult is the new state of a sale after a payment.
// LedgerErr reports the supplementary payments write; callers may ignore it.
type PaymentResult struct {
	Sale      *sales.Sale
	IsFull    bool
	Record    *sales.PaymentRecord
	LedgerErr error
}

// PaymentLedger applies payments to existing sales
type PaymentLedger struct {
	sales    sales.SaleRepository
	payments sales.PaymentRepository
	notifier RefreshNotifier
	metrics  *telemetry.SalesMetrics
	logger   *zap.Logger
}

// NewPaymentLedger creates a new payment ledger
func NewPaymentLedger(saleRepo sales.SaleRepository, paymentRepo sales.PaymentRepository, logger *zap.Logger) *PaymentLedger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentLedger{
		sales:    saleRepo,
		payments: paymentRepo,
		notifier: nopNotifier{},
		logger:   logger,
	}
}

// SetNotifier sets the refresh notifier
func (l *PaymentLedger) SetNotifier(n RefreshNotifier) {
	if n != nil {
		l.notifier = n
	}
}

// SetMetrics sets the sales metrics recorder
func (l *PaymentLedger) SetMetrics(m *telemetry.SalesMetrics) {
	l.metrics = m
}

// Apply adds amount to the stored paid amount and writes the resulting
// status, verified flag, paid amount and method in one conditional update.
// The stored row is re-read first so concurrent edits from other devices are
// not lost; a write that races another one is recomputed from a fresh read.
func (l *PaymentLedger) Apply(ctx context.Context, req ApplyPaymentRequest) (*PaymentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment_ledger", "apply",
		telemetry.SpanAttrSaleID, req.SaleID.String(),
		telemetry.SpanAttrAmount, req.Amount.String(),
	)
	defer span.End()

	sale, transition, err := l.commit(ctx, req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	result := &PaymentResult{Sale: sale, IsFull: transition.IsFull}
	record := sales.NewPaymentRecord(sale.ID, req.Amount, transition.PaymentMethod)
	if err := l.payments.Append(ctx, record); err != nil {
		result.LedgerErr = err
		l.logger.Warn("payment record not written",
			zap.String("sale_id", sale.ID.String()),
			zap.String("invoice_number", sale.InvoiceNumber),
			zap.Error(err),
		)
	} else {
		result.Record = record
	}

	if transition.IsFull {
		l.notifier.ReloadDeferred()
	} else {
		l.notifier.SalePatched(sale)
	}

	l.metrics.RecordPaymentApplied(ctx, transition.IsFull)
	telemetry.SetAttributes(span,
		telemetry.SpanAttrStatus, string(sale.Status),
		telemetry.SpanAttrInvoiceNumber, sale.InvoiceNumber,
	)
	telemetry.SetOK(span)

	l.logger.Info("payment applied",
		zap.String("sale_id", sale.ID.String()),
		zap.String("invoice_number", sale.InvoiceNumber),
		zap.String("amount", req.Amount.String()),
		zap.String("paid_amount", sale.PaidAmount.String()),
		zap.String("status", string(sale.Status)),
		zap.Bool("verified", sale.Verified),
	)

	return result, nil
}

// commit reads, computes and conditionally writes a payment, starting over
// when the row changed underneath it.
func (l *PaymentLedger) commit(ctx context.Context, req ApplyPaymentRequest) (*sales.Sale, *sales.PaymentTransition, error) {
	for attempt := 1; ; attempt++ {
		sale, err := l.sales.FindByID(ctx, req.SaleID)
		if err != nil {
			return nil, nil, err
		}

		transition, err := sales.ApplyPayment(sale, req.Amount, req.Method)
		if err != nil {
			return nil, nil, err
		}

		err = l.sales.UpdatePayment(ctx, sale, transition.PaymentUpdate)
		if err == nil {
			sale.Apply(transition.PaymentUpdate)
			return sale, transition, nil
		}

		if errors.Is(err, sales.ErrSaleChanged) && attempt < MaxPaymentAttempts {
			l.logger.Debug("sale changed during payment, re-reading",
				zap.String("sale_id", sale.ID.String()),
				zap.Int("attempt", attempt),
			)
			continue
		}

		l.logger.Error("failed to apply payment",
			zap.String("sale_id", sale.ID.String()),
			zap.String("invoice_number", sale.InvoiceNumber),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		l.notifier.ReloadNow()
		return nil, nil, err
	}
}

// History returns the supplementary payment records of a sale
func (l *PaymentLedger) History(ctx context.Context, saleID uuid.UUID) ([]sales.PaymentRecord, error) {
	return l.payments.FindBySale(ctx, saleID)
}
