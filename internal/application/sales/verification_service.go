package sales

import (
	"context"
	"fmt"

	"github.com/bizsuite/backend/internal/domain/sales"
	"github.com/bizsuite/backend/internal/domain/shared"
	"github.com/bizsuite/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// VerificationResult is the status a sale has, or will have once a queued
// call is replayed
type VerificationResult struct {
	SaleID   uuid.UUID
	Status   sales.Status
	Verified bool
	Queued   bool
}

// VerificationService confirms payments and deliveries through the remote
// status call. A transient failure is queued locally instead of surfacing.
type VerificationService struct {
	sales       sales.SaleRepository
	rpc         sales.StatusUpdater
	queue       VerificationQueue
	notifier    RefreshNotifier
	metrics     *telemetry.SalesMetrics
	logger      *zap.Logger
	maxAttempts int
}

// NewVerificationService creates a new verification service
func NewVerificationService(
	saleRepo sales.SaleRepository,
	rpc sales.StatusUpdater,
	queue VerificationQueue,
	maxAttempts int,
	logger *zap.Logger,
) *VerificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VerificationService{
		sales:       saleRepo,
		rpc:         rpc,
		queue:       queue,
		notifier:    nopNotifier{},
		logger:      logger,
		maxAttempts: maxAttempts,
	}
}

// SetNotifier sets the refresh notifier
func (s *VerificationService) SetNotifier(n RefreshNotifier) {
	if n != nil {
		s.notifier = n
	}
}

// SetMetrics sets the sales metrics recorder
func (s *VerificationService) SetMetrics(m *telemetry.SalesMetrics) {
	s.metrics = m
}

// Verify marks a fully paid sale as verified and paid. Delivery sales must
// have been delivered first.
func (s *VerificationService) Verify(ctx context.Context, saleID uuid.UUID) (*VerificationResult, error) {
	sale, err := s.sales.FindByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if !sale.IsFullyPaid() {
		return nil, shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Sale %s still has %s outstanding", sale.InvoiceNumber, sale.Outstanding().StringFixed(2)))
	}
	if sale.Delivery && !sale.IsDelivered() {
		return nil, shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Sale %s has not been delivered yet", sale.InvoiceNumber))
	}
	if sale.Verified && sale.Status.IsTerminal() {
		return &VerificationResult{SaleID: sale.ID, Status: sale.Status, Verified: true}, nil
	}

	return s.call(ctx, sale, sales.IntentVerifyPayment, sale.Status.Advance(sales.StatusPaid), true)
}

// MarkDelivered moves a delivery sale to delivered
func (s *VerificationService) MarkDelivered(ctx context.Context, saleID uuid.UUID) (*VerificationResult, error) {
	sale, err := s.sales.FindByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if !sale.Delivery {
		return nil, shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Sale %s is not a delivery sale", sale.InvoiceNumber))
	}
	if sale.IsDelivered() {
		return &VerificationResult{SaleID: sale.ID, Status: sale.Status, Verified: sale.Verified}, nil
	}

	return s.call(ctx, sale, sales.IntentMarkDelivered, sales.StatusDelivered, sale.Verified)
}

func (s *VerificationService) call(
	ctx context.Context,
	sale *sales.Sale,
	intent sales.Intent,
	status sales.Status,
	verified bool,
) (*VerificationResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "verification", string(intent),
		telemetry.SpanAttrSaleID, sale.ID.String(),
		telemetry.SpanAttrStatus, string(status),
	)
	defer span.End()

	result := &VerificationResult{SaleID: sale.ID, Status: status, Verified: verified}

	err := s.rpc.UpdateSalePaymentStatus(ctx, sale.ID, status, verified)
	if err == nil {
		s.notifier.ReloadDeferred()
		telemetry.SetOK(span)
		s.logger.Info("sale status updated",
			zap.String("sale_id", sale.ID.String()),
			zap.String("invoice_number", sale.InvoiceNumber),
			zap.String("intent", string(intent)),
			zap.String("status", string(status)),
		)
		return result, nil
	}
	if !shared.IsTransient(err) {
		telemetry.RecordError(span, err)
		return nil, err
	}

	entry, qerr := sales.NewPendingVerification(sale.ID, intent, status, verified, s.maxAttempts)
	if qerr == nil {
		qerr = s.queue.Enqueue(ctx, entry)
	}
	if qerr != nil {
		telemetry.RecordError(span, qerr)
		s.logger.Error("failed to queue status update",
			zap.String("sale_id", sale.ID.String()),
			zap.String("intent", string(intent)),
			zap.NamedError("call_error", err),
			zap.Error(qerr),
		)
		return nil, err
	}

	s.metrics.RecordVerificationQueued(ctx, string(intent))
	telemetry.AddEvent(span, "queued", telemetry.SpanAttrIntent, string(intent))
	s.logger.Warn("status update queued for replay",
		zap.String("sale_id", sale.ID.String()),
		zap.String("invoice_number", sale.InvoiceNumber),
		zap.String("intent", string(intent)),
		zap.Error(err),
	)

	result.Queued = true
	return result, nil
}
