package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bizsuite/backend/internal/application/saga"
	"github.com/bizsuite/backend/internal/domain/inventory"
	"github.com/bizsuite/backend/internal/domain/sales"
	"github.com/bizsuite/backend/internal/domain/shared"
	"github.com/bizsuite/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// MaxInvoiceAttempts bounds re-allocation after duplicate invoice numbers
const MaxInvoiceAttempts = 3

// CreateSaleRequest is the input of SaleSaga.Create
type CreateSaleRequest struct {
	CustomerID      *uuid.UUID
	Customer        sales.CustomerInfo
	PersistCustomer bool
	Type            sales.SaleType
	Pool            inventory.Pool
	PaymentMethod   sales.PaymentMethod
	Delivery        bool
	DeliveryDate    *time.Time
	AmountPaid      decimal.Decimal
	Lines           []sales.LineRequest
}

// CreateSaleResult is the committed sale
type CreateSaleResult struct {
	Sale            *sales.Sale
	CustomerCreated bool
}

// SaleSaga writes a sale across the sales, sale_items, customers and stock
// tables. Every completed write registers an undo; the first failure runs the
// undos newest first.
type SaleSaga struct {
	sales     sales.SaleRepository
	items     sales.SaleItemRepository
	stock     inventory.StockRepository
	resolver  *CustomerResolver
	customers sales.CustomerRepository
	sequencer *InvoiceSequencer
	notifier  RefreshNotifier
	metrics   *telemetry.SalesMetrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewSaleSaga creates a new sale saga
func NewSaleSaga(
	saleRepo sales.SaleRepository,
	itemRepo sales.SaleItemRepository,
	stockRepo inventory.StockRepository,
	customerRepo sales.CustomerRepository,
	sequencer *InvoiceSequencer,
	logger *zap.Logger,
) *SaleSaga {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SaleSaga{
		sales:     saleRepo,
		items:     itemRepo,
		stock:     stockRepo,
		resolver:  NewCustomerResolver(customerRepo, logger),
		customers: customerRepo,
		sequencer: sequencer,
		notifier:  nopNotifier{},
		logger:    logger,
		now:       time.Now,
	}
}

// SetNotifier sets the refresh notifier
func (s *SaleSaga) SetNotifier(n RefreshNotifier) {
	if n != nil {
		s.notifier = n
	}
}

// SetMetrics sets the sales metrics recorder
func (s *SaleSaga) SetMetrics(m *telemetry.SalesMetrics) {
	s.metrics = m
}

// SetClock overrides the time source
func (s *SaleSaga) SetClock(now func() time.Time) {
	s.now = now
}

// Create validates the request, re-checks live stock and commits the sale.
// Nothing is written when validation or the stock pre-check fails. A failure
// after the first write undoes the customer, sale, items and stock decrements
// made so far and returns a *sales.SaleFailedError.
func (s *SaleSaga) Create(ctx context.Context, req CreateSaleRequest) (*CreateSaleResult, error) {
	started := time.Now()
	ctx, span := telemetry.StartServiceSpan(ctx, "sale_saga", "create",
		telemetry.SpanAttrSaleType, string(req.Type),
		telemetry.SpanAttrPool, req.Pool.String(),
	)
	defer span.End()

	if !req.Type.IsValid() {
		return nil, shared.NewDomainError(shared.CodeValidation, "Invalid sale type")
	}
	if !req.Pool.IsValid() {
		return nil, inventory.ErrUnknownPool
	}
	if req.PaymentMethod != "" && !req.PaymentMethod.IsValid() {
		return nil, shared.NewDomainError(shared.CodeValidation, "Invalid payment method")
	}
	if req.AmountPaid.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeValidation, "Amount paid cannot be negative")
	}
	if err := shared.ValidateMoney("Amount paid", req.AmountPaid); err != nil {
		return nil, err
	}
	lines, err := sales.SelectLines(req.Lines)
	if err != nil {
		return nil, err
	}
	if err := sales.ValidateLines(lines); err != nil {
		return nil, err
	}
	method := sales.EffectivePaymentMethod(req.Type, req.Delivery, req.PaymentMethod)
	telemetry.SetAttributes(span, telemetry.SpanAttrLines, len(lines))

	if err := s.precheckStock(ctx, req.Pool, lines); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	comp := saga.NewCompensator(s.logger)

	resolution, err := s.resolver.Resolve(ctx, ResolveCustomerRequest{
		SelectedID: req.CustomerID,
		Info:       req.Customer,
		Persist:    req.PersistCustomer,
		SaleType:   req.Type,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if resolution.Created {
		customerID := *resolution.CustomerID
		comp.Push("delete customer", func(ctx context.Context) error {
			return s.customers.Delete(ctx, customerID)
		})
	}

	sale, err := s.insertSale(ctx, comp, req, lines, method, resolution.CustomerID)
	if err != nil {
		return nil, s.abort(ctx, span, comp, started, "", []sales.LineFailure{{Err: err}})
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrSaleID, sale.ID.String(),
		telemetry.SpanAttrInvoiceNumber, sale.InvoiceNumber,
	)

	for i := range sale.Items {
		item := sale.Items[i]
		if err := s.commitLine(ctx, comp, sale.Pool, &item); err != nil {
			return nil, s.abort(ctx, span, comp, started, sale.InvoiceNumber, []sales.LineFailure{{
				ProductID:   item.ProductID,
				ProductName: item.ProductName,
				Err:         err,
			}})
		}
	}

	comp.Discard()
	s.metrics.RecordSaleCreated(ctx, string(sale.Type), sale.Pool.String(), time.Since(started))
	s.notifier.ReloadDeferred()
	telemetry.SetOK(span)

	s.logger.Info("sale created",
		zap.String("sale_id", sale.ID.String()),
		zap.String("invoice_number", sale.InvoiceNumber),
		zap.String("sale_type", string(sale.Type)),
		zap.String("payment_method", string(sale.PaymentMethod)),
		zap.String("total_amount", sale.TotalAmount.String()),
		zap.Int("items", len(sale.Items)),
	)

	return &CreateSaleResult{Sale: sale, CustomerCreated: resolution.Created}, nil
}

// precheckStock re-reads live stock for every requested product and refuses
// the sale before any write if one of them is short.
func (s *SaleSaga) precheckStock(ctx context.Context, pool inventory.Pool, lines []sales.LineRequest) error {
	demand := inventory.Demand{}
	names := make(map[uuid.UUID]string, len(lines))
	for _, line := range lines {
		demand.Add(line.ProductID, line.Quantity)
		if line.ProductName != "" {
			names[line.ProductID] = line.ProductName
		}
	}

	live, err := s.stock.Quantities(ctx, pool, demand.ProductIDs())
	if err != nil {
		return err
	}

	err = live.Check(pool, demand)
	var stockErr *inventory.InsufficientStockError
	if errors.As(err, &stockErr) {
		for i := range stockErr.Shortages {
			stockErr.Shortages[i].ProductName = names[stockErr.Shortages[i].ProductID]
		}
		s.metrics.RecordStockShortage(ctx, pool.String())
		s.logger.Info("sale refused, insufficient stock",
			zap.String("pool", pool.String()),
			zap.Int("short_products", len(stockErr.Shortages)),
		)
	}
	return err
}

// insertSale allocates an invoice number and writes the sale row, allocating
// again with a growing offset when another device took the number first.
func (s *SaleSaga) insertSale(
	ctx context.Context,
	comp *saga.Compensator,
	req CreateSaleRequest,
	lines []sales.LineRequest,
	method sales.PaymentMethod,
	customerID *uuid.UUID,
) (*sales.Sale, error) {
	now := s.now()
	var sale *sales.Sale

	for attempt := 0; attempt < MaxInvoiceAttempts; attempt++ {
		number, err := s.sequencer.NextWithOffset(ctx, now, attempt)
		if err != nil {
			return nil, err
		}

		if sale == nil {
			sale, err = sales.NewSale(sales.NewSaleParams{
				CustomerID:    customerID,
				Customer:      req.Customer,
				Type:          req.Type,
				Pool:          req.Pool,
				PaymentMethod: method,
				Delivery:      req.Delivery,
				DeliveryDate:  req.DeliveryDate,
				InvoiceNumber: number,
				UpfrontAmount: req.AmountPaid,
				Lines:         lines,
				CreatedAt:     now,
			})
			if err != nil {
				return nil, err
			}
		} else {
			sale.SetInvoiceNumber(number)
		}

		err = s.sales.Insert(ctx, sale)
		if err == nil {
			s.pushDeleteSale(comp, sale.ID)
			return sale, nil
		}
		if errors.Is(err, shared.ErrAlreadyExists) {
			s.logger.Warn("invoice number taken, allocating again",
				zap.String("invoice_number", number),
				zap.Int("attempt", attempt+1),
			)
			continue
		}
		if shared.IsTransient(err) {
			// the row may have landed before the call timed out
			s.pushDeleteSale(comp, sale.ID)
		}
		return nil, err
	}

	return nil, shared.NewDomainError(shared.CodeAlreadyExists,
		fmt.Sprintf("Could not allocate a free invoice number after %d attempts", MaxInvoiceAttempts))
}

func (s *SaleSaga) pushDeleteSale(comp *saga.Compensator, saleID uuid.UUID) {
	comp.Push("delete sale", func(ctx context.Context) error {
		return s.sales.Delete(ctx, saleID)
	})
}

// commitLine takes the line's quantity out of stock and writes the line item.
func (s *SaleSaga) commitLine(ctx context.Context, comp *saga.Compensator, pool inventory.Pool, item *sales.SaleLineItem) error {
	if err := s.stock.DecrementIfAvailable(ctx, pool, item.ProductID, item.Quantity); err != nil {
		return err
	}
	productID, quantity := item.ProductID, item.Quantity
	comp.Push("restore stock", func(ctx context.Context) error {
		return s.stock.Increment(ctx, pool, productID, quantity)
	})

	err := s.items.Insert(ctx, item)
	if err == nil || shared.IsTransient(err) {
		itemID := item.ID
		comp.Push("delete sale item", func(ctx context.Context) error {
			return s.items.Delete(ctx, itemID)
		})
	}
	return err
}

// abort runs the compensation stack and builds the aggregated error. When
// nothing had been written the first reason is returned unchanged.
func (s *SaleSaga) abort(
	ctx context.Context,
	span trace.Span,
	comp *saga.Compensator,
	started time.Time,
	invoiceNumber string,
	failures []sales.LineFailure,
) error {
	if comp.Len() == 0 {
		telemetry.RecordError(span, failures[0].Err)
		return failures[0].Err
	}

	undoFailures := comp.Compensate(ctx)
	reason := shared.CodeOf(failures[0].Err)
	if reason == "" {
		reason = "unknown"
	}
	s.metrics.RecordCompensation(ctx, reason, time.Since(started))
	s.notifier.ReloadNow()

	err := &sales.SaleFailedError{InvoiceNumber: invoiceNumber, Failures: failures}
	telemetry.RecordError(span, err)

	fields := []zap.Field{
		zap.String("invoice_number", invoiceNumber),
		zap.String("reason", reason),
		zap.Int("compensation_failures", len(undoFailures)),
		zap.Error(failures[0].Err),
	}
	if len(undoFailures) > 0 {
		s.logger.Error("sale rolled back with leftovers", fields...)
	} else {
		s.logger.Warn("sale rolled back", fields...)
	}
	return err
}
