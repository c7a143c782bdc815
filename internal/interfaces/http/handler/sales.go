package handler

import (
	"context"

	appsales "github.com/bizsuite/backend/internal/application/sales"
	"github.com/bizsuite/backend/internal/domain/sales"
	"github.com/bizsuite/backend/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SaleCreator commits new sales
type SaleCreator interface {
	Create(ctx context.Context, req appsales.CreateSaleRequest) (*appsales.CreateSaleResult, error)
}

// PaymentApplier records payments against existing sales
type PaymentApplier interface {
	Apply(ctx context.Context, req appsales.ApplyPaymentRequest) (*appsales.PaymentResult, error)
	History(ctx context.Context, saleID uuid.UUID) ([]sales.PaymentRecord, error)
}

// SaleVerifier confirms payments and deliveries
type SaleVerifier interface {
	Verify(ctx context.Context, saleID uuid.UUID) (*appsales.VerificationResult, error)
	MarkDelivered(ctx context.Context, saleID uuid.UUID) (*appsales.VerificationResult, error)
}

// SaleReader reads sale rows
type SaleReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*sales.Sale, error)
	FindAll(ctx context.Context, filter sales.SaleFilter) ([]sales.Sale, error)
}

// SaleItemReader reads the lines of a sale
type SaleItemReader interface {
	FindBySale(ctx context.Context, saleID uuid.UUID) ([]sales.SaleLineItem, error)
}

// SaleHandler handles sale creation, payment and verification endpoints
type SaleHandler struct {
	BaseHandler
	creator  SaleCreator
	payments PaymentApplier
	verifier SaleVerifier
	sales    SaleReader
	items    SaleItemReader
}

// NewSaleHandler creates a new SaleHandler
func NewSaleHandler(
	creator SaleCreator,
	payments PaymentApplier,
	verifier SaleVerifier,
	saleReader SaleReader,
	itemReader SaleItemReader,
) *SaleHandler {
	return &SaleHandler{
		creator:  creator,
		payments: payments,
		verifier: verifier,
		sales:    saleReader,
		items:    itemReader,
	}
}

// RegisterRoutes registers the sale routes
func (h *SaleHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/sales")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.POST("/:id/payments", h.ApplyPayment)
	g.POST("/:id/deliver", h.MarkDelivered)
	g.POST("/:id/verify", h.Verify)
}

// Create commits a new sale.
// A rolled back sale answers with the code of its first failure and the
// invoice number that was given up.
func (h *SaleHandler) Create(c *gin.Context) {
	var req CreateSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}
	cmd, err := req.toCommand()
	if err != nil {
		h.HandleError(c, err)
		return
	}

	result, err := h.creator.Create(c.Request.Context(), cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	logger.GetGinLogger(c).Info("Sale created",
		zap.String("sale_id", result.Sale.ID.String()),
		zap.String("invoice_number", result.Sale.InvoiceNumber),
	)
	h.Created(c, CreateSaleResponse{
		Sale:            toSaleResponse(result.Sale),
		CustomerCreated: result.CustomerCreated,
	})
}

// List returns sales newest first
func (h *SaleHandler) List(c *gin.Context) {
	var query ListSalesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, "Invalid filter: "+err.Error())
		return
	}
	rows, err := h.sales.FindAll(c.Request.Context(), query.toFilter())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	out := make([]SaleResponse, 0, len(rows))
	for i := range rows {
		out = append(out, toSaleResponse(&rows[i]))
	}
	h.SuccessList(c, out, int64(len(out)))
}

// Get returns one sale with its lines and payment history
func (h *SaleHandler) Get(c *gin.Context) {
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	sale, err := h.sales.FindByID(ctx, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	items, err := h.items.FindBySale(ctx, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	sale.Items = items

	resp := toSaleResponse(sale)
	history, err := h.payments.History(ctx, id)
	if err != nil {
		// History is supplementary; the sale row is still authoritative
		logger.GetGinLogger(c).Warn("Payment history unavailable", zap.Error(err))
	}
	for i := range history {
		resp.Payments = append(resp.Payments, toPaymentRecordResponse(&history[i]))
	}
	h.Success(c, resp)
}

// ApplyPayment records a payment against a sale
func (h *SaleHandler) ApplyPayment(c *gin.Context) {
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req ApplyPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.payments.Apply(c.Request.Context(), appsales.ApplyPaymentRequest{
		SaleID: id,
		Amount: req.Amount,
		Method: sales.PaymentMethod(req.Method),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if result.LedgerErr != nil {
		logger.GetGinLogger(c).Warn("Payment applied without history row", zap.Error(result.LedgerErr))
	}
	h.Success(c, toPaymentResponse(result))
}

// MarkDelivered records delivery of a sale. A queued status call answers 202.
func (h *SaleHandler) MarkDelivered(c *gin.Context) {
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	result, err := h.verifier.MarkDelivered(c.Request.Context(), id)
	h.respondVerification(c, result, err)
}

// Verify confirms a fully paid sale. A queued status call answers 202.
func (h *SaleHandler) Verify(c *gin.Context) {
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	result, err := h.verifier.Verify(c.Request.Context(), id)
	h.respondVerification(c, result, err)
}

func (h *SaleHandler) respondVerification(c *gin.Context, result *appsales.VerificationResult, err error) {
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if result.Queued {
		h.Accepted(c, toVerificationResponse(result))
		return
	}
	h.Success(c, toVerificationResponse(result))
}
