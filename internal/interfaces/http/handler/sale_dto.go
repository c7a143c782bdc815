package handler

import (
	"time"

	appsales "github.com/bizsuite/backend/internal/application/sales"
	"github.com/bizsuite/backend/internal/domain/inventory"
	"github.com/bizsuite/backend/internal/domain/sales"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CustomerInput is the contact data typed into the sale form
type CustomerInput struct {
	Name    string `json:"name" binding:"max=200"`
	Phone   string `json:"phone" binding:"max=50"`
	Address string `json:"address" binding:"max=500"`
}

// SaleLineInput is one product row of the sale form
type SaleLineInput struct {
	ProductID   string          `json:"product_id" binding:"required,uuid"`
	ProductName string          `json:"product_name" binding:"max=200"`
	Quantity    int64           `json:"quantity" binding:"gte=0"`
	UnitPrice   decimal.Decimal `json:"unit_price" binding:"gte=0,money"`
}

// CreateSaleRequest is the body of POST /sales.
// Lines with quantity 0 are ignored; a sale needs at least one positive line.
type CreateSaleRequest struct {
	CustomerID      *string         `json:"customer_id" binding:"omitempty,uuid"`
	Customer        CustomerInput   `json:"customer"`
	PersistCustomer bool            `json:"persist_customer"`
	Type            string          `json:"type" binding:"required,oneof=customer distributor quick"`
	Pool            string          `json:"pool" binding:"omitempty,oneof=factory godown"`
	PaymentMethod   string          `json:"payment_method" binding:"omitempty,oneof=cash upi bank_transfer cheque credit pay_on_delivery"`
	Delivery        bool            `json:"delivery"`
	DeliveryDate    *time.Time      `json:"delivery_date"`
	AmountPaid      decimal.Decimal `json:"amount_paid" binding:"gte=0,money"`
	Items           []SaleLineInput `json:"items" binding:"dive"`
}

// toCommand converts the body; binding has already validated every id
func (r *CreateSaleRequest) toCommand() (appsales.CreateSaleRequest, error) {
	pool, err := inventory.ParsePool(r.Pool)
	if err != nil {
		return appsales.CreateSaleRequest{}, err
	}
	cmd := appsales.CreateSaleRequest{
		Customer: sales.CustomerInfo{
			Name:    r.Customer.Name,
			Phone:   r.Customer.Phone,
			Address: r.Customer.Address,
		},
		PersistCustomer: r.PersistCustomer,
		Type:            sales.SaleType(r.Type),
		Pool:            pool,
		PaymentMethod:   sales.PaymentMethod(r.PaymentMethod),
		Delivery:        r.Delivery,
		DeliveryDate:    r.DeliveryDate,
		AmountPaid:      r.AmountPaid,
		Lines:           make([]sales.LineRequest, 0, len(r.Items)),
	}
	if r.CustomerID != nil && *r.CustomerID != "" {
		id, err := uuid.Parse(*r.CustomerID)
		if err != nil {
			return appsales.CreateSaleRequest{}, err
		}
		cmd.CustomerID = &id
	}
	for _, item := range r.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return appsales.CreateSaleRequest{}, err
		}
		cmd.Lines = append(cmd.Lines, sales.LineRequest{
			ProductID:   productID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}
	return cmd, nil
}

// ApplyPaymentRequest is the body of POST /sales/:id/payments
type ApplyPaymentRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required,gt=0,money"`
	Method string          `json:"method" binding:"omitempty,oneof=cash upi bank_transfer cheque credit pay_on_delivery"`
}

// ListSalesQuery holds the GET /sales filters
type ListSalesQuery struct {
	From       *time.Time `form:"from" time_format:"2006-01-02"`
	To         *time.Time `form:"to" time_format:"2006-01-02"`
	Status     []string   `form:"status" binding:"dive,oneof=pending delivered paid completed"`
	Unverified bool       `form:"unverified"`
}

func (q *ListSalesQuery) toFilter() sales.SaleFilter {
	filter := sales.SaleFilter{From: q.From, To: q.To, Unverified: q.Unverified}
	for _, s := range q.Status {
		filter.Status = append(filter.Status, sales.Status(s))
	}
	return filter
}

// SaleItemResponse is one committed line
type SaleItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// PaymentRecordResponse is one supplementary payment row
type PaymentRecordResponse struct {
	ID         uuid.UUID       `json:"id"`
	Amount     decimal.Decimal `json:"amount"`
	Method     string          `json:"method"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// SaleResponse is a sale as shown to clients
type SaleResponse struct {
	ID              uuid.UUID               `json:"id"`
	InvoiceNumber   string                  `json:"invoice_number"`
	CustomerID      *uuid.UUID              `json:"customer_id,omitempty"`
	CustomerName    string                  `json:"customer_name"`
	CustomerPhone   string                  `json:"customer_phone,omitempty"`
	CustomerAddress string                  `json:"customer_address,omitempty"`
	Type            string                  `json:"type"`
	Pool            string                  `json:"pool"`
	PaymentMethod   string                  `json:"payment_method"`
	TotalAmount     decimal.Decimal         `json:"total_amount"`
	PaidAmount      decimal.Decimal         `json:"paid_amount"`
	Outstanding     decimal.Decimal         `json:"outstanding"`
	Status          string                  `json:"status"`
	Verified        bool                    `json:"verified"`
	Delivery        bool                    `json:"delivery"`
	DeliveryDate    *time.Time              `json:"delivery_date,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
	Items           []SaleItemResponse      `json:"items,omitempty"`
	Payments        []PaymentRecordResponse `json:"payments,omitempty"`
}

func toSaleResponse(sale *sales.Sale) SaleResponse {
	resp := SaleResponse{
		ID:              sale.ID,
		InvoiceNumber:   sale.InvoiceNumber,
		CustomerID:      sale.CustomerID,
		CustomerName:    sale.CustomerName,
		CustomerPhone:   sale.CustomerPhone,
		CustomerAddress: sale.CustomerAddress,
		Type:            string(sale.Type),
		Pool:            sale.Pool.String(),
		PaymentMethod:   string(sale.PaymentMethod),
		TotalAmount:     sale.TotalAmount,
		PaidAmount:      sale.PaidAmount,
		Outstanding:     sale.Outstanding(),
		Status:          string(sale.Status),
		Verified:        sale.Verified,
		Delivery:        sale.Delivery,
		DeliveryDate:    sale.DeliveryDate,
		CreatedAt:       sale.CreatedAt,
	}
	for _, item := range sale.Items {
		resp.Items = append(resp.Items, SaleItemResponse{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TotalPrice:  item.TotalPrice,
		})
	}
	return resp
}

func toPaymentRecordResponse(record *sales.PaymentRecord) PaymentRecordResponse {
	return PaymentRecordResponse{
		ID:         record.ID,
		Amount:     record.Amount,
		Method:     string(record.Method),
		RecordedAt: record.RecordedAt,
	}
}

// CreateSaleResponse is the committed sale
type CreateSaleResponse struct {
	Sale            SaleResponse `json:"sale"`
	CustomerCreated bool         `json:"customer_created"`
}

// PaymentResponse is the state of a sale after a payment
type PaymentResponse struct {
	Sale   SaleResponse           `json:"sale"`
	IsFull bool                   `json:"is_full"`
	Record *PaymentRecordResponse `json:"payment,omitempty"`
	// LedgerWarning is set when the sale was updated but its payment history row was not written
	LedgerWarning string `json:"ledger_warning,omitempty"`
}

func toPaymentResponse(result *appsales.PaymentResult) PaymentResponse {
	resp := PaymentResponse{
		Sale:   toSaleResponse(result.Sale),
		IsFull: result.IsFull,
	}
	if result.Record != nil {
		record := toPaymentRecordResponse(result.Record)
		resp.Record = &record
	}
	if result.LedgerErr != nil {
		resp.LedgerWarning = result.LedgerErr.Error()
	}
	return resp
}

// VerificationResponse reports the status a sale has, or will have once a
// queued call is replayed
type VerificationResponse struct {
	SaleID   uuid.UUID `json:"sale_id"`
	Status   string    `json:"status"`
	Verified bool      `json:"verified"`
	Queued   bool      `json:"queued"`
}

func toVerificationResponse(result *appsales.VerificationResult) VerificationResponse {
	return VerificationResponse{
		SaleID:   result.SaleID,
		Status:   string(result.Status),
		Verified: result.Verified,
		Queued:   result.Queued,
	}
}

// StockEntryResponse is one product row of a pool
type StockEntryResponse struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int64     `json:"quantity"`
}

// StockViewResponse lists a pool
type StockViewResponse struct {
	Pool    string               `json:"pool"`
	Total   int64                `json:"total"`
	ReadAt  time.Time            `json:"read_at"`
	Entries []StockEntryResponse `json:"entries"`
}

func toStockViewResponse(view *appsales.StockView) StockViewResponse {
	resp := StockViewResponse{
		Pool:    view.Pool.String(),
		Total:   view.Total,
		ReadAt:  view.ReadAt,
		Entries: make([]StockEntryResponse, 0, len(view.Entries)),
	}
	for _, e := range view.Entries {
		resp.Entries = append(resp.Entries, StockEntryResponse{
			ProductID:   e.ProductID,
			ProductName: e.ProductName,
			Quantity:    e.Quantity,
		})
	}
	return resp
}

// BucketResponse is a count and amount of sales
type BucketResponse struct {
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// SummaryResponse holds the dashboard totals
type SummaryResponse struct {
	Due         BucketResponse   `json:"due"`
	Overdue     BucketResponse   `json:"overdue"`
	Paid        BucketResponse   `json:"paid"`
	Stock       map[string]int64 `json:"stock"`
	GeneratedAt time.Time        `json:"generated_at"`
}

func toSummaryResponse(s *appsales.Summary) SummaryResponse {
	resp := SummaryResponse{
		Due:         BucketResponse{Count: s.Due.Count, Amount: s.Due.Amount},
		Overdue:     BucketResponse{Count: s.Overdue.Count, Amount: s.Overdue.Amount},
		Paid:        BucketResponse{Count: s.Paid.Count, Amount: s.Paid.Amount},
		Stock:       make(map[string]int64, len(s.Stock)),
		GeneratedAt: s.GeneratedAt,
	}
	for pool, total := range s.Stock {
		resp.Stock[pool.String()] = total
	}
	return resp
}

// PendingVerificationResponse is one queued status call
type PendingVerificationResponse struct {
	Key             string     `json:"key"`
	SaleID          uuid.UUID  `json:"sale_id"`
	Intent          string     `json:"intent"`
	DesiredStatus   string     `json:"desired_status"`
	DesiredVerified bool       `json:"desired_verified"`
	Status          string     `json:"status"`
	Attempts        int        `json:"attempts"`
	MaxAttempts     int        `json:"max_attempts"`
	LastError       string     `json:"last_error,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	LastAttemptAt   *time.Time `json:"last_attempt_at,omitempty"`
}

func toPendingResponses(entries []sales.PendingVerification) []PendingVerificationResponse {
	out := make([]PendingVerificationResponse, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		out = append(out, PendingVerificationResponse{
			Key:             e.Key(),
			SaleID:          e.SaleID,
			Intent:          string(e.Intent),
			DesiredStatus:   string(e.DesiredStatus),
			DesiredVerified: e.DesiredVerified,
			Status:          string(e.Status),
			Attempts:        e.Attempts,
			MaxAttempts:     e.MaxAttempts,
			LastError:       e.LastError,
			CreatedAt:       e.CreatedAt,
			LastAttemptAt:   e.LastAttemptAt,
		})
	}
	return out
}

// OutboxResponse lists queued and dead-lettered status calls
type OutboxResponse struct {
	Online  bool                          `json:"online"`
	Pending []PendingVerificationResponse `json:"pending"`
	Dead    []PendingVerificationResponse `json:"dead"`
}
