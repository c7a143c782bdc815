package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bizsuite/backend/internal/application/outbox"
	appsales "github.com/bizsuite/backend/internal/application/sales"
	"github.com/bizsuite/backend/internal/domain/inventory"
	"github.com/bizsuite/backend/internal/domain/sales"
	"github.com/bizsuite/backend/internal/interfaces/http/dto"
	"github.com/bizsuite/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// MockSaleCreator implements SaleCreator for testing
type MockSaleCreator struct {
	mock.Mock
}

func (m *MockSaleCreator) Create(ctx context.Context, req appsales.CreateSaleRequest) (*appsales.CreateSaleResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appsales.CreateSaleResult), args.Error(1)
}

// MockPaymentApplier implements PaymentApplier for testing
type MockPaymentApplier struct {
	mock.Mock
}

func (m *MockPaymentApplier) Apply(ctx context.Context, req appsales.ApplyPaymentRequest) (*appsales.PaymentResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appsales.PaymentResult), args.Error(1)
}

func (m *MockPaymentApplier) History(ctx context.Context, saleID uuid.UUID) ([]sales.PaymentRecord, error) {
	args := m.Called(ctx, saleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]sales.PaymentRecord), args.Error(1)
}

// MockSaleVerifier implements SaleVerifier for testing
type MockSaleVerifier struct {
	mock.Mock
}

func (m *MockSaleVerifier) Verify(ctx context.Context, saleID uuid.UUID) (*appsales.VerificationResult, error) {
	args := m.Called(ctx, saleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appsales.VerificationResult), args.Error(1)
}

func (m *MockSaleVerifier) MarkDelivered(ctx context.Context, saleID uuid.UUID) (*appsales.VerificationResult, error) {
	args := m.Called(ctx, saleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appsales.VerificationResult), args.Error(1)
}

// MockSaleReader implements SaleReader for testing
type MockSaleReader struct {
	mock.Mock
}

func (m *MockSaleReader) FindByID(ctx context.Context, id uuid.UUID) (*sales.Sale, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sales.Sale), args.Error(1)
}

func (m *MockSaleReader) FindAll(ctx context.Context, filter sales.SaleFilter) ([]sales.Sale, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]sales.Sale), args.Error(1)
}

// MockSaleItemReader implements SaleItemReader for testing
type MockSaleItemReader struct {
	mock.Mock
}

func (m *MockSaleItemReader) FindBySale(ctx context.Context, saleID uuid.UUID) ([]sales.SaleLineItem, error) {
	args := m.Called(ctx, saleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]sales.SaleLineItem), args.Error(1)
}

// MockStockLister implements StockLister for testing
type MockStockLister struct {
	mock.Mock
}

func (m *MockStockLister) List(ctx context.Context, pool inventory.Pool) (*appsales.StockView, error) {
	args := m.Called(ctx, pool)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appsales.StockView), args.Error(1)
}

// MockSummaryProvider implements SummaryProvider for testing
type MockSummaryProvider struct {
	mock.Mock
}

func (m *MockSummaryProvider) Summary(ctx context.Context) (*appsales.Summary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appsales.Summary), args.Error(1)
}

// MockOutbox implements VerificationOutbox for testing
type MockOutbox struct {
	mock.Mock
}

func (m *MockOutbox) Pending(ctx context.Context) ([]sales.PendingVerification, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]sales.PendingVerification), args.Error(1)
}

func (m *MockOutbox) Dead(ctx context.Context) ([]sales.PendingVerification, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]sales.PendingVerification), args.Error(1)
}

func (m *MockOutbox) Drain(ctx context.Context) (*outbox.DrainResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*outbox.DrainResult), args.Error(1)
}

func (m *MockOutbox) Requeue(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

type stubConnectivity bool

func (s stubConnectivity) Online() bool { return bool(s) }

// newTestRouter mounts registrars under /api/v1 with the request id middleware
func newTestRouter(registrars ...interface{ RegisterRoutes(*gin.RouterGroup) }) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	api := r.Group("/api/v1")
	for _, reg := range registrars {
		reg.RegisterRoutes(api)
	}
	return r
}

func doRequest(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// decodeResponse decodes the envelope and re-decodes Data into out when given
func decodeResponse(t *testing.T, w *httptest.ResponseRecorder, out any) dto.Response {
	t.Helper()
	var raw struct {
		dto.Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw), w.Body.String())
	if out != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, out))
	}
	return raw.Response
}
