package sales

import (
	"context"

	"github.com/bizsuite/backend/internal/domain/sales"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ResolveCustomerRequest describes who a sale is for
type ResolveCustomerRequest struct {
	SelectedID *uuid.UUID
	Info       sales.CustomerInfo
	Persist    bool
	SaleType   sales.SaleType
}

// CustomerResolution is the outcome of Resolve
type CustomerResolution struct {
	CustomerID *uuid.UUID
	Created    bool
}

// CustomerResolver finds or creates the customer record of a sale
type CustomerResolver struct {
	customers sales.CustomerRepository
	logger    *zap.Logger
}

// NewCustomerResolver creates a new resolver
func NewCustomerResolver(customers sales.CustomerRepository, logger *zap.Logger) *CustomerResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CustomerResolver{customers: customers, logger: logger}
}

// Resolve returns the customer id to store on the sale, or nil for a walk-in.
// Quick sales never carry a customer. A selected id is used as is. Otherwise a
// customer row is created when persistence is requested or the buyer is a
// distributor.
func (r *CustomerResolver) Resolve(ctx context.Context, req ResolveCustomerRequest) (*CustomerResolution, error) {
	if req.SaleType == sales.SaleTypeQuick {
		return &CustomerResolution{}, nil
	}
	if req.SelectedID != nil && *req.SelectedID != uuid.Nil {
		id := *req.SelectedID
		return &CustomerResolution{CustomerID: &id}, nil
	}
	if !req.Persist && req.SaleType != sales.SaleTypeDistributor {
		return &CustomerResolution{}, nil
	}

	customer, err := sales.NewCustomer(req.Info, req.SaleType)
	if err != nil {
		return nil, err
	}
	if err := r.customers.Insert(ctx, customer); err != nil {
		r.logger.Error("failed to create customer",
			zap.String("customer_name", customer.Name),
			zap.Error(err),
		)
		return nil, err
	}

	r.logger.Info("customer created",
		zap.String("customer_id", customer.ID.String()),
		zap.String("customer_type", string(customer.Type)),
	)
	return &CustomerResolution{CustomerID: &customer.ID, Created: true}, nil
}
