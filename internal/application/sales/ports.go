package sales

import (
	"context"

	"github.com/bizsuite/backend/internal/domain/sales"
)

// RefreshNotifier tells UI clients how much of their sales view is stale
type RefreshNotifier interface {
	// SalePatched publishes the new state of one sale for an in-place update
	SalePatched(sale *sales.Sale)
	// ReloadDeferred asks for a full reload soon; repeated calls coalesce
	ReloadDeferred()
	// ReloadNow asks for an immediate full reload
	ReloadNow()
}

// VerificationQueue stores status calls that could not reach the remote store
type VerificationQueue interface {
	Enqueue(ctx context.Context, entry *sales.PendingVerification) error
}

type nopNotifier struct{}

func (nopNotifier) SalePatched(*sales.Sale) {}
func (nopNotifier) ReloadDeferred()         {}
func (nopNotifier) ReloadNow()              {}
