package inventory

import (
	"fmt"
	"strings"

	"github.com/bizsuite/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ErrUnknownPool is returned for a pool name that is not factory or godown
var ErrUnknownPool = shared.NewDomainError(shared.CodeValidation, "Unknown stock pool")

// Shortage describes one product that cannot be supplied
type Shortage struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name,omitempty"`
	Requested   int64     `json:"requested"`
	Available   int64     `json:"available"`
}

func (s Shortage) label() string {
	if s.ProductName != "" {
		return s.ProductName
	}
	return s.ProductID.String()
}

// InsufficientStockError lists every short product in a pool.
// It matches shared.ErrInsufficientStock with errors.Is.
type InsufficientStockError struct {
	Pool      Pool
	Shortages []Shortage
}

// Error implements the error interface
func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		parts = append(parts, fmt.Sprintf("%s: requested %d, available %d", s.label(), s.Requested, s.Available))
	}
	return fmt.Sprintf("Insufficient stock in %s: %s", e.Pool, strings.Join(parts, "; "))
}

// Is matches shared.ErrInsufficientStock
func (e *InsufficientStockError) Is(target error) bool {
	return target == shared.ErrInsufficientStock
}

// NewShortageError builds the error for a single product
func NewShortageError(pool Pool, productID uuid.UUID, requested, available int64) *InsufficientStockError {
	return &InsufficientStockError{
		Pool: pool,
		Shortages: []Shortage{{
			ProductID: productID,
			Requested: requested,
			Available: available,
		}},
	}
}
