package sales

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bizsuite/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ErrSaleChanged is the cause of a conditional sale update that found the
// stored paid amount or status no longer matching the copy it was based on.
var ErrSaleChanged = errors.New("sale changed since it was read")

// NewSaleChangedError reports a lost compare-and-swap on a sale row. It is a
// remote write failure, so callers may retry after re-reading.
func NewSaleChangedError(id uuid.UUID) error {
	return shared.WrapDomainError(shared.CodeRemoteWrite,
		"The sale was changed by another device, please try again",
		fmt.Errorf("sale %s: %w", id, ErrSaleChanged))
}

// LineFailure is the reason a single line could not be committed
type LineFailure struct {
	ProductID   uuid.UUID
	ProductName string
	Err         error
}

// SaleFailedError aggregates the reasons a sale was rolled back.
// errors.Is and errors.As see every wrapped reason.
type SaleFailedError struct {
	InvoiceNumber string
	Failures      []LineFailure
}

// Error implements the error interface
func (e *SaleFailedError) Error() string {
	reasons := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		label := f.ProductName
		if label == "" && f.ProductID != uuid.Nil {
			label = f.ProductID.String()
		}
		if label == "" {
			reasons = append(reasons, f.Err.Error())
			continue
		}
		reasons = append(reasons, fmt.Sprintf("%s: %s", label, f.Err.Error()))
	}
	if e.InvoiceNumber == "" {
		return "Sale was not saved: " + strings.Join(reasons, "; ")
	}
	return fmt.Sprintf("Sale %s was not saved: %s", e.InvoiceNumber, strings.Join(reasons, "; "))
}

// Unwrap exposes the underlying reasons
func (e *SaleFailedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}
