package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bizsuite/backend/internal/domain/inventory"
	"github.com/bizsuite/backend/internal/domain/shared"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultCallTimeout bounds a single remote store call
const DefaultCallTimeout = 5 * time.Second

// CallGuard runs remote store calls with a deadline. The call itself runs
// detached from the caller's cancellation so a write is never cut halfway;
// the caller stops waiting once the deadline passes and gets a
// REMOTE_WRITE_FAILED error.
type CallGuard struct {
	timeout time.Duration
	logger  *zap.Logger
}

// NewCallGuard creates a new call guard
func NewCallGuard(timeout time.Duration, logger *zap.Logger) *CallGuard {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CallGuard{timeout: timeout, logger: logger}
}

// Timeout returns the per-call deadline
func (g *CallGuard) Timeout() time.Duration {
	return g.timeout
}

// Do runs fn and translates its error into a domain error
func (g *CallGuard) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.timeout)

	done := make(chan error, 1)
	go func() {
		defer cancel()
		done <- fn(callCtx)
	}()

	select {
	case err := <-done:
		return translateError(op, err)
	case <-callCtx.Done():
		// cancel runs after the result is sent, so a finished call wins
		select {
		case err := <-done:
			return translateError(op, err)
		default:
		}
		g.logger.Warn("remote call timed out",
			zap.String("operation", op),
			zap.Duration("timeout", g.timeout),
		)
		return shared.WrapDomainError(shared.CodeRemoteWrite, shared.ErrRemoteWrite.Message,
			fmt.Errorf("%s: %w", op, context.DeadlineExceeded))
	case <-ctx.Done():
		return shared.WrapDomainError(shared.CodeRemoteWrite, shared.ErrRemoteWrite.Message,
			fmt.Errorf("%s: %w", op, ctx.Err()))
	}
}

// translateError maps driver and GORM errors onto domain errors. Anything
// unclassified is a remote failure and therefore retryable.
func translateError(op string, err error) error {
	if err == nil {
		return nil
	}

	var shortage *inventory.InsufficientStockError
	if errors.As(err, &shortage) || shared.CodeOf(err) != "" {
		return err
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.WrapDomainError(shared.CodeNotFound, shared.ErrNotFound.Message, err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return shared.WrapDomainError(shared.CodeAlreadyExists, shared.ErrAlreadyExists.Message, err)
	case errors.Is(err, gorm.ErrCheckConstraintViolated):
		return shared.WrapDomainError(shared.CodeInsufficientStock, shared.ErrInsufficientStock.Message, err)
	case errors.Is(err, gorm.ErrInvalidData), errors.Is(err, gorm.ErrInvalidValue):
		return shared.WrapDomainError(shared.CodeValidation, shared.ErrValidation.Message, err)
	default:
		return shared.WrapDomainError(shared.CodeRemoteWrite, shared.ErrRemoteWrite.Message,
			fmt.Errorf("%s: %w", op, err))
	}
}

// repo bundles the handle and guard every repository uses
type repo struct {
	db    *gorm.DB
	guard *CallGuard
}

func (r repo) do(ctx context.Context, op string, fn func(db *gorm.DB) error) error {
	return r.guard.Do(ctx, op, func(ctx context.Context) error {
		return fn(r.db.WithContext(ctx))
	})
}
