// Package saga provides the compensation stack used by multi-step writes
// against a store without cross-table transactions.
package saga

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// UndoFunc reverts one completed step
type UndoFunc func(ctx context.Context) error

type step struct {
	name string
	undo UndoFunc
}

// Failure records an undo that could not be applied
type Failure struct {
	Step string
	Err  error
}

// Compensator collects an undo for every completed step and runs them in
// reverse order when the saga aborts. Undo errors are logged and returned for
// inspection but never stop the remaining undos.
type Compensator struct {
	mu     sync.Mutex
	steps  []step
	logger *zap.Logger
}

// NewCompensator creates an empty compensation stack
func NewCompensator(logger *zap.Logger) *Compensator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Compensator{logger: logger}
}

// Push registers the undo of a step that has just succeeded
func (c *Compensator) Push(name string, undo UndoFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.steps = append(c.steps, step{name: name, undo: undo})
}

// Len returns the number of registered undos
func (c *Compensator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.steps)
}

// Discard forgets every undo once the saga has committed
func (c *Compensator) Discard() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.steps = nil
}

// Compensate runs every undo newest first and empties the stack. The undos
// run on a context detached from ctx's cancellation so an aborted request
// still rolls back.
func (c *Compensator) Compensate(ctx context.Context) []Failure {
	c.mu.Lock()
	steps := c.steps
	c.steps = nil
	c.mu.Unlock()

	undoCtx := context.WithoutCancel(ctx)
	var failures []Failure
	for i := len(steps) - 1; i >= 0; i-- {
		s := steps[i]
		if err := s.undo(undoCtx); err != nil {
			c.logger.Error("compensation step failed",
				zap.String("step", s.name),
				zap.Error(err),
			)
			failures = append(failures, Failure{Step: s.name, Err: err})
			continue
		}
		c.logger.Debug("compensation step applied", zap.String("step", s.name))
	}
	return failures
}
