package saga

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestCompensator_RunsInReverse(t *testing.T) {
	c := NewCompensator(nil)
	var order []string
	for _, name := range []string{"customer", "sale", "item-1", "stock-1"} {
		n := name
		c.Push(n, func(context.Context) error {
			order = append(order, n)
			return nil
		})
	}
	require.Equal(t, 4, c.Len())

	failures := c.Compensate(context.Background())

	assert.Empty(t, failures)
	assert.Equal(t, []string{"stock-1", "item-1", "sale", "customer"}, order)
	assert.Zero(t, c.Len())
}

func TestCompensator_ContinuesAfterFailure(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	c := NewCompensator(zap.New(core))

	var ran []string
	c.Push("sale", func(context.Context) error {
		ran = append(ran, "sale")
		return nil
	})
	c.Push("item", func(context.Context) error {
		return errors.New("network down")
	})

	failures := c.Compensate(context.Background())

	require.Len(t, failures, 1)
	assert.Equal(t, "item", failures[0].Step)
	assert.Equal(t, []string{"sale"}, ran)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "compensation step failed", logs.All()[0].Message)
}

func TestCompensator_IgnoresCancelledContext(t *testing.T) {
	c := NewCompensator(nil)
	var sawErr error
	c.Push("sale", func(ctx context.Context) error {
		sawErr = ctx.Err()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c.Compensate(ctx)

	assert.NoError(t, sawErr)
}

func TestCompensator_Discard(t *testing.T) {
	c := NewCompensator(nil)
	called := false
	c.Push("sale", func(context.Context) error {
		called = true
		return nil
	})

	c.Discard()
	c.Compensate(context.Background())

	assert.False(t, called)
}
