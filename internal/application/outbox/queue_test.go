package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bizsuite/backend/internal/domain/sales"
	"github.com/bizsuite/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mapStore is an in-memory KVStore
type mapStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	failSet error
}

func newMapStore() *mapStore {
	return &mapStore{data: map[string][]byte{}}
}

func (s *mapStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *mapStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSet != nil {
		return s.failSet
	}
	s.data[key] = append([]byte(nil), value...)
	return nil
}

func (s *mapStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

type MockStatusUpdater struct {
	mock.Mock
}

func (m *MockStatusUpdater) UpdateSalePaymentStatus(ctx context.Context, saleID uuid.UUID, status sales.Status, verified bool) error {
	args := m.Called(ctx, saleID, status, verified)
	return args.Error(0)
}

type countingRefresher struct {
	mu    sync.Mutex
	count int
}

func (r *countingRefresher) ReloadDeferred() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
}

func newEntry(t *testing.T, intent sales.Intent, maxAttempts int) *sales.PendingVerification {
	t.Helper()
	status, verified := sales.StatusPaid, true
	if intent == sales.IntentMarkDelivered {
		status, verified = sales.StatusDelivered, false
	}
	entry, err := sales.NewPendingVerification(uuid.New(), intent, status, verified, maxAttempts)
	require.NoError(t, err)
	return entry
}

func TestQueue_EnqueueReplacesSameKey(t *testing.T) {
	store := newMapStore()
	queue := NewQueue(store, new(MockStatusUpdater), nil)
	ctx := context.Background()

	first := newEntry(t, sales.IntentVerifyPayment, 3)
	require.NoError(t, queue.Enqueue(ctx, first))

	again := *first
	again.Attempts = 0
	again.CreatedAt = first.CreatedAt.Add(time.Second)
	require.NoError(t, queue.Enqueue(ctx, &again))

	other := newEntry(t, sales.IntentMarkDelivered, 3)
	require.NoError(t, queue.Enqueue(ctx, other))

	pending, err := queue.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.Key(), pending[0].Key())
	assert.True(t, again.CreatedAt.Equal(pending[0].CreatedAt))
}

func TestQueue_SurvivesRestart(t *testing.T) {
	store := newMapStore()
	ctx := context.Background()
	entry := newEntry(t, sales.IntentVerifyPayment, 3)

	require.NoError(t, NewQueue(store, new(MockStatusUpdater), nil).Enqueue(ctx, entry))

	reopened := NewQueue(store, new(MockStatusUpdater), nil)
	pending, err := reopened.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, entry.SaleID, pending[0].SaleID)
	assert.Equal(t, sales.StatusPaid, pending[0].DesiredStatus)
	assert.True(t, pending[0].DesiredVerified)
	assert.Equal(t, shared.OutboxStatusPending, pending[0].Status)
}

func TestQueue_Drain(t *testing.T) {
	store := newMapStore()
	rpc := new(MockStatusUpdater)
	refresher := &countingRefresher{}
	queue := NewQueue(store, rpc, nil)
	queue.SetRefresher(refresher)
	ctx := context.Background()

	ok := newEntry(t, sales.IntentVerifyPayment, 3)
	flaky := newEntry(t, sales.IntentVerifyPayment, 3)
	gone := newEntry(t, sales.IntentMarkDelivered, 3)
	for _, e := range []*sales.PendingVerification{ok, flaky, gone} {
		require.NoError(t, queue.Enqueue(ctx, e))
	}

	rpc.On("UpdateSalePaymentStatus", mock.Anything, ok.SaleID, sales.StatusPaid, true).Return(nil)
	rpc.On("UpdateSalePaymentStatus", mock.Anything, flaky.SaleID, sales.StatusPaid, true).Return(shared.ErrRemoteWrite)
	rpc.On("UpdateSalePaymentStatus", mock.Anything, gone.SaleID, sales.StatusDelivered, false).Return(shared.ErrNotFound)

	result, err := queue.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, &DrainResult{Succeeded: 1, Failed: 1, Dead: 1}, result)
	assert.Equal(t, 1, refresher.count)

	pending, err := queue.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, flaky.Key(), pending[0].Key())
	assert.Equal(t, 1, pending[0].Attempts)
	assert.NotEmpty(t, pending[0].LastError)

	dead, err := queue.Dead(ctx)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, gone.Key(), dead[0].Key())
	assert.True(t, dead[0].IsDead())
}

func TestQueue_DrainDeadLettersAfterMaxAttempts(t *testing.T) {
	store := newMapStore()
	rpc := new(MockStatusUpdater)
	refresher := &countingRefresher{}
	queue := NewQueue(store, rpc, nil)
	queue.SetRefresher(refresher)
	ctx := context.Background()

	entry := newEntry(t, sales.IntentVerifyPayment, 2)
	require.NoError(t, queue.Enqueue(ctx, entry))
	rpc.On("UpdateSalePaymentStatus", mock.Anything, entry.SaleID, sales.StatusPaid, true).Return(shared.ErrRemoteWrite)

	result, err := queue.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)

	result, err = queue.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Dead)
	assert.Zero(t, refresher.count, "nothing succeeded")

	pending, _ := queue.Pending(ctx)
	assert.Empty(t, pending)
	_, stored, _ := store.Get(ctx, PendingListKey)
	assert.False(t, stored, "empty list is removed")

	require.NoError(t, queue.Requeue(ctx, entry.Key()))
	pending, _ = queue.Pending(ctx)
	require.Len(t, pending, 1)
	assert.Zero(t, pending[0].Attempts)
	dead, _ := queue.Dead(ctx)
	assert.Empty(t, dead)

	assert.ErrorIs(t, queue.Requeue(ctx, entry.Key()), shared.ErrNotFound)
}

func TestQueue_DrainTwiceIsIdempotent(t *testing.T) {
	store := newMapStore()
	rpc := new(MockStatusUpdater)
	queue := NewQueue(store, rpc, nil)
	ctx := context.Background()

	entry := newEntry(t, sales.IntentVerifyPayment, 3)
	require.NoError(t, queue.Enqueue(ctx, entry))
	rpc.On("UpdateSalePaymentStatus", mock.Anything, entry.SaleID, sales.StatusPaid, true).Return(nil)

	first, err := queue.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Succeeded)

	// the same entry replayed again after the remote already applied it
	require.NoError(t, queue.Enqueue(ctx, entry))
	second, err := queue.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Succeeded)

	empty, err := queue.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, &DrainResult{}, empty)
	rpc.AssertNumberOfCalls(t, "UpdateSalePaymentStatus", 2)
}

func TestQueue_DrainKeepsEntriesEnqueuedMeanwhile(t *testing.T) {
	store := newMapStore()
	rpc := new(MockStatusUpdater)
	queue := NewQueue(store, rpc, nil)
	ctx := context.Background()

	entry := newEntry(t, sales.IntentVerifyPayment, 3)
	late := newEntry(t, sales.IntentMarkDelivered, 3)
	require.NoError(t, queue.Enqueue(ctx, entry))

	rpc.On("UpdateSalePaymentStatus", mock.Anything, entry.SaleID, sales.StatusPaid, true).
		Run(func(mock.Arguments) {
			require.NoError(t, queue.Enqueue(ctx, late))
		}).
		Return(nil)

	result, err := queue.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)

	pending, err := queue.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, late.Key(), pending[0].Key())
}

func TestQueue_DrainPersistFailure(t *testing.T) {
	store := newMapStore()
	rpc := new(MockStatusUpdater)
	queue := NewQueue(store, rpc, nil)
	ctx := context.Background()

	entry := newEntry(t, sales.IntentVerifyPayment, 3)
	require.NoError(t, queue.Enqueue(ctx, entry))
	rpc.On("UpdateSalePaymentStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(shared.ErrRemoteWrite)
	store.failSet = errors.New("disk full")

	_, err := queue.Drain(ctx)
	assert.Error(t, err)
}
