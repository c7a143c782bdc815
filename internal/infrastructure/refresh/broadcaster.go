// Package refresh tells connected UI clients when their sales view is stale.
package refresh

import (
	"sync"
	"time"

	"github.com/bizsuite/backend/internal/domain/sales"
	"go.uber.org/zap"
)

// Kind is the type of a refresh event
type Kind string

const (
	// KindSalePatched carries the new state of one sale
	KindSalePatched Kind = "sale_patched"
	// KindReload asks clients to reload the whole sales list
	KindReload Kind = "reload"
)

// DefaultDebounce is how long deferred reloads are coalesced
const DefaultDebounce = 500 * time.Millisecond

const subscriberBuffer = 16

// Event is one notification sent to subscribers
type Event struct {
	Kind Kind
	Sale *sales.Sale
	At   time.Time
}

// Broadcaster fans refresh notifications out to subscribers. Deferred
// reloads requested within one debounce window produce a single event.
type Broadcaster struct {
	mu       sync.Mutex
	subs     map[uint64]chan Event
	nextID   uint64
	debounce time.Duration
	timer    *time.Timer
	closed   bool
	logger   *zap.Logger
}

// NewBroadcaster creates a new broadcaster
func NewBroadcaster(debounce time.Duration, logger *zap.Logger) *Broadcaster {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broadcaster{
		subs:     make(map[uint64]chan Event),
		debounce: debounce,
		logger:   logger,
	}
}

// Subscribe registers a subscriber. The returned cancel func unsubscribes and
// closes the channel; it is safe to call more than once.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
}

// SubscriberCount returns the number of active subscribers
func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// SalePatched publishes the new state of one sale
func (b *Broadcaster) SalePatched(sale *sales.Sale) {
	if sale == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.publishLocked(Event{Kind: KindSalePatched, Sale: sale, At: time.Now()})
}

// ReloadDeferred schedules a reload after the debounce window unless one is
// already scheduled
func (b *Broadcaster) ReloadDeferred() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || b.timer != nil {
		return
	}
	b.timer = time.AfterFunc(b.debounce, b.fireDeferred)
}

// ReloadNow publishes a reload immediately and cancels a scheduled one
func (b *Broadcaster) ReloadNow() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopTimerLocked()
	b.publishLocked(Event{Kind: KindReload, At: time.Now()})
}

// Close stops the pending timer and closes every subscriber channel
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.stopTimerLocked()
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

func (b *Broadcaster) fireDeferred() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer == nil {
		return
	}
	b.timer = nil
	b.publishLocked(Event{Kind: KindReload, At: time.Now()})
}

func (b *Broadcaster) stopTimerLocked() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}

// publishLocked never blocks. A subscriber whose buffer is full misses the
// event; it already has unread events that will make it refresh.
func (b *Broadcaster) publishLocked(ev Event) {
	if b.closed {
		return
	}
	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.logger.Debug("refresh subscriber is slow, event dropped",
				zap.Uint64("subscriber", id),
				zap.String("kind", string(ev.Kind)),
			)
		}
	}
}
