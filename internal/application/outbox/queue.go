// Package outbox keeps status calls that could not reach the remote store in a
// durable local list and replays them until they apply or are dead-lettered.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bizsuite/backend/internal/domain/sales"
	"github.com/bizsuite/backend/internal/domain/shared"
	"github.com/bizsuite/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Storage keys of the two lists
const (
	PendingListKey = "pending_verifications"
	DeadListKey    = "pending_verifications_dead"
)

// KVStore is the device-local durable key-value store
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// Refresher is told to reload once replays changed remote state
type Refresher interface {
	ReloadDeferred()
}

// DrainResult reports the outcome of one drain
type DrainResult struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Dead      int `json:"dead"`
}

// Queue is the durable pending verification list.
// Entries are keyed by (sale, intent); enqueueing the same key replaces the entry.
type Queue struct {
	store     KVStore
	rpc       sales.StatusUpdater
	refresher Refresher
	metrics   *telemetry.SalesMetrics
	logger    *zap.Logger
	now       func() time.Time

	// mu guards the stored lists, drainMu serializes drains
	mu      sync.Mutex
	drainMu sync.Mutex
}

// NewQueue creates a new queue
func NewQueue(store KVStore, rpc sales.StatusUpdater, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{
		store:  store,
		rpc:    rpc,
		logger: logger,
		now:    time.Now,
	}
}

// SetRefresher sets the reload target used after successful replays
func (q *Queue) SetRefresher(r Refresher) {
	q.refresher = r
}

// SetMetrics sets the metrics recorder
func (q *Queue) SetMetrics(m *telemetry.SalesMetrics) {
	q.metrics = m
}

// Enqueue stores the entry, replacing any pending or dead entry with the same key
func (q *Queue) Enqueue(ctx context.Context, entry *sales.PendingVerification) error {
	if entry == nil {
		return shared.NewDomainError(shared.CodeValidation, "Entry is required")
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	pending, err := q.load(ctx, PendingListKey)
	if err != nil {
		return err
	}
	pending = upsert(pending, *entry)
	if err := q.save(ctx, PendingListKey, pending); err != nil {
		return err
	}

	dead, err := q.load(ctx, DeadListKey)
	if err != nil {
		return err
	}
	if trimmed, removed := without(dead, entry.Key()); removed {
		if err := q.save(ctx, DeadListKey, trimmed); err != nil {
			return err
		}
	}

	q.logger.Info("verification queued",
		zap.String("key", entry.Key()),
		zap.String("desired_status", string(entry.DesiredStatus)),
		zap.Int("pending", len(pending)),
	)
	return nil
}

// Pending returns the entries waiting to be replayed
func (q *Queue) Pending(ctx context.Context) ([]sales.PendingVerification, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.load(ctx, PendingListKey)
}

// Dead returns the dead-lettered entries
func (q *Queue) Dead(ctx context.Context) ([]sales.PendingVerification, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.load(ctx, DeadListKey)
}

// Requeue moves a dead entry back to the pending list with a fresh attempt budget
func (q *Queue) Requeue(ctx context.Context, key string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	dead, err := q.load(ctx, DeadListKey)
	if err != nil {
		return err
	}
	idx := indexOf(dead, key)
	if idx < 0 {
		return shared.NewDomainError(shared.CodeNotFound, fmt.Sprintf("No dead entry %s", key))
	}
	entry := dead[idx]
	if err := entry.ResetForRetry(); err != nil {
		return shared.WrapDomainError(shared.CodeInvalidState, err.Error(), err)
	}

	pending, err := q.load(ctx, PendingListKey)
	if err != nil {
		return err
	}
	if err := q.save(ctx, PendingListKey, upsert(pending, entry)); err != nil {
		return err
	}
	remaining, _ := without(dead, key)
	return q.save(ctx, DeadListKey, remaining)
}

// Drain replays every pending entry once. Applied entries are dropped, entries
// that failed transiently stay pending with their attempt count raised, and
// entries that ran out of attempts or failed permanently move to the dead list.
// The pending list is replaced by the survivors; entries enqueued while the
// drain was running are kept as enqueued.
func (q *Queue) Drain(ctx context.Context) (*DrainResult, error) {
	q.drainMu.Lock()
	defer q.drainMu.Unlock()

	ctx, span := telemetry.StartServiceSpan(ctx, "pending_operation_queue", "drain")
	defer span.End()

	q.mu.Lock()
	snapshot, err := q.load(ctx, PendingListKey)
	q.mu.Unlock()
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	result := &DrainResult{}
	if len(snapshot) == 0 {
		telemetry.SetOK(span)
		return result, nil
	}

	outcomes := make(map[string]replayOutcome, len(snapshot))
	for i := range snapshot {
		entry := snapshot[i]
		applied := q.replay(ctx, &entry)
		outcomes[entry.Key()] = replayOutcome{entry: entry, applied: applied}
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	current, err := q.load(ctx, PendingListKey)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	dead, err := q.load(ctx, DeadListKey)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	survivors := make([]sales.PendingVerification, 0, len(current))
	for _, entry := range current {
		outcome, replayed := outcomes[entry.Key()]
		if !replayed || !entry.CreatedAt.Equal(outcome.entry.CreatedAt) {
			// enqueued during the drain
			survivors = append(survivors, entry)
			continue
		}
		switch {
		case outcome.applied:
			result.Succeeded++
		case outcome.entry.IsDead():
			result.Dead++
			dead = upsert(dead, outcome.entry)
		default:
			result.Failed++
			survivors = append(survivors, outcome.entry)
		}
	}

	if err := q.save(ctx, PendingListKey, survivors); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if result.Dead > 0 {
		if err := q.save(ctx, DeadListKey, dead); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	}

	telemetry.SetAttributes(span,
		"drain.succeeded", result.Succeeded,
		"drain.failed", result.Failed,
		"drain.dead", result.Dead,
	)
	telemetry.SetOK(span)

	if result.Succeeded > 0 && q.refresher != nil {
		q.refresher.ReloadDeferred()
	}
	q.logger.Info("pending verifications drained",
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
		zap.Int("dead", result.Dead),
	)
	return result, nil
}

type replayOutcome struct {
	entry   sales.PendingVerification
	applied bool
}

// replay calls the status RPC for one entry and records a failure on it
func (q *Queue) replay(ctx context.Context, entry *sales.PendingVerification) bool {
	now := q.now()
	intent := string(entry.Intent)

	if !entry.CanRetry() {
		entry.MarkDead("attempts exhausted", now)
		q.metrics.RecordReplay(ctx, intent, telemetry.ReplayDead)
		return false
	}

	err := q.rpc.UpdateSalePaymentStatus(ctx, entry.SaleID, entry.DesiredStatus, entry.DesiredVerified)
	if err == nil {
		q.metrics.RecordReplay(ctx, intent, telemetry.ReplaySucceeded)
		q.logger.Debug("verification replayed", zap.String("key", entry.Key()))
		return true
	}

	if shared.IsTransient(err) {
		entry.MarkFailed(err.Error(), now)
	} else {
		entry.MarkDead(err.Error(), now)
	}

	if entry.IsDead() {
		q.metrics.RecordReplay(ctx, intent, telemetry.ReplayDead)
		q.logger.Warn("verification moved to dead letter list",
			zap.String("key", entry.Key()),
			zap.Int("attempts", entry.Attempts),
			zap.String("last_error", entry.LastError),
		)
		return false
	}
	q.metrics.RecordReplay(ctx, intent, telemetry.ReplayRetrying)
	q.logger.Warn("verification replay failed",
		zap.String("key", entry.Key()),
		zap.Int("attempts", entry.Attempts),
		zap.Error(err),
	)
	return false
}

func (q *Queue) load(ctx context.Context, key string) ([]sales.PendingVerification, error) {
	raw, ok, err := q.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	if !ok || len(raw) == 0 {
		return nil, nil
	}
	var entries []sales.PendingVerification
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, errors.Join(fmt.Errorf("decode %s", key), err)
	}
	return entries, nil
}

func (q *Queue) save(ctx context.Context, key string, entries []sales.PendingVerification) error {
	if len(entries) == 0 {
		if err := q.store.Remove(ctx, key); err != nil {
			return fmt.Errorf("remove %s: %w", key, err)
		}
		return nil
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := q.store.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func indexOf(entries []sales.PendingVerification, key string) int {
	for i := range entries {
		if entries[i].Key() == key {
			return i
		}
	}
	return -1
}

func upsert(entries []sales.PendingVerification, entry sales.PendingVerification) []sales.PendingVerification {
	if idx := indexOf(entries, entry.Key()); idx >= 0 {
		entries[idx] = entry
		return entries
	}
	return append(entries, entry)
}

func without(entries []sales.PendingVerification, key string) ([]sales.PendingVerification, bool) {
	idx := indexOf(entries, key)
	if idx < 0 {
		return entries, false
	}
	return append(entries[:idx], entries[idx+1:]...), true
}
