package outbox

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Drainer replays pending entries
type Drainer interface {
	Drain(ctx context.Context) (*DrainResult, error)
}

// Probe reports whether the remote store is reachable
type Probe interface {
	Ping(ctx context.Context) error
}

// ReplayerConfig holds configuration for the replayer
type ReplayerConfig struct {
	PollInterval  time.Duration
	ProbeInterval time.Duration
	DrainTimeout  time.Duration
}

// DefaultReplayerConfig returns default configuration
func DefaultReplayerConfig() ReplayerConfig {
	return ReplayerConfig{
		PollInterval:  30 * time.Second,
		ProbeInterval: 5 * time.Second,
		DrainTimeout:  2 * time.Minute,
	}
}

// Replayer drains the queue on start, on every poll tick, when triggered and
// whenever the probe sees the remote store come back after being unreachable.
type Replayer struct {
	queue  Drainer
	probe  Probe
	config ReplayerConfig
	logger *zap.Logger

	trigger chan struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu     sync.Mutex
	online bool
}

// NewReplayer creates a new replayer. A nil probe disables reconnect detection.
func NewReplayer(queue Drainer, probe Probe, config ReplayerConfig, logger *zap.Logger) *Replayer {
	defaults := DefaultReplayerConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.ProbeInterval <= 0 {
		config.ProbeInterval = defaults.ProbeInterval
	}
	if config.DrainTimeout <= 0 {
		config.DrainTimeout = defaults.DrainTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Replayer{
		queue:   queue,
		probe:   probe,
		config:  config,
		logger:  logger,
		trigger: make(chan struct{}, 1),
		online:  true,
	}
}

// Start starts the background loops
func (r *Replayer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.wg.Add(1)
	go r.drainLoop(ctx)

	if r.probe != nil {
		r.wg.Add(1)
		go r.probeLoop(ctx)
	}

	r.logger.Info("verification replayer started",
		zap.Duration("poll_interval", r.config.PollInterval),
		zap.Bool("probe_enabled", r.probe != nil),
	)

	// entries left over from the previous run
	r.Trigger()
	return nil
}

// Stop gracefully stops the replayer
func (r *Replayer) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("verification replayer stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Trigger requests a drain without waiting for the next tick.
// Requests made while one is already waiting are merged.
func (r *Replayer) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Online returns the last observed connectivity
func (r *Replayer) Online() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.online
}

func (r *Replayer) drainLoop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.drain(ctx)
		case <-r.trigger:
			r.drain(ctx)
		}
	}
}

func (r *Replayer) drain(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, r.config.DrainTimeout)
	defer cancel()

	if _, err := r.queue.Drain(ctx); err != nil {
		r.logger.Error("failed to drain pending verifications", zap.Error(err))
	}
}

func (r *Replayer) probeLoop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.ProbeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.checkConnectivity(ctx)
		}
	}
}

func (r *Replayer) checkConnectivity(ctx context.Context) {
	err := r.probe.Ping(ctx)
	online := err == nil

	r.mu.Lock()
	wasOnline := r.online
	r.online = online
	r.mu.Unlock()

	switch {
	case online && !wasOnline:
		r.logger.Info("remote store reachable again, replaying pending verifications")
		r.Trigger()
	case !online && wasOnline:
		r.logger.Warn("remote store unreachable", zap.Error(err))
	}
}
