package localstore

import (
	"fmt"

	"github.com/bizsuite/backend/internal/infrastructure/config"
	"github.com/bizsuite/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// Factory creates the configured local store
type Factory struct {
	cfg                   *config.Config
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(l *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = l
	}
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to
// the in-memory store. Queued verifications are then lost on restart.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFactory creates a new factory. Fallback defaults to off in production.
func NewFactory(cfg *config.Config, opts ...FactoryOption) *Factory {
	f := &Factory{
		cfg:                   cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: !cfg.IsProduction(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create opens the store named by local_store.driver
func (f *Factory) Create() (Store, error) {
	ls := f.cfg.LocalStore
	switch ls.Driver {
	case config.LocalStoreMemory:
		f.logger.Warn("using in-memory local store, pending verifications will not survive a restart")
		return NewMemoryStore(), nil

	case config.LocalStoreRedis:
		store, err := NewRedisStore(RedisConfig{
			Host:     f.cfg.Redis.Host,
			Port:     f.cfg.Redis.Port,
			Password: f.cfg.Redis.Password,
			DB:       f.cfg.Redis.DB,
		}, ls.KeyPrefix)
		if err == nil {
			f.logger.Info("using Redis local store", zap.String("addr", f.cfg.Redis.Addr()))
			return store, nil
		}
		if !f.allowInMemoryFallback {
			return nil, fmt.Errorf("Redis required for local store but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory local store", zap.Error(err))
		return NewMemoryStore(), nil

	case config.LocalStoreSQLite, "":
		store, err := NewSQLiteStore(ls.Path, logger.NewGormLogger(f.logger, gormlogger.Warn))
		if err != nil {
			return nil, err
		}
		f.logger.Info("using sqlite local store", zap.String("path", ls.Path))
		return store, nil

	default:
		return nil, fmt.Errorf("unsupported local store driver %q", ls.Driver)
	}
}
