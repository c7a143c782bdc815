package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Local store drivers
const (
	LocalStoreSQLite = "sqlite"
	LocalStoreRedis  = "redis"
	LocalStoreMemory = "memory"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Remote     RemoteConfig
	LocalStore LocalStoreConfig
	Redis      RedisConfig
	Invoice    InvoiceConfig
	Outbox     OutboxConfig
	Summary    SummaryConfig
	Log        LogConfig
	HTTP       HTTPConfig
	Telemetry  TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds the remote store connection settings
type DatabaseConfig struct {
	Driver          string // postgres, sqlite
	Path            string // sqlite file, ":memory:" allowed
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
	AutoMigrate     bool
}

// RemoteConfig holds settings for calls against the remote store
type RemoteConfig struct {
	CallTimeout time.Duration // a call exceeding this is reported as a transient failure
}

// LocalStoreConfig holds the device-local durable key-value store settings
type LocalStoreConfig struct {
	Driver    string // sqlite, redis, memory
	Path      string
	KeyPrefix string
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// InvoiceConfig holds invoice numbering settings
type InvoiceConfig struct {
	Tag      string
	Location string // IANA zone used for month boundaries
}

// OutboxConfig holds pending verification replay settings
type OutboxConfig struct {
	ReplayEnabled bool
	PollInterval  time.Duration
	MaxAttempts   int
	ProbeEnabled  bool
	ProbeInterval time.Duration
	DrainTimeout  time.Duration
}

// SummaryConfig holds dashboard summary settings
type SummaryConfig struct {
	CreditTermDays int
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	ReloadDebounce   time.Duration // coalescing window of deferred reload notifications
	SSEKeepAlive     time.Duration
	CORSAllowOrigins []string
	TrustedProxies   []string
	ShutdownTimeout  time.Duration
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	MetricsInterval   time.Duration
	LogsEnabled       bool
	// Database tracing options
	DBTraceEnabled    bool          // Enable database query tracing (otelgorm)
	DBSlowQueryThresh time.Duration // Slow query threshold for warnings (default: 200ms)
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with BIZ_ prefix (e.g., BIZ_DATABASE_DRIVER)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("outbox.replay_enabled", true)
	v.SetDefault("outbox.probe_enabled", true)

	v.SetEnvPrefix("BIZ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			Path:            v.GetString("database.path"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			AutoMigrate:     v.GetBool("database.auto_migrate"),
		},
		Remote: RemoteConfig{
			CallTimeout: v.GetDuration("remote.call_timeout"),
		},
		LocalStore: LocalStoreConfig{
			Driver:    v.GetString("local_store.driver"),
			Path:      v.GetString("local_store.path"),
			KeyPrefix: v.GetString("local_store.key_prefix"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Invoice: InvoiceConfig{
			Tag:      v.GetString("invoice.tag"),
			Location: v.GetString("invoice.location"),
		},
		Outbox: OutboxConfig{
			ReplayEnabled: v.GetBool("outbox.replay_enabled"),
			PollInterval:  v.GetDuration("outbox.poll_interval"),
			MaxAttempts:   v.GetInt("outbox.max_attempts"),
			ProbeEnabled:  v.GetBool("outbox.probe_enabled"),
			ProbeInterval: v.GetDuration("outbox.probe_interval"),
			DrainTimeout:  v.GetDuration("outbox.drain_timeout"),
		},
		Summary: SummaryConfig{
			CreditTermDays: v.GetInt("summary.credit_term_days"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			ReloadDebounce:   v.GetDuration("http.reload_debounce"),
			SSEKeepAlive:     v.GetDuration("http.sse_keep_alive"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
			ShutdownTimeout:  v.GetDuration("http.shutdown_timeout"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "bizsuite-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverPostgres
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = filepath.Join("data", "bizsuite.db")
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "bizsuite"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Remote.CallTimeout == 0 {
		cfg.Remote.CallTimeout = 5 * time.Second
	}
	if cfg.LocalStore.Driver == "" {
		cfg.LocalStore.Driver = LocalStoreSQLite
	}
	if cfg.LocalStore.Path == "" {
		cfg.LocalStore.Path = filepath.Join("data", "local.db")
	}
	if cfg.LocalStore.KeyPrefix == "" {
		cfg.LocalStore.KeyPrefix = "bizsuite:"
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Invoice.Tag == "" {
		cfg.Invoice.Tag = "BM"
	}
	if cfg.Invoice.Location == "" {
		cfg.Invoice.Location = "UTC"
	}
	if cfg.Outbox.PollInterval == 0 {
		cfg.Outbox.PollInterval = 30 * time.Second
	}
	if cfg.Outbox.MaxAttempts == 0 {
		cfg.Outbox.MaxAttempts = 10
	}
	if cfg.Outbox.ProbeInterval == 0 {
		cfg.Outbox.ProbeInterval = 5 * time.Second
	}
	if cfg.Outbox.DrainTimeout == 0 {
		cfg.Outbox.DrainTimeout = 2 * time.Minute
	}
	if cfg.Summary.CreditTermDays == 0 {
		cfg.Summary.CreditTermDays = 30
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20
	}
	if cfg.HTTP.ReloadDebounce == 0 {
		cfg.HTTP.ReloadDebounce = 500 * time.Millisecond
	}
	if cfg.HTTP.SSEKeepAlive == 0 {
		cfg.HTTP.SSEKeepAlive = 15 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "bizsuite-backend"
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.Database.Driver)
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	switch c.LocalStore.Driver {
	case LocalStoreSQLite, LocalStoreRedis, LocalStoreMemory:
	default:
		return fmt.Errorf("local_store.driver must be one of sqlite, redis, memory, got %q", c.LocalStore.Driver)
	}

	if c.Remote.CallTimeout < 0 {
		return fmt.Errorf("remote.call_timeout cannot be negative")
	}
	if c.Outbox.MaxAttempts < 0 {
		return fmt.Errorf("outbox.max_attempts cannot be negative")
	}
	if c.Summary.CreditTermDays < 0 {
		return fmt.Errorf("summary.credit_term_days cannot be negative")
	}
	if _, err := time.LoadLocation(c.Invoice.Location); err != nil {
		return fmt.Errorf("invoice.location %q is not a valid time zone: %w", c.Invoice.Location, err)
	}

	if c.IsProduction() {
		if c.Database.Driver == DriverPostgres {
			if c.Database.Password == "" {
				return fmt.Errorf("database.password is required in production")
			}
			if c.Database.SSLMode == "disable" {
				return fmt.Errorf("database.sslmode cannot be 'disable' in production")
			}
		}
		if c.LocalStore.Driver == LocalStoreMemory {
			return fmt.Errorf("local_store.driver=memory loses queued verifications on restart and is not allowed in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the Redis address
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// InvoiceLocation returns the time zone used for invoice month boundaries
func (c *Config) InvoiceLocation() *time.Location {
	loc, err := time.LoadLocation(c.Invoice.Location)
	if err != nil {
		return time.UTC
	}
	return loc
}

// CreditTerm returns the summary credit term as a duration
func (c *Config) CreditTerm() time.Duration {
	return time.Duration(c.Summary.CreditTermDays) * 24 * time.Hour
}

// IsProduction reports whether the app runs in production
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
