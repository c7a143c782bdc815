package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks the variables the tests touch; viper treats empty as unset
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"BIZ_APP_NAME", "BIZ_APP_ENV", "BIZ_APP_PORT",
		"BIZ_DATABASE_DRIVER", "BIZ_DATABASE_PATH", "BIZ_DATABASE_HOST", "BIZ_DATABASE_PORT",
		"BIZ_DATABASE_PASSWORD", "BIZ_DATABASE_SSLMODE",
		"BIZ_DATABASE_MAX_OPEN_CONNS", "BIZ_DATABASE_MAX_IDLE_CONNS",
		"BIZ_REMOTE_CALL_TIMEOUT",
		"BIZ_LOCAL_STORE_DRIVER", "BIZ_LOCAL_STORE_KEY_PREFIX",
		"BIZ_INVOICE_TAG", "BIZ_INVOICE_LOCATION",
		"BIZ_OUTBOX_MAX_ATTEMPTS", "BIZ_OUTBOX_REPLAY_ENABLED",
		"BIZ_SUMMARY_CREDIT_TERM_DAYS",
		"BIZ_HTTP_CORS_ALLOW_ORIGINS",
		"BIZ_TELEMETRY_SAMPLING_RATIO",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "bizsuite-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, DriverPostgres, cfg.Database.Driver)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "bizsuite", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.True(t, cfg.Database.AutoMigrate)
		assert.Equal(t, 5*time.Second, cfg.Remote.CallTimeout)
		assert.Equal(t, LocalStoreSQLite, cfg.LocalStore.Driver)
		assert.Equal(t, "BM", cfg.Invoice.Tag)
		assert.Equal(t, time.UTC, cfg.InvoiceLocation())
		assert.True(t, cfg.Outbox.ReplayEnabled)
		assert.True(t, cfg.Outbox.ProbeEnabled)
		assert.Equal(t, 10, cfg.Outbox.MaxAttempts)
		assert.Equal(t, 30*24*time.Hour, cfg.CreditTerm())
		assert.Equal(t, "info", cfg.Log.Level)
	})

	t.Run("loads values from environment variables with BIZ prefix", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("BIZ_APP_PORT", "9000")
		t.Setenv("BIZ_DATABASE_DRIVER", "sqlite")
		t.Setenv("BIZ_DATABASE_PATH", ":memory:")
		t.Setenv("BIZ_REMOTE_CALL_TIMEOUT", "2s")
		t.Setenv("BIZ_LOCAL_STORE_DRIVER", "redis")
		t.Setenv("BIZ_INVOICE_TAG", "KL")
		t.Setenv("BIZ_INVOICE_LOCATION", "Asia/Kolkata")
		t.Setenv("BIZ_OUTBOX_MAX_ATTEMPTS", "4")
		t.Setenv("BIZ_OUTBOX_REPLAY_ENABLED", "false")
		t.Setenv("BIZ_SUMMARY_CREDIT_TERM_DAYS", "15")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, DriverSQLite, cfg.Database.Driver)
		assert.Equal(t, ":memory:", cfg.Database.Path)
		assert.Equal(t, 2*time.Second, cfg.Remote.CallTimeout)
		assert.Equal(t, LocalStoreRedis, cfg.LocalStore.Driver)
		assert.Equal(t, "KL", cfg.Invoice.Tag)
		assert.Equal(t, "Asia/Kolkata", cfg.InvoiceLocation().String())
		assert.Equal(t, 4, cfg.Outbox.MaxAttempts)
		assert.False(t, cfg.Outbox.ReplayEnabled)
		assert.Equal(t, 15*24*time.Hour, cfg.CreditTerm())
	})

	t.Run("rejects unknown database driver", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("BIZ_DATABASE_DRIVER", "mysql")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.driver")
	})

	t.Run("rejects unknown local store driver", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("BIZ_LOCAL_STORE_DRIVER", "etcd")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "local_store.driver")
	})

	t.Run("rejects unknown invoice time zone", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("BIZ_INVOICE_LOCATION", "Mars/Olympus")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invoice.location")
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("BIZ_DATABASE_MAX_OPEN_CONNS", "10")
		t.Setenv("BIZ_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("rejects out of range sampling ratio", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("BIZ_TELEMETRY_SAMPLING_RATIO", "1.5")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sampling_ratio")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	setValidProductionBase := func(t *testing.T) {
		clearEnv(t)
		t.Setenv("BIZ_APP_ENV", "production")
		t.Setenv("BIZ_DATABASE_PASSWORD", "secure-password")
		t.Setenv("BIZ_DATABASE_SSLMODE", "require")
	}

	t.Run("passes validation with valid production config", func(t *testing.T) {
		setValidProductionBase(t)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})

	t.Run("requires database.password in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("BIZ_DATABASE_PASSWORD", "")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("requires SSL enabled in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("BIZ_DATABASE_SSLMODE", "disable")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.sslmode cannot be 'disable' in production")
	})

	t.Run("sqlite needs no password", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("BIZ_DATABASE_DRIVER", "sqlite")
		t.Setenv("BIZ_DATABASE_PASSWORD", "")

		_, err := Load()
		require.NoError(t, err)
	})

	t.Run("memory local store is rejected in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("BIZ_LOCAL_STORE_DRIVER", "memory")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "local_store.driver=memory")
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost:5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "/testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		assert.Contains(t, cfg.DSN(), "pass%40word%23123")
	})
}

func TestRedisConfig_Addr(t *testing.T) {
	cfg := RedisConfig{Host: "cache", Port: 6380}
	assert.Equal(t, "cache:6380", cfg.Addr())
}
