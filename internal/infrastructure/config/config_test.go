package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnvKeys = []string{
	"POS_APP_NAME",
	"POS_APP_ENV",
	"POS_APP_PORT",
	"POS_DATABASE_HOST",
	"POS_DATABASE_PORT",
	"POS_DATABASE_PASSWORD",
	"POS_DATABASE_SSLMODE",
	"POS_DATABASE_MAX_OPEN_CONNS",
	"POS_DATABASE_MAX_IDLE_CONNS",
	"POS_REDIS_HOST",
	"POS_SYNC_POLL_INTERVAL",
	"POS_SYNC_PUSH_ENABLED",
	"POS_REPORT_TIMEZONE",
	"POS_NOTIFY_KIND",
	"POS_NOTIFY_AMQP_URL",
	"POS_STORAGE_ENABLED",
	"POS_STORAGE_BUCKET",
	"POS_TELEMETRY_SAMPLING_RATIO",
}

// withCleanEnv clears every POS_ variable used here and restores them afterwards.
func withCleanEnv(t *testing.T) {
	t.Helper()
	saved := make(map[string]string, len(configEnvKeys))
	for _, k := range configEnvKeys {
		saved[k] = os.Getenv(k)
		os.Unsetenv(k)
	}
	t.Cleanup(func() {
		for k, v := range saved {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	})
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		withCleanEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "pos-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "pos", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.False(t, cfg.Redis.Enabled())
		assert.Equal(t, 5*time.Second, cfg.Sync.PollInterval)
		assert.Equal(t, "pos:orders:changed", cfg.Sync.Channel)
		assert.Equal(t, "Asia/Kolkata", cfg.Report.Timezone)
		assert.Equal(t, "log", cfg.Notify.Kind)
		assert.Equal(t, 2, cfg.Rollup.Workers)
	})

	t.Run("loads values from environment variables with POS prefix", func(t *testing.T) {
		withCleanEnv(t)
		os.Setenv("POS_APP_NAME", "till-01")
		os.Setenv("POS_DATABASE_HOST", "db.local")
		os.Setenv("POS_DATABASE_PORT", "5433")
		os.Setenv("POS_REDIS_HOST", "cache.local")
		os.Setenv("POS_SYNC_POLL_INTERVAL", "10s")
		os.Setenv("POS_REPORT_TIMEZONE", "UTC")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "till-01", cfg.App.Name)
		assert.Equal(t, "db.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.True(t, cfg.Redis.Enabled())
		assert.Equal(t, "cache.local:6379", cfg.Redis.Addr())
		assert.Equal(t, 10*time.Second, cfg.Sync.PollInterval)
		assert.Equal(t, "UTC", cfg.Report.Timezone)
	})

	t.Run("clamps poll interval into the allowed window", func(t *testing.T) {
		withCleanEnv(t)
		os.Setenv("POS_SYNC_POLL_INTERVAL", "1s")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, MinSyncPollInterval, cfg.Sync.PollInterval)

		os.Setenv("POS_SYNC_POLL_INTERVAL", "2m")
		cfg, err = Load()
		require.NoError(t, err)
		assert.Equal(t, MaxSyncPollInterval, cfg.Sync.PollInterval)
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		withCleanEnv(t)
		os.Setenv("POS_DATABASE_MAX_OPEN_CONNS", "10")
		os.Setenv("POS_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("rejects unknown timezone", func(t *testing.T) {
		withCleanEnv(t)
		os.Setenv("POS_REPORT_TIMEZONE", "Mars/Olympus")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "report.timezone")
	})

	t.Run("rejects redis notifier without redis", func(t *testing.T) {
		withCleanEnv(t)
		os.Setenv("POS_NOTIFY_KIND", "redis")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "requires redis.host")
	})

	t.Run("rejects amqp notifier without url", func(t *testing.T) {
		withCleanEnv(t)
		os.Setenv("POS_NOTIFY_KIND", "amqp")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "notify.amqp_url")
	})

	t.Run("rejects push sync without redis", func(t *testing.T) {
		withCleanEnv(t)
		os.Setenv("POS_SYNC_PUSH_ENABLED", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sync.push_enabled")
	})

	t.Run("requires bucket when storage enabled", func(t *testing.T) {
		withCleanEnv(t)
		os.Setenv("POS_STORAGE_ENABLED", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "storage.bucket")
	})

	t.Run("rejects sampling ratio outside range", func(t *testing.T) {
		withCleanEnv(t)
		os.Setenv("POS_TELEMETRY_SAMPLING_RATIO", "1.5")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sampling_ratio")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	t.Run("requires database password", func(t *testing.T) {
		withCleanEnv(t)
		os.Setenv("POS_APP_ENV", "production")
		os.Setenv("POS_DATABASE_SSLMODE", "require")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("rejects sslmode disable", func(t *testing.T) {
		withCleanEnv(t)
		os.Setenv("POS_APP_ENV", "production")
		os.Setenv("POS_DATABASE_PASSWORD", "secret")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sslmode")
	})

	t.Run("accepts valid production config", func(t *testing.T) {
		withCleanEnv(t)
		os.Setenv("POS_APP_ENV", "production")
		os.Setenv("POS_DATABASE_PASSWORD", "secret")
		os.Setenv("POS_DATABASE_SSLMODE", "require")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})
}

func TestClampPollInterval(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want time.Duration
	}{
		{0, MinSyncPollInterval},
		{2 * time.Second, MinSyncPollInterval},
		{3 * time.Second, 3 * time.Second},
		{7 * time.Second, 7 * time.Second},
		{15 * time.Second, 15 * time.Second},
		{time.Minute, MaxSyncPollInterval},
	}
	for _, tt := range tests {
		t.Run(tt.in.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, ClampPollInterval(tt.in))
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "h", Port: 5432, User: "u", Password: "p@ss", DBName: "pos", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p%40ss@h:5432/pos?sslmode=disable", d.DSN())
}
