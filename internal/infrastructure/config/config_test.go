package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Save original env vars and restore after tests
	originalEnv := map[string]string{
		"PARTNERLY_APP_NAME":                os.Getenv("PARTNERLY_APP_NAME"),
		"PARTNERLY_APP_ENV":                 os.Getenv("PARTNERLY_APP_ENV"),
		"PARTNERLY_APP_PORT":                os.Getenv("PARTNERLY_APP_PORT"),
		"PARTNERLY_DATABASE_HOST":           os.Getenv("PARTNERLY_DATABASE_HOST"),
		"PARTNERLY_DATABASE_PORT":           os.Getenv("PARTNERLY_DATABASE_PORT"),
		"PARTNERLY_DATABASE_USER":           os.Getenv("PARTNERLY_DATABASE_USER"),
		"PARTNERLY_DATABASE_PASSWORD":       os.Getenv("PARTNERLY_DATABASE_PASSWORD"),
		"PARTNERLY_DATABASE_DBNAME":         os.Getenv("PARTNERLY_DATABASE_DBNAME"),
		"PARTNERLY_DATABASE_SSLMODE":        os.Getenv("PARTNERLY_DATABASE_SSLMODE"),
		"PARTNERLY_DATABASE_MAX_OPEN_CONNS": os.Getenv("PARTNERLY_DATABASE_MAX_OPEN_CONNS"),
		"PARTNERLY_DATABASE_MAX_IDLE_CONNS": os.Getenv("PARTNERLY_DATABASE_MAX_IDLE_CONNS"),
		"PARTNERLY_STRIPE_WEBHOOK_SECRET":   os.Getenv("PARTNERLY_STRIPE_WEBHOOK_SECRET"),
		"PARTNERLY_COMMISSION_DEFAULT_RATE": os.Getenv("PARTNERLY_COMMISSION_DEFAULT_RATE"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	clearEnv := func() {
		for k := range originalEnv {
			os.Unsetenv(k)
		}
	}

	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv()

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "partnerly-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "postgres", cfg.Database.User)
		assert.Equal(t, "", cfg.Database.Password)
		assert.Equal(t, "partnerly", cfg.Database.DBName)
		assert.Equal(t, "disable", cfg.Database.SSLMode)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.Equal(t, "usd", cfg.Stripe.DefaultCurrency)
		assert.Equal(t, int64(64*1024), cfg.Stripe.MaxWebhookBodyBytes)
		assert.Equal(t, "0.10", cfg.Commission.DefaultRate)
		assert.Equal(t, 24*time.Hour, cfg.Commission.IdempotencyTTL)
	})

	t.Run("loads values from environment variables with PARTNERLY prefix", func(t *testing.T) {
		clearEnv()
		os.Setenv("PARTNERLY_APP_NAME", "test-app")
		os.Setenv("PARTNERLY_APP_ENV", "testing")
		os.Setenv("PARTNERLY_APP_PORT", "9000")
		os.Setenv("PARTNERLY_DATABASE_HOST", "testdb.local")
		os.Setenv("PARTNERLY_DATABASE_PORT", "5433")
		os.Setenv("PARTNERLY_DATABASE_USER", "testuser")
		os.Setenv("PARTNERLY_DATABASE_PASSWORD", "testpass")
		os.Setenv("PARTNERLY_DATABASE_DBNAME", "testdb")
		os.Setenv("PARTNERLY_DATABASE_SSLMODE", "require")
		os.Setenv("PARTNERLY_STRIPE_WEBHOOK_SECRET", "whsec_test123")
		os.Setenv("PARTNERLY_COMMISSION_DEFAULT_RATE", "0.25")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-app", cfg.App.Name)
		assert.Equal(t, "testing", cfg.App.Env)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "testuser", cfg.Database.User)
		assert.Equal(t, "testpass", cfg.Database.Password)
		assert.Equal(t, "testdb", cfg.Database.DBName)
		assert.Equal(t, "require", cfg.Database.SSLMode)
		assert.Equal(t, "whsec_test123", cfg.Stripe.WebhookSecret)
		assert.Equal(t, "0.25", cfg.Commission.DefaultRate)
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		clearEnv()
		os.Setenv("PARTNERLY_DATABASE_MAX_OPEN_CONNS", "10")
		os.Setenv("PARTNERLY_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns")
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("zero MaxOpenConns uses default", func(t *testing.T) {
		clearEnv()
		os.Setenv("PARTNERLY_DATABASE_MAX_OPEN_CONNS", "0")

		cfg, err := Load()
		require.NoError(t, err)
		// 0 is treated as "not set", so default (25) is used
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	})

	t.Run("rejects out-of-range default commission rate", func(t *testing.T) {
		clearEnv()
		os.Setenv("PARTNERLY_COMMISSION_DEFAULT_RATE", "1.5")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "commission.default_rate")
	})

	t.Run("rejects non-numeric default commission rate", func(t *testing.T) {
		clearEnv()
		os.Setenv("PARTNERLY_COMMISSION_DEFAULT_RATE", "ten percent")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a valid decimal")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	originalEnv := map[string]string{
		"PARTNERLY_APP_ENV":               os.Getenv("PARTNERLY_APP_ENV"),
		"PARTNERLY_DATABASE_PASSWORD":     os.Getenv("PARTNERLY_DATABASE_PASSWORD"),
		"PARTNERLY_DATABASE_SSLMODE":      os.Getenv("PARTNERLY_DATABASE_SSLMODE"),
		"PARTNERLY_STRIPE_SECRET_KEY":     os.Getenv("PARTNERLY_STRIPE_SECRET_KEY"),
		"PARTNERLY_STRIPE_WEBHOOK_SECRET": os.Getenv("PARTNERLY_STRIPE_WEBHOOK_SECRET"),
		"PARTNERLY_STRIPE_IS_TEST_MODE":   os.Getenv("PARTNERLY_STRIPE_IS_TEST_MODE"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	clearEnv := func() {
		for k := range originalEnv {
			os.Unsetenv(k)
		}
	}

	setValidProductionBase := func() {
		os.Setenv("PARTNERLY_APP_ENV", "production")
		os.Setenv("PARTNERLY_DATABASE_PASSWORD", "secure-password")
		os.Setenv("PARTNERLY_DATABASE_SSLMODE", "require")
		os.Setenv("PARTNERLY_STRIPE_SECRET_KEY", "sk_live_abc123")
		os.Setenv("PARTNERLY_STRIPE_WEBHOOK_SECRET", "whsec_abc123")
	}

	t.Run("requires database.password in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Unsetenv("PARTNERLY_DATABASE_PASSWORD")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("requires SSL enabled in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Setenv("PARTNERLY_DATABASE_SSLMODE", "disable")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.sslmode cannot be 'disable' in production")
	})

	t.Run("requires stripe secrets in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Unsetenv("PARTNERLY_STRIPE_WEBHOOK_SECRET")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "stripe.webhook_secret is required in production")
	})

	t.Run("rejects test mode in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Setenv("PARTNERLY_STRIPE_IS_TEST_MODE", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "stripe.is_test_mode must be false in production")
	})

	t.Run("passes validation with valid production config", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db.internal",
		Port:     5432,
		User:     "partnerly",
		Password: "p@ss/word",
		DBName:   "partnerly",
		SSLMode:  "require",
	}

	dsn := cfg.DSN()

	assert.Contains(t, dsn, "postgres://")
	assert.Contains(t, dsn, "db.internal:5432")
	assert.Contains(t, dsn, "sslmode=require")
	// Special characters in the password must be escaped
	assert.NotContains(t, dsn, "p@ss/word")
}
