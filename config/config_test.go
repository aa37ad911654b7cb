package config_test

import (
	"testing"

	"github.com/rieske/account-aggregator-go/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := config.Load()

	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "8081", cfg.MetricsPort)
	assert.Equal(t, "msgpack", cfg.Serializer)
	assert.False(t, cfg.Postgres.Enabled())
	assert.Equal(t, 5, cfg.Postgres.MaxOpenConns)
	assert.False(t, cfg.LogCaller)
}

func TestLogging(t *testing.T) {
	t.Setenv("LOG_VERBOSITY", "1")
	t.Setenv("LOG_CALLER", "true")

	cfg, err := config.Load()

	require.NoError(t, err)
	assert.Equal(t, 1, cfg.LogVerbosity)
	assert.True(t, cfg.LogCaller)
}

func TestPostgres(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("POSTGRES_PORT", "6543")
	t.Setenv("POSTGRES_USER", "test")
	t.Setenv("POSTGRES_PASSWORD", "secret")

	cfg, err := config.Load()

	require.NoError(t, err)
	assert.True(t, cfg.Postgres.Enabled())
	assert.Equal(t, "host=db port=6543 user=test password=secret dbname=event_store sslmode=disable", cfg.Postgres.DSN())
}

func TestPostgresRequiresCredentials(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "db")

	_, err := config.Load()

	assert.EqualError(t, err, "POSTGRES_USER and POSTGRES_PASSWORD are required with POSTGRES_HOST")
}

func TestUnsupportedSerializer(t *testing.T) {
	t.Setenv("EVENT_SERIALIZER", "xml")

	_, err := config.Load()

	assert.Error(t, err)
}

func TestInvalidNumber(t *testing.T) {
	t.Setenv("LOG_VERBOSITY", "loud")

	_, err := config.Load()

	assert.Error(t, err)
}
