package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rieske/account-aggregator-go/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesStructuredJson(t *testing.T) {
	var out bytes.Buffer
	log := logger.New(logger.WithOutput(&out))

	log.Info("account folded", "accountId", "ACC123456", "revision", 3)

	var line map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &line))
	assert.Equal(t, "account folded", line["message"])
	assert.Equal(t, "ACC123456", line["accountId"])
	assert.Equal(t, float64(3), line["revision"])
	assert.Contains(t, line, "time")
}

func TestServiceAndCallerFields(t *testing.T) {
	var out bytes.Buffer
	log := logger.New(
		logger.WithOutput(&out),
		logger.WithService("account-aggregator"),
		logger.WithCaller(true),
		logger.WithoutTimestamp(),
	)

	log.Info("started")

	var line map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &line))
	assert.Equal(t, "account-aggregator", line["service"])
	assert.Contains(t, line["caller"], "logger_test.go")
	assert.NotContains(t, line, "time")
}

func TestVerbosityFiltersDebugOutput(t *testing.T) {
	var out bytes.Buffer
	log := logger.New(logger.WithOutput(&out), logger.WithVerbosity(0))

	log.V(1).Info("rejected")

	assert.Empty(t, out.String())
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	var out bytes.Buffer
	log := logger.New(logger.WithOutput(&out))
	ctx := logger.NewContext(context.Background(), log)

	logger.FromContext(ctx).Info("from context")

	assert.Contains(t, out.String(), "from context")
	assert.NotPanics(t, func() {
		logger.FromContext(context.Background()).V(5).Info("default")
	})
}
