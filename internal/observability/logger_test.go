package observability

import (
	"context"
	"log/slog"
	"testing"

	"github.com/couchcryptid/metar-etl/internal/config"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restoreDefaultLogger(t *testing.T) {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
}

func TestNewLogger_RespectsLevel(t *testing.T) {
	restoreDefaultLogger(t)

	logger := NewLogger(&config.Config{LogLevel: "warn", LogFormat: "text"})
	require.NotNil(t, logger)
	assert.Same(t, logger, slog.Default())
	assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelWarn))
}

func TestNewLogger_DefaultsToInfo(t *testing.T) {
	restoreDefaultLogger(t)

	logger := NewLogger(&config.Config{LogLevel: "bogus", LogFormat: "json"})
	assert.True(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestNewMetricsForTesting_Unregistered(t *testing.T) {
	m := NewMetricsForTesting()
	m.LinesAccepted.WithLabelValues("RCKU").Add(2)
	m.RowsProduced.Inc()

	assert.InDelta(t, 2, testutil.ToFloat64(m.LinesAccepted.WithLabelValues("RCKU")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.RowsProduced), 0)
	assert.Len(t, m.collectors(), 9)
}
