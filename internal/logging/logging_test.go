package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/chainguard-dev/clog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCriticalLevelName(t *testing.T) {
	var buf bytes.Buffer
	ctx := Setup(context.Background(), &buf, "info", "json")

	Critical(ctx, "coverage violated", "query_log_id", "q1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "CRITICAL", entry["level"])
	assert.Equal(t, "coverage violated", entry["msg"])
	assert.Equal(t, "q1", entry["query_log_id"])
}

func TestSetupRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	ctx := Setup(context.Background(), &buf, "error", "text")

	clog.FromContext(ctx).Info("hidden")
	assert.Empty(t, buf.String())

	Critical(ctx, "shown")
	assert.Contains(t, buf.String(), "level=CRITICAL")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":    slog.LevelDebug,
		"WARN":     slog.LevelWarn,
		"error":    slog.LevelError,
		"critical": LevelCritical,
		"":         slog.LevelInfo,
		"verbose":  slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}
