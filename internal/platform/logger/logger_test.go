package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "input %q", in)
	}
}

// InitWriter replaces the process default logger, so these tests are not parallel.

func TestInitWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := InitWriter(&buf, "warn", "json")

	l.Info("dropped")
	l.Warn("provider failed", "provider", "polygon")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "provider failed", rec["msg"])
	assert.Equal(t, "polygon", rec["provider"])
	assert.Equal(t, "WARN", rec["level"])
}

func TestInitWriter_TextSetsDefault(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, "debug", "text")

	slog.Debug("cache miss", "key", "candles:AAPL:30:1d")

	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "key=candles:AAPL:30:1d")
}
