package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New("info", "json", &buf)

	logger.Debug("hidden")
	logger.Info("document scored", "score", 36)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "document scored", rec["msg"])
	assert.Equal(t, float64(36), rec["score"])
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	New("debug", "text", &buf).Debug("extracting", "engine", "native")

	assert.Contains(t, buf.String(), "msg=extracting")
	assert.Contains(t, buf.String(), "engine=native")
}

func TestSetup_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")

	logger, closer, err := Setup("info", "text", path)
	require.NoError(t, err)
	logger.Info("written to file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}

func TestSetup_NoFile(t *testing.T) {
	logger, closer, err := Setup("warn", "text", "")
	require.NoError(t, err)
	assert.NotNil(t, logger)
	assert.NoError(t, closer.Close())
}

func TestContextHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := New("info", "text", &buf)

	ctx := WithLogger(context.Background(), logger)
	ctx = WithAnalysisID(ctx, "abc-123")

	assert.Equal(t, "abc-123", AnalysisID(ctx))
	L(ctx).Info("hello")
	assert.Contains(t, buf.String(), "analysis_id=abc-123")

	assert.Equal(t, slog.Default(), FromContext(context.Background()))
	assert.Empty(t, AnalysisID(context.Background()))
}
