package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{" error ", LevelError, false},
		{"verbose", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelWarn, Output: &buf})
	ctx := context.Background()

	logger.Debug(ctx, "debug message")
	logger.Info(ctx, "info message")
	assert.Empty(t, buf.String())

	logger.Warn(ctx, errors.New("dropped property"), "warn message")
	assert.Contains(t, buf.String(), "warn message")
	assert.Contains(t, buf.String(), "dropped property")
}

func TestLoggerJSONFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelDebug, Format: "json", Output: &buf})

	logger.WithComponent("gateway").
		With("model", "gpt-4").
		Info(context.Background(), "calling model", "attempt", 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "calling model", entry["msg"])
	assert.Equal(t, "gateway", entry["component"])
	assert.Equal(t, "gpt-4", entry["model"])
	assert.Equal(t, float64(1), entry["attempt"])
}

func TestWithDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewLogger(&LoggerConfig{Level: LevelInfo, Format: "json", Output: &buf})
	_ = parent.With("request_id", "abc")

	parent.Info(context.Background(), "parent")
	assert.NotContains(t, buf.String(), "request_id")
}

func TestSanitizeForLog(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "make the button blue", "make the button blue"},
		{"bearer header", "Authorization: Bearer abc", "[REDACTED]"},
		{"api key", "sk-live-123", "[REDACTED]"},
		{"long", strings.Repeat("a", 1200), strings.Repeat("a", 1000) + "...[TRUNCATED]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeForLog(tt.input))
		})
	}
}

func TestPresence(t *testing.T) {
	assert.Equal(t, "[missing]", Presence(""))
	assert.Equal(t, "[exists]", Presence("sk-secret"))
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	assert.NotPanics(t, func() {
		logger.Error(context.Background(), errors.New("x"), "ignored")
	})
}

func TestMultiLogger(t *testing.T) {
	var a, b bytes.Buffer
	multi := NewMultiLogger(
		NewLogger(&LoggerConfig{Level: LevelInfo, Output: &a}),
		NewLogger(&LoggerConfig{Level: LevelInfo, Output: &b}),
	)

	multi.WithComponent("server").Info(context.Background(), "listening")
	assert.Contains(t, a.String(), "listening")
	assert.Contains(t, b.String(), "component=server")
}

func TestPerfLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: LevelDebug, Output: &buf})

	op := StartOperation(logger, "generate")
	op.End(context.Background(), "result", "conversation")

	out := buf.String()
	assert.Contains(t, out, "operation=generate")
	assert.Contains(t, out, "duration_ms=")
}

func TestNewFileLogger(t *testing.T) {
	dir := t.TempDir()

	fl, err := NewFileLogger(&LoggerConfig{Level: LevelInfo}, dir)
	require.NoError(t, err)

	fl.Info(context.Background(), "written to file")
	require.NoError(t, fl.Close())

	data, err := os.ReadFile(fl.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}
