package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func newBufferLogger(level, format string) (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(&Config{Level: level, Format: format, Output: &buf}), &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.NotNil(t, cfg.Output)
	assert.False(t, cfg.AddSource)
}

func TestNew_JSONFormat(t *testing.T) {
	logger, buf := newBufferLogger("info", "json")

	logger.Info("test message", "key", "value")

	entry := decodeLine(t, buf)
	assert.Equal(t, "test message", entry["msg"])
	assert.Equal(t, "value", entry["key"])
}

func TestNew_TextFormat(t *testing.T) {
	logger, buf := newBufferLogger("debug", "TEXT")

	logger.Debug("debug message")

	assert.Contains(t, buf.String(), "msg=\"debug message\"")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.level))
		})
	}
}

func TestNew_NilConfig(t *testing.T) {
	require.NotNil(t, New(nil))
}

func TestLogLevelFiltering(t *testing.T) {
	logger, buf := newBufferLogger("warn", "json")

	logger.Info("hidden")
	assert.Zero(t, buf.Len())

	logger.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestContextHandler_AddsRequestAndCorrelationIDs(t *testing.T) {
	logger, buf := newBufferLogger("info", "json")

	ctx := WithRequestID(context.Background(), "req-456")
	ctx = WithCorrelationID(ctx, "apigw-123")
	logger.InfoContext(ctx, "test with context")

	entry := decodeLine(t, buf)
	assert.Equal(t, "req-456", entry["request_id"])
	assert.Equal(t, "apigw-123", entry["correlation_id"])
	assert.NotContains(t, entry, "trace_id")
}

func TestContextHandler_AddsSpanContext(t *testing.T) {
	logger, buf := newBufferLogger("info", "json")

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	logger.InfoContext(ctx, "traced")

	entry := decodeLine(t, buf)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", entry["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", entry["span_id"])
}

func TestContextHandler_WithAttrsAndGroup(t *testing.T) {
	logger, buf := newBufferLogger("info", "json")

	ctx := WithRequestID(context.Background(), "req-1")
	logger.With("component", "adapter").WithGroup("http").InfoContext(ctx, "grouped", "status", 200)

	entry := decodeLine(t, buf)
	assert.Equal(t, "adapter", entry["component"])
	group, ok := entry["http"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(200), group["status"])
	assert.Equal(t, "req-1", group["request_id"])
}

func TestGetIDs_Empty(t *testing.T) {
	assert.Empty(t, GetRequestID(context.Background()))
	assert.Empty(t, GetCorrelationID(context.Background()))
}

func TestSetup(t *testing.T) {
	original := slog.Default()
	defer slog.SetDefault(original)

	var buf bytes.Buffer
	l := Setup(&Config{Level: "info", Format: "json", Output: &buf})

	assert.Same(t, l, slog.Default())
	slog.Info("through default")
	assert.Contains(t, buf.String(), "through default")
}
