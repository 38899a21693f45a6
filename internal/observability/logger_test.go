package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"contentforge/internal/forgeconfig"
)

func TestNewLoggerWithWriterRespectsFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(forgeconfig.LoggingConfig{Level: "info", Format: "text"}, &buf)
	logger.Info("hello", slog.String("k", "v"))
	require.Contains(t, buf.String(), "msg=hello")
}

func TestNewLoggerWithWriterJSONIsDefault(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(forgeconfig.LoggingConfig{Level: "info"}, &buf)
	logger.Info("hello")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Equal(t, "hello", decoded["msg"])
}

func TestNewLoggerWithWriterRedactsSensitiveFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(forgeconfig.LoggingConfig{Level: "info"}, &buf)
	logger.Info("probe", slog.String("apiKey", "super-secret-value"), slog.String("providerRequestId", "req-123"))

	out := buf.String()
	require.NotContains(t, out, "super-secret-value")
	require.NotContains(t, out, "req-123")
}

func TestNewLoggerWithWriterHonorsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(forgeconfig.LoggingConfig{Level: "warn"}, &buf)
	logger.Info("should be dropped")
	require.Empty(t, buf.String())

	logger.Warn("should appear")
	require.Contains(t, buf.String(), "should appear")
}

func TestSetLogLevelChangesGlobalLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(forgeconfig.LoggingConfig{Level: "info"}, &buf)

	SetLogLevel("error")
	logger.Warn("dropped once level raised")
	require.Empty(t, buf.String())

	SetLogLevel("info")
}

func TestWithComponentAndWithMovieTagAttributes(t *testing.T) {
	var buf bytes.Buffer
	base := NewLoggerWithWriter(forgeconfig.LoggingConfig{Level: "info"}, &buf)
	logger := WithMovie(WithComponent(base, "executor"), "movie-1")
	logger.Info("tagged")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Equal(t, "executor", decoded["component"])
	require.Equal(t, "movie-1", decoded["movie_id"])
}

func TestWithErrorAttachesMessageAndPassesThroughNil(t *testing.T) {
	var buf bytes.Buffer
	base := NewLoggerWithWriter(forgeconfig.LoggingConfig{Level: "info"}, &buf)

	require.Same(t, base, WithError(base, nil))

	WithError(base, errors.New("boom")).Error("failed")
	require.Contains(t, buf.String(), "boom")
}

func TestContextWithLoggerRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(forgeconfig.LoggingConfig{Level: "info"}, &buf)

	ctx := ContextWithLogger(context.Background(), logger)
	require.Same(t, logger, LoggerFromContext(ctx))
	require.Same(t, slog.Default(), LoggerFromContext(context.Background()))
}

func TestTimedOperationLogsStartAndCompletion(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(forgeconfig.LoggingConfig{Level: "info"}, &buf)

	done := TimedOperation(context.Background(), logger, "materialize")
	done()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "operation started")
	require.Contains(t, lines[1], "operation completed")
}
