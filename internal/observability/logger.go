// Package observability provides structured logging for the engine.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/m-mizutani/masq"

	"contentforge/internal/forgeconfig"
)

type contextKey string

const loggerKey contextKey = "logger"

// GlobalLogLevel is the shared log level, changeable at runtime.
var GlobalLogLevel = &slog.LevelVar{}

// NewLogger builds a slog.Logger from LoggingConfig, writing to stdout.
func NewLogger(cfg forgeconfig.LoggingConfig) *slog.Logger {
	return NewLoggerWithWriter(cfg, os.Stdout)
}

// sensitiveFieldRedactor redacts provider credentials and request identifiers
// that producer diagnostics or secret resolvers may attach to log attributes.
func sensitiveFieldRedactor() func(groups []string, a slog.Attr) slog.Attr {
	return masq.New(
		masq.WithFieldName("apiKey"),
		masq.WithFieldName("ApiKey"),
		masq.WithFieldName("secret"),
		masq.WithFieldName("Secret"),
		masq.WithFieldName("token"),
		masq.WithFieldName("Token"),
		masq.WithFieldName("providerRequestId"),
		masq.WithFieldName("ProviderRequestID"),
		masq.WithFieldName("credential"),
		masq.WithFieldName("Credential"),
	)
}

// NewLoggerWithWriter builds a slog.Logger writing to w, honoring cfg's
// level/format and redacting sensitive field names via masq.
func NewLoggerWithWriter(cfg forgeconfig.LoggingConfig, w io.Writer) *slog.Logger {
	GlobalLogLevel.Set(parseLevel(cfg.Level))
	redactor := sensitiveFieldRedactor()

	opts := &slog.HandlerOptions{
		Level:     GlobalLogLevel,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			a = redactor(groups, a)
			if a.Key == slog.TimeKey && cfg.TimeFormat != "" {
				if t, ok := a.Value.Any().(time.Time); ok {
					return slog.String(slog.TimeKey, t.Format(cfg.TimeFormat))
				}
			}
			return a
		},
	}

	var handler slog.Handler
	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetLogLevel changes the global log level at runtime.
func SetLogLevel(level string) { GlobalLogLevel.Set(parseLevel(level)) }

// WithComponent tags a logger with the subsystem emitting through it.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With(slog.String("component", component))
}

// WithMovie tags a logger with the movieId it is scoped to.
func WithMovie(logger *slog.Logger, movieID string) *slog.Logger {
	return logger.With(slog.String("movie_id", movieID))
}

// WithError attaches an error's message as a log attribute.
func WithError(logger *slog.Logger, err error) *slog.Logger {
	if err == nil {
		return logger
	}
	return logger.With(slog.String("error", err.Error()))
}

// LoggerFromContext extracts a logger previously attached with
// ContextWithLogger, or slog.Default() if none was attached.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// ContextWithLogger attaches logger to ctx for retrieval by LoggerFromContext.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// TimedOperation logs the start of an operation and returns a func to defer
// that logs its completion with elapsed duration.
func TimedOperation(ctx context.Context, logger *slog.Logger, operation string) func() {
	start := time.Now()
	logger.InfoContext(ctx, "operation started", slog.String("operation", operation))
	return func() {
		logger.InfoContext(ctx, "operation completed",
			slog.String("operation", operation),
			slog.Duration("duration", time.Since(start)),
		)
	}
}
