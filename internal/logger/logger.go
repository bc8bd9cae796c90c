// Package logger writes structured JSON log lines tagged with the service name
// and, when present, the chi request id carried in the context.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// Fields carries extra key/value pairs for a single log line.
type Fields map[string]any

var (
	mu      sync.RWMutex
	current = newHandlerLogger(os.Stdout, "api", slog.LevelInfo)
)

func newHandlerLogger(w io.Writer, service string, level slog.Level) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h).With("service", service)
}

// Init configures the package logger. level is one of debug, info, warn, error.
func Init(service, level string) {
	SetOutput(os.Stdout, service, level)
}

// SetOutput redirects log output; tests use it to capture lines.
func SetOutput(w io.Writer, service, level string) {
	mu.Lock()
	defer mu.Unlock()
	current = newHandlerLogger(w, service, parseLevel(level))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func write(ctx context.Context, level slog.Level, message string, err error, fields []Fields) {
	mu.RLock()
	l := current
	mu.RUnlock()

	if ctx == nil {
		ctx = context.Background()
	}
	if !l.Enabled(ctx, level) {
		return
	}

	attrs := make([]any, 0, 4)
	if id := chiMiddleware.GetReqID(ctx); id != "" {
		attrs = append(attrs, "request_id", id)
	}
	if err != nil {
		attrs = append(attrs, "error", err.Error())
	}
	// Later maps win on duplicate keys.
	merged := Fields{}
	for _, f := range fields {
		for k, v := range f {
			merged[k] = v
		}
	}
	if len(merged) > 0 {
		group := make([]any, 0, len(merged)*2)
		for k, v := range merged {
			group = append(group, k, v)
		}
		attrs = append(attrs, slog.Group("fields", group...))
	}
	l.Log(ctx, level, message, attrs...)
}

func Debug(ctx context.Context, message string, fields ...Fields) {
	write(ctx, slog.LevelDebug, message, nil, fields)
}

func Info(ctx context.Context, message string, fields ...Fields) {
	write(ctx, slog.LevelInfo, message, nil, fields)
}

func Warn(ctx context.Context, message string, fields ...Fields) {
	write(ctx, slog.LevelWarn, message, nil, fields)
}

func Error(ctx context.Context, message string, err error, fields ...Fields) {
	write(ctx, slog.LevelError, message, err, fields)
}
