// Package logger configures the process-wide slog.Logger used across the
// pipeline. Third-party library logs are suppressed below debug level so
// that gateway/vector-store chatter doesn't drown out pipeline logs.
package logger

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"strings"
)

const modulePrefix = "github.com/paperloom/core"

// ParseLevel converts a string log level to slog.Level. Unrecognized
// values fall back to warn rather than erroring, since logging
// misconfiguration should never block startup.
func ParseLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// filteringHandler hides third-party library logs unless the level is
// debug, so normal operation only shows pipeline-originated records.
type filteringHandler struct {
	handler  slog.Handler
	minLevel slog.Level
}

func (h *filteringHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.minLevel && h.handler.Enabled(ctx, level)
}

func (h *filteringHandler) Handle(ctx context.Context, record slog.Record) error {
	if h.minLevel <= slog.LevelDebug || h.fromModule(record.PC) {
		return h.handler.Handle(ctx, record)
	}
	return nil
}

func (h *filteringHandler) fromModule(pc uintptr) bool {
	if pc == 0 {
		return false
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return false
	}
	return strings.Contains(fn.Name(), modulePrefix)
}

func (h *filteringHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &filteringHandler{handler: h.handler.WithAttrs(attrs), minLevel: h.minLevel}
}

func (h *filteringHandler) WithGroup(name string) slog.Handler {
	return &filteringHandler{handler: h.handler.WithGroup(name), minLevel: h.minLevel}
}

// New builds a slog.Logger writing JSON records to output at the given
// level, with third-party noise filtered below debug.
func New(level slog.Level, output *os.File) *slog.Logger {
	base := slog.NewJSONHandler(output, &slog.HandlerOptions{Level: level})
	return slog.New(&filteringHandler{handler: base, minLevel: level})
}

// Default returns a ready-to-use info-level logger writing to stderr. Used
// only as a fallback by components constructed without an explicit
// logger — the App wiring in cmd/paperloom always injects one.
func Default() *slog.Logger {
	return New(slog.LevelInfo, os.Stderr)
}
