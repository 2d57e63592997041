// Package logging configures the structured logger carried in the context.
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/chainguard-dev/clog"
)

// LevelCritical marks invariant violations that abort a unit of work.
const LevelCritical = slog.Level(12)

// Setup installs a JSON (default) or text logger writing to w into ctx.
func Setup(ctx context.Context, w io.Writer, level, format string) context.Context {
	opts := &slog.HandlerOptions{
		Level:       ParseLevel(level),
		ReplaceAttr: replaceLevel,
	}

	var h slog.Handler
	if strings.EqualFold(format, "text") {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}

	return clog.WithLogger(ctx, clog.New(h))
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "critical":
		return LevelCritical
	default:
		return slog.LevelInfo
	}
}

// Critical logs msg at LevelCritical using the logger in ctx.
func Critical(ctx context.Context, msg string, args ...any) {
	clog.FromContext(ctx).Log(ctx, LevelCritical, msg, args...)
}

func replaceLevel(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	if level, ok := a.Value.Any().(slog.Level); ok && level == LevelCritical {
		a.Value = slog.StringValue("CRITICAL")
	}
	return a
}
