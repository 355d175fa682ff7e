// Package logging defines a minimal structured-logging interface used across
// the project, with slog and zap backends.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key-value pairs, e.g.:
//
//	log.Info(ctx, "starting server", "addr", addr)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key-value pairs.
	With(args ...any) Logger
}

// New builds a Logger for the named backend ("slog" or "zap") writing JSON to w.
// A nil w means stdout.
func New(backend string, w io.Writer) (Logger, error) {
	if w == nil {
		w = os.Stdout
	}
	switch backend {
	case "", "slog":
		return NewSlogLogger(slog.New(slog.NewJSONHandler(w, nil))), nil
	case "zap":
		return NewZapLogger(newZapJSON(w)), nil
	default:
		return nil, fmt.Errorf("unknown log backend %q", backend)
	}
}
