// Package logging builds the console's slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/kube-rca/soc-console/internal/config"
	"golang.org/x/term"
)

// New returns a logger writing to stderr. Format "json" or "text" forces
// the handler; otherwise text is used on a terminal and JSON when stderr
// is piped.
func New(cfg config.LogConfig) *slog.Logger {
	return NewWithWriter(cfg, os.Stderr, term.IsTerminal(int(os.Stderr.Fd())))
}

func NewWithWriter(cfg config.LogConfig, w io.Writer, tty bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		if tty {
			handler = slog.NewTextHandler(w, opts)
		} else {
			handler = slog.NewJSONHandler(w, opts)
		}
	}
	return slog.New(handler)
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// Discard returns a logger that drops everything. Used by tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
