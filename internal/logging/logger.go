package logging

import (
	"io"
	"log/slog"
	"os"
)

// New creates the engine logger. Logs go to Stderr so they never interleave
// with command output on Stdout, and the "error" key is normalized to "err"
// so log queries match a single key.
func New(level slog.Level) *slog.Logger {
	return slog.New(handler(os.Stderr, level))
}

// NewNop returns a logger that discards everything. Used as the default when
// no logger is injected, so call sites never nil-check.
func NewNop() *slog.Logger {
	return slog.New(handler(io.Discard, slog.LevelError))
}

func handler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	})
}
