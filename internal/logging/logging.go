// Package logging builds the diagnostic logger for edgelog and the helpers
// components use to accept one.
//
// Every component takes a *slog.Logger at construction, passes it through
// Default and scopes it with its own "component" attribute. Only main picks
// the level and destination; nothing calls slog.SetDefault.
//
// Operator-facing output (warnings, prompts, streamed log lines) does not go
// through slog. The logger carries diagnostics only and stays quiet unless
// the operator raises the level with --log-level.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// Default returns logger, or a discarding logger when it is nil:
//
//	func NewVerifier(cfg Config) *Verifier {
//	    logger := logging.Default(cfg.Logger).With("component", "tofu")
//	    ...
//	}
func Default(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return Discard()
	}
	return logger
}

// ParseLevel maps a --log-level flag value to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q (want debug, info, warn or error)", s)
	}
}

// New builds the base text logger used by main. Authorization values are
// scrubbed from every string attribute before they reach w.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: RedactAuthorization,
	}))
}
