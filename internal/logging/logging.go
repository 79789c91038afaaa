// Package logging builds the structured logger shared by the command line
// and the language packages.
//
// Levels come from the --log-level flag or the log.level config key. Output
// goes to stderr so it never mixes with rendered log output on stdout.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format selects the handler.
type Format int

const (
	// FormatText writes logfmt-style lines.
	FormatText Format = iota
	// FormatJSON writes one JSON object per line.
	FormatJSON
)

// LevelNone disables logging.
const LevelNone = slog.Level(100)

// ParseLevel maps a level name to a slog level. Unknown names fall back to
// warn, which keeps normal runs quiet.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "none", "off":
		return LevelNone
	default:
		return slog.LevelWarn
	}
}

// ParseFormat maps "json" to FormatJSON and anything else to FormatText.
func ParseFormat(s string) Format {
	if strings.EqualFold(strings.TrimSpace(s), "json") {
		return FormatJSON
	}
	return FormatText
}

// Options configures New.
type Options struct {
	Level  slog.Level
	Format Format
	Output io.Writer
}

// New returns a logger for opts. A nil Output means stderr.
func New(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	if opts.Level >= LevelNone {
		out = io.Discard
	}
	ho := &slog.HandlerOptions{Level: opts.Level}
	var h slog.Handler
	switch opts.Format {
	case FormatJSON:
		h = slog.NewJSONHandler(out, ho)
	default:
		h = slog.NewTextHandler(out, ho)
	}
	return slog.New(h)
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
