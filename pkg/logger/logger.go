// Package logger builds the *slog.Logger shared by the CLI, the settings
// server, and the OPay client.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"

	domain "github.com/donaldgifford/opay/pkg/types"
)

// Output formats.
const (
	FormatText   = "text"
	FormatJSON   = "json"
	FormatPretty = "pretty"
)

// secretKeys are attribute keys whose values never reach the output in
// full. Matching ignores case.
var secretKeys = map[string]struct{}{
	"token":         {},
	"authorization": {},
}

// New creates a logger writing to stderr.
// Level: "debug", "info", "warn", "error" (default "info").
// Format: "text", "json", or "pretty" (colourized text, default "text").
func New(level, format string) *slog.Logger {
	return NewWithWriter(os.Stderr, level, format)
}

// NewWithWriter creates a logger writing to w. Values logged under a
// token or authorization key are masked except for their last four
// characters.
func NewWithWriter(w io.Writer, level, format string) *slog.Logger {
	lvl := ParseLevel(level)

	var handler slog.Handler
	switch strings.ToLower(format) {
	case FormatJSON:
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl, ReplaceAttr: redact})
	case FormatPretty:
		handler = tint.NewHandler(w, &tint.Options{
			Level:       lvl,
			TimeFormat:  time.Kitchen,
			ReplaceAttr: redact,
		})
	default:
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl, ReplaceAttr: redact})
	}

	return slog.New(handler)
}

// ParseLevel converts a level string to slog.Level. Unknown values map to
// LevelInfo.
func ParseLevel(level string) slog.Level {
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

func redact(_ []string, a slog.Attr) slog.Attr {
	if _, ok := secretKeys[strings.ToLower(a.Key)]; !ok {
		return a
	}
	return slog.String(a.Key, domain.Mask(a.Value.String()))
}
