// Package logging configures the process-wide structured logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// envLevel overrides the configured log level when set.
const envLevel = "SUDB_LOG_LEVEL"

// New returns a component-tagged logger writing human-readable lines to w.
// level is one of trace, debug, info, warn, error; unknown values fall back
// to info. The SUDB_LOG_LEVEL environment variable wins over level.
func New(w io.Writer, component, level string) zerolog.Logger {
	if env := os.Getenv(envLevel); env != "" {
		level = env
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	out := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}

	return zerolog.New(out).
		Level(lvl).
		With().
		Timestamp().
		Str("component", component).
		Logger()
}

// Nop returns a logger that discards everything. Used in tests and for
// bindings constructed without a parent logger.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
