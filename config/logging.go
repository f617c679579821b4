package config

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger creates a logger writing to w, stderr when nil. format is
// "json" or anything else for a human readable console output.
func NewLogger(level, format string, w io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if w == nil {
		w = os.Stderr
	}
	if format != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// NewSilentLogger creates a logger that discards all output
func NewSilentLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// Logger returns the logger configured by c.
func (c *Config) Logger(w io.Writer) zerolog.Logger {
	return NewLogger(c.Logging.Level, c.Logging.Format, w)
}
