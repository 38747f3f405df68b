// Package logging builds the application's zerolog logger. The terminal
// belongs to the TUI, so logs go to a file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Settings selects the log destination and level.
type Settings struct {
	File  string
	Level string
}

// Logger wraps the zerolog logger and the file it writes to.
type Logger struct {
	zerolog.Logger
	closer io.Closer
}

// New opens settings.File for appending and returns a logger writing to it.
// An empty file discards all output.
func New(settings Settings) (*Logger, error) {
	level := zerolog.InfoLevel
	if settings.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(settings.Level))
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", settings.Level, err)
		}
		level = parsed
	}

	if settings.File == "" {
		return &Logger{Logger: zerolog.Nop()}, nil
	}
	if dir := filepath.Dir(settings.File); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	f, err := os.OpenFile(settings.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("could not open log file: %w", err)
	}
	return &Logger{Logger: NewWithWriter(f, level), closer: f}, nil
}

// NewWithWriter returns a timestamped logger writing JSON lines to w.
func NewWithWriter(w io.Writer, level zerolog.Level) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Console returns a human readable logger for one-shot commands.
func Console(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
