// Package logging builds the application logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Options selects where and how much to log.
type Options struct {
	// File receives JSON log lines. The TUI owns the terminal, so
	// interactive commands always log to a file.
	File string
	// Console writes human-readable lines to Out instead of JSON.
	Console bool
	Out     io.Writer
	Level   string
}

// New returns a logger and a closer for any file it opened.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}

	var w io.Writer = io.Discard
	var closer io.Closer = nopCloser{}

	switch {
	case opts.File != "":
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return zerolog.Nop(), closer, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), closer, fmt.Errorf("open log file: %w", err)
		}
		w, closer = f, f
	case opts.Out != nil:
		w = opts.Out
	}

	if opts.Console && opts.File == "" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger(), closer, nil
}

// DefaultFile returns the log path next to the database.
func DefaultFile(dbPath string) string {
	return filepath.Join(filepath.Dir(dbPath), "vidquiz.log")
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
