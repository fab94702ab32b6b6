// Package logging builds the process logger: structured JSON into a
// size-rotated file when one is configured, human-readable text on stderr
// otherwise.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// DefaultLevel keeps the debugger quiet on stderr unless asked.
const DefaultLevel = slog.LevelWarn

// Options describes where and how much to log.
type Options struct {
	// File is the log file path. Empty means log to the fallback writer.
	File string
	// Level is one of debug, info, warn or error. Empty means DefaultLevel.
	Level string
	// MaxSizeMB is the rollover threshold for File.
	MaxSizeMB int
	// MaxFiles is the number of rolled-over backups kept for File.
	MaxFiles int
}

// ParseLevel maps a level name to its slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DefaultLevel, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return DefaultLevel, fmt.Errorf("invalid log level: %s", s)
	}
}

// New returns a logger per opts. The returned closer releases the log file,
// if one was opened, and is never nil.
func New(fallback io.Writer, opts Options) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	if opts.File == "" {
		if fallback == nil {
			fallback = io.Discard
		}
		return slog.New(slog.NewTextHandler(fallback, handlerOpts)), nopCloser{}, nil
	}

	f, err := OpenRotating(opts.File, opts.MaxSizeMB, opts.MaxFiles)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file %s: %w", opts.File, err)
	}
	return slog.New(slog.NewJSONHandler(f, handlerOpts)), f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
