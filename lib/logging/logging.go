// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/term"

	"github.com/bureau-foundation/calliope/lib/clock"
)

// Verbosity levels accepted by --verbosity.
const (
	VerbosityError   = 0
	VerbosityWarning = 1
	VerbosityInfo    = 2
	VerbosityDebug   = 3

	// DefaultCLIVerbosity applies to argv invocations.
	DefaultCLIVerbosity = VerbosityInfo

	// DefaultInteractiveVerbosity applies to library calls.
	DefaultInteractiveVerbosity = VerbosityWarning
)

// ValidVerbosity reports whether v is a known verbosity level.
func ValidVerbosity(v int) bool {
	return v >= VerbosityError && v <= VerbosityDebug
}

// Level maps a verbosity to a slog level. Out-of-range values clamp.
func Level(verbosity int) slog.Level {
	switch {
	case verbosity <= VerbosityError:
		return slog.LevelError
	case verbosity == VerbosityWarning:
		return slog.LevelWarn
	case verbosity == VerbosityInfo:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// NewConsoleHandler returns a text handler when w is a terminal and a
// JSON handler otherwise.
func NewConsoleHandler(w io.Writer, level slog.Leveler) slog.Handler {
	options := &slog.HandlerOptions{Level: level}
	if file, ok := w.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		return slog.NewTextHandler(w, options)
	}
	return slog.NewJSONHandler(w, options)
}

// Options configures a [Sink].
type Options struct {
	// Name prefixes nothing on disk but is attached to file records as
	// the "program" attribute.
	Name string

	// LogsDir is the root of the per-process log files. Empty disables
	// file logging.
	LogsDir string

	// Stderr receives console output. Defaults to os.Stderr.
	Stderr io.Writer

	// Clock stamps the log file name. Defaults to clock.Real().
	Clock clock.Clock
}

// Sink owns the console writer and the optional log file.
type Sink struct {
	stderr      io.Writer
	path        string
	file        *os.File
	fileHandler slog.Handler
	closeOnce   sync.Once
}

// Open creates the sink, creating the log file if LogsDir is set.
func Open(options Options) (*Sink, error) {
	sink := &Sink{stderr: options.Stderr}
	if sink.stderr == nil {
		sink.stderr = os.Stderr
	}
	if options.LogsDir == "" {
		return sink, nil
	}

	now := options.Clock
	if now == nil {
		now = clock.Real()
	}
	started := now.Now()
	directory := filepath.Join(options.LogsDir, started.Format("2006.01.02"))
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory %s: %w", directory, err)
	}
	sink.path = filepath.Join(directory, started.Format("15.04.05.000000")+".log")
	file, err := os.OpenFile(sink.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	sink.file = file
	handler := slog.Handler(slog.NewJSONHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug}))
	if options.Name != "" {
		handler = handler.WithAttrs([]slog.Attr{slog.String("program", options.Name)})
	}
	sink.fileHandler = handler
	return sink, nil
}

// Path returns the log file path, or "" when file logging is off.
func (s *Sink) Path() string { return s.path }

// Logger returns a logger writing to the console at level and, when a
// log file is open, to the file at debug level.
func (s *Sink) Logger(level slog.Leveler) *slog.Logger {
	console := NewConsoleHandler(s.stderr, level)
	if s.fileHandler == nil {
		return slog.New(console)
	}
	return slog.New(&teeHandler{handlers: []slog.Handler{console, s.fileHandler}})
}

// FileLogger returns a logger that writes only to the log file. It
// discards everything when file logging is off.
func (s *Sink) FileLogger() *slog.Logger {
	if s.fileHandler == nil {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(s.fileHandler)
}

// Close closes the log file. It is safe to call more than once.
func (s *Sink) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.file != nil {
			err = s.file.Close()
		}
	})
	return err
}

// teeHandler fans records out to every handler that accepts their level.
type teeHandler struct {
	handlers []slog.Handler
}

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var first error
	for _, handler := range h.handlers {
		if !handler.Enabled(ctx, record.Level) {
			continue
		}
		if err := handler.Handle(ctx, record.Clone()); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return &teeHandler{handlers: handlers}
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return &teeHandler{handlers: handlers}
}
