// Package logging builds the leveled logger shared by every skypack component.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

// TimeFormat matches the run log layout: 15:04:05.000.
const TimeFormat = "15:04:05.000"

type Options struct {
	// Verbose enables debug level messages.
	Verbose bool
	// FilePath additionally writes every message to this file when set.
	FilePath string
	// Console is the terminal writer, os.Stderr when nil.
	Console io.Writer
}

// New returns a logger and a close func for the log file (a no-op without one).
func New(opts Options) (*log.Logger, func() error, error) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	var out io.Writer = console
	closer := func() error { return nil }

	if opts.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(opts.FilePath), 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = io.MultiWriter(console, f)
		closer = f.Close
	}

	level := log.InfoLevel
	if opts.Verbose {
		level = log.DebugLevel
	}

	logger := log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		TimeFormat:      TimeFormat,
		Level:           level,
	})

	return logger, closer, nil
}

// Discard returns a logger that drops everything, for tests and quiet callers.
func Discard() *log.Logger {
	return log.New(io.Discard)
}
