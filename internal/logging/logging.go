// Package logging builds the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects the handler and destination.
type Options struct {
	Format     string // "json" or "text".
	Level      slog.Level
	File       string // Empty writes to stderr.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New builds a logger per opts. The returned closer releases the log file
// and is a no-op when logging to stderr.
func New(opts Options) (*slog.Logger, io.Closer) {
	var (
		out    io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
	)
	if opts.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		}
		out, closer = rotating, rotating
	}

	return slog.New(newHandler(out, opts)), closer
}

func newHandler(out io.Writer, opts Options) slog.Handler {
	handlerOpts := &slog.HandlerOptions{Level: opts.Level}
	if opts.Format == "json" {
		return slog.NewJSONHandler(out, handlerOpts)
	}
	return slog.NewTextHandler(out, handlerOpts)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
