// Package logging builds the process logger: the log/slog API on top of a
// charmbracelet/log handler.
package logging

import (
	"io"
	"log/slog"
	"strings"

	charmlog "github.com/charmbracelet/log"
)

// Options selects the output, level and formatter.
type Options struct {
	Output io.Writer
	Level  string
	JSON   bool
}

// New returns a slog.Logger writing through charmbracelet/log. Unknown
// levels fall back to info.
func New(opts Options) *slog.Logger {
	handler := charmlog.NewWithOptions(opts.Output, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Level:           ParseLevel(opts.Level),
	})
	if opts.JSON {
		handler.SetFormatter(charmlog.JSONFormatter)
	} else {
		handler.SetFormatter(charmlog.TextFormatter)
	}
	return slog.New(handler)
}

// ParseLevel maps a config level name to a charmbracelet/log level.
func ParseLevel(level string) charmlog.Level {
	l, err := charmlog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return charmlog.InfoLevel
	}
	return l
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
