package logging

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ErrInvalidLevel is returned by ParseLevel for unknown level names.
var ErrInvalidLevel = errors.New("invalid log level")

// ParseLevel normalizes a log level string into slog.Level.
// An empty string means info; unknown values return info with ErrInvalidLevel.
func ParseLevel(s string) (slog.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error", "err":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, ErrInvalidLevel
	}
}

// Options controls handler format and destination.
// Writer defaults to stderr.
type Options struct {
	Level  string
	JSON   bool
	Writer io.Writer
}

// New builds a SlogLogger from opts.
func New(opts Options) (*SlogLogger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	var w io.Writer = os.Stderr
	if opts.Writer != nil {
		w = opts.Writer
	}

	ho := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if opts.JSON {
		h = slog.NewJSONHandler(w, ho)
	} else {
		h = slog.NewTextHandler(w, ho)
	}
	return NewSlogLogger(slog.New(h)), nil
}
