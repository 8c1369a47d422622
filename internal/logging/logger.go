// Package logging builds the process logger: JSON records with credentials
// redacted, written to stderr and optionally to a size-rotated file.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/hpn/vocab-master/internal/security"
)

// Log file rotation limits.
const (
	MaxFileSizeMB  = 1
	MaxFileBackups = 3
)

// Options describes logger construction parameters.
type Options struct {
	Level string
	// File enables a rotated log file in addition to Output.
	File string
	// Output defaults to os.Stderr.
	Output io.Writer
}

// New constructs the logger. The returned closer releases the log file and
// is never nil.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nopCloser{}, err
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	var closer io.Closer = nopCloser{}
	if path := strings.TrimSpace(opts.File); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nopCloser{}, fmt.Errorf("ensure log directory: %w", err)
		}
		file := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    MaxFileSizeMB,
			MaxBackups: MaxFileBackups,
		}
		out = io.MultiWriter(out, file)
		closer = file
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	})
	return slog.New(security.NewRedactedHandler(handler)), closer, nil
}

// ParseLevel maps a level name onto a slog level. An empty name is info.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log level: unsupported value %q", level)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
