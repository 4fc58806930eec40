package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Log output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config contains logging configuration.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string
	// Format is the handler format, "text" or "json".
	Format string
	// FilePath is an optional log file. Empty means stderr only.
	FilePath string
	// MaxSizeMB is the maximum file size in MB before rotation (default: 10).
	MaxSizeMB int
	// MaxFiles is the number of rotated files to keep (default: 5).
	MaxFiles int
	// Output overrides stderr as the console destination. Nil means os.Stderr.
	Output io.Writer
}

// DefaultConfig returns stderr-only text logging at info level.
func DefaultConfig() Config {
	return Config{
		Level:     "info",
		Format:    FormatText,
		MaxSizeMB: 10,
		MaxFiles:  5,
	}
}

// DefaultLogPath returns ~/.corpusidx/logs/corpusidx.log, falling back to
// the temp directory when there is no home directory.
func DefaultLogPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return filepath.Join(home, ".corpusidx", "logs", "corpusidx.log")
}

// Setup builds a logger from cfg and returns it with a cleanup function that
// flushes and closes the log file, if any.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	var out io.Writer = os.Stderr
	if cfg.Output != nil {
		out = cfg.Output
	}

	cleanup := func() {}
	if cfg.FilePath != "" {
		maxSize := cfg.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 10
		}
		maxFiles := cfg.MaxFiles
		if maxFiles <= 0 {
			maxFiles = 5
		}

		writer, err := NewRotatingWriter(cfg.FilePath, maxSize, maxFiles)
		if err != nil {
			return nil, nil, err
		}
		out = io.MultiWriter(writer, out)
		cleanup = func() {
			_ = writer.Sync()
			_ = writer.Close()
		}
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "", FormatText:
		handler = slog.NewTextHandler(out, opts)
	case FormatJSON:
		handler = slog.NewJSONHandler(out, opts)
	default:
		cleanup()
		return nil, nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	return slog.New(handler), cleanup, nil
}

// parseLevel converts string level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LevelFromString converts string level to slog.Level.
func LevelFromString(level string) slog.Level {
	return parseLevel(level)
}

// ValidLevel reports whether level names one of the supported levels.
func ValidLevel(level string) bool {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}
