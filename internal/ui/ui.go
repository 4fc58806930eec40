// Package ui renders the human-facing side of an indexing run: partition
// progress lines and the final report.
package ui

import (
	"context"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/Aman-CERP/corpusidx/internal/index"
)

// Settings is the banner printed before a run starts.
type Settings struct {
	RunID      string
	Collection string
	Generator  string
	Input      string
	Index      string
	Threads    int
	Shard      string
}

// ErrorEvent is a problem worth showing to the user.
type ErrorEvent struct {
	Partition string
	Err       error
	IsWarn    bool
}

// Renderer displays a run. Implementations are safe for concurrent use;
// PartitionDone is called from worker goroutines.
type Renderer interface {
	index.PartitionObserver

	// Start prints the settings banner.
	Start(ctx context.Context, s Settings) error

	// AddError shows an error or warning.
	AddError(event ErrorEvent)

	// Complete prints the final report.
	Complete(res *index.Result)

	// Stop releases the renderer.
	Stop() error
}

// Config configures the renderer.
type Config struct {
	Output         io.Writer
	ForcePlain     bool
	NoColor        bool
	ShowPartitions bool
}

// ConfigOption is a function that modifies Config.
type ConfigOption func(*Config)

// WithForcePlain forces plain text output.
func WithForcePlain(force bool) ConfigOption {
	return func(c *Config) {
		c.ForcePlain = force
	}
}

// WithNoColor disables color output.
func WithNoColor(noColor bool) ConfigOption {
	return func(c *Config) {
		c.NoColor = noColor
	}
}

// WithPartitions prints a line for every finished partition.
func WithPartitions(show bool) ConfigOption {
	return func(c *Config) {
		c.ShowPartitions = show
	}
}

// NewConfig creates a Config with the given output and options.
func NewConfig(output io.Writer, opts ...ConfigOption) Config {
	cfg := Config{Output: output}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// NewRenderer picks the styled renderer for interactive terminals and the
// plain one for pipes, CI, or when forced.
func NewRenderer(cfg Config) Renderer {
	if cfg.ForcePlain || !IsTTY(cfg.Output) || DetectCI() {
		return NewPlainRenderer(cfg)
	}
	if DetectNoColor() {
		cfg.NoColor = true
	}
	return NewStyledRenderer(cfg)
}

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// DetectNoColor checks if NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// DetectCI checks if running in a CI environment.
func DetectCI() bool {
	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"}
	for _, v := range ciVars {
		if _, exists := os.LookupEnv(v); exists {
			return true
		}
	}
	return false
}
