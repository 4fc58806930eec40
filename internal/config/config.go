package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	cerrors "github.com/Aman-CERP/corpusidx/internal/errors"
	"github.com/Aman-CERP/corpusidx/internal/logging"
)

// FileName is the configuration file looked up in the working directory.
const FileName = ".corpusidx.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CORPUSIDX_"

// Config is the complete corpusidx configuration.
type Config struct {
	Version    int             `yaml:"version"`
	Collection string          `yaml:"collection"`
	Generator  string          `yaml:"generator"`
	Input      string          `yaml:"input"`
	Index      string          `yaml:"index"`
	Indexing   IndexingConfig  `yaml:"indexing"`
	Shard      ShardConfig     `yaml:"shard"`
	Documents  DocumentsConfig `yaml:"documents"`
	Logging    LoggingConfig   `yaml:"logging"`
	Outputs    OutputsConfig   `yaml:"outputs"`
}

// IndexingConfig controls the worker pool and the index writer.
type IndexingConfig struct {
	// Threads is the size of the partition worker pool.
	Threads int `yaml:"threads"`

	// MemoryBufferMB bounds the in-memory write buffer before it is flushed.
	MemoryBufferMB int `yaml:"memory_buffer_mb"`

	// BatchSize is how many indexed documents a worker accumulates before
	// publishing them to the shared counter.
	BatchSize int `yaml:"batch_size"`

	// Optimize merges the index down to one segment after commit.
	Optimize bool `yaml:"optimize"`

	// UniqueDocID replaces documents that share an id instead of appending.
	UniqueDocID bool `yaml:"unique_docid"`

	// ProgressInterval is how often progress is logged (e.g. "60s").
	ProgressInterval string `yaml:"progress_interval"`

	// Whitelist is an optional file of document ids to keep.
	Whitelist string `yaml:"whitelist"`

	// Analyzer selects the text analysis chain: "en" (stemmed) or "standard".
	Analyzer string `yaml:"analyzer"`
}

// ShardConfig restricts a run to one slice of the corpus.
type ShardConfig struct {
	Count   int `yaml:"count"`
	Current int `yaml:"current"`
}

// DocumentsConfig controls how records become documents.
type DocumentsConfig struct {
	StoreRaw      bool        `yaml:"store_raw"`
	StoreContents bool        `yaml:"store_contents"`
	Fields        []string    `yaml:"fields"`
	Stopwords     []string    `yaml:"stopwords"`
	KeepStopwords bool        `yaml:"keep_stopwords"`
	Tweet         TweetConfig `yaml:"tweet"`
}

// TweetConfig holds the tweet generator policy.
type TweetConfig struct {
	KeepRetweets bool   `yaml:"keep_retweets"`
	KeepURLs     bool   `yaml:"keep_urls"`
	MaxID        int64  `yaml:"max_id"`
	DeletedIDs   string `yaml:"deleted_ids"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	File      string `yaml:"file"`
	MaxSizeMB int    `yaml:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files"`
}

// OutputsConfig enables the optional run ledger and metrics endpoint.
type OutputsConfig struct {
	Ledger      string `yaml:"ledger"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// NewConfig returns a configuration populated with defaults.
func NewConfig() *Config {
	threads := runtime.NumCPU()
	if threads > 4 {
		threads = 4
	}
	return &Config{
		Version:    1,
		Collection: "json",
		Generator:  "default",
		Indexing: IndexingConfig{
			Threads:          threads,
			MemoryBufferMB:   1024,
			BatchSize:        10000,
			ProgressInterval: "60s",
			Analyzer:         "en",
		},
		Shard: ShardConfig{
			Count:   -1,
			Current: -1,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Format:    logging.FormatText,
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

// Load builds a configuration from defaults, then the YAML file, then
// CORPUSIDX_* environment variables. An explicit path must exist; otherwise
// FileName in dir is used when present. The result is not validated because
// command-line flags are applied on top by the caller.
func Load(dir, explicitPath string) (*Config, error) {
	cfg := NewConfig()

	path := explicitPath
	if path == "" {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	} else if _, err := os.Stat(path); err != nil {
		return nil, cerrors.New(cerrors.ErrCodeConfigNotFound,
			fmt.Sprintf("config file %s not found", path), err)
	}

	if path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return cerrors.ConfigError(fmt.Sprintf("failed to read config file %s", path), err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return cerrors.ConfigError(fmt.Sprintf("failed to parse config file %s", path), err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith copies the non-zero values of other over c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}
	if other.Collection != "" {
		c.Collection = other.Collection
	}
	if other.Generator != "" {
		c.Generator = other.Generator
	}
	if other.Input != "" {
		c.Input = other.Input
	}
	if other.Index != "" {
		c.Index = other.Index
	}

	ix := other.Indexing
	if ix.Threads != 0 {
		c.Indexing.Threads = ix.Threads
	}
	if ix.MemoryBufferMB != 0 {
		c.Indexing.MemoryBufferMB = ix.MemoryBufferMB
	}
	if ix.BatchSize != 0 {
		c.Indexing.BatchSize = ix.BatchSize
	}
	if ix.Optimize {
		c.Indexing.Optimize = true
	}
	if ix.UniqueDocID {
		c.Indexing.UniqueDocID = true
	}
	if ix.ProgressInterval != "" {
		c.Indexing.ProgressInterval = ix.ProgressInterval
	}
	if ix.Whitelist != "" {
		c.Indexing.Whitelist = ix.Whitelist
	}
	if ix.Analyzer != "" {
		c.Indexing.Analyzer = ix.Analyzer
	}

	// A shard block is only meaningful as a pair.
	if other.Shard.Count != 0 {
		c.Shard = other.Shard
	}

	d := other.Documents
	if d.StoreRaw {
		c.Documents.StoreRaw = true
	}
	if d.StoreContents {
		c.Documents.StoreContents = true
	}
	if len(d.Fields) > 0 {
		c.Documents.Fields = d.Fields
	}
	if len(d.Stopwords) > 0 {
		c.Documents.Stopwords = d.Stopwords
	}
	if d.KeepStopwords {
		c.Documents.KeepStopwords = true
	}
	if d.Tweet.KeepRetweets {
		c.Documents.Tweet.KeepRetweets = true
	}
	if d.Tweet.KeepURLs {
		c.Documents.Tweet.KeepURLs = true
	}
	if d.Tweet.MaxID != 0 {
		c.Documents.Tweet.MaxID = d.Tweet.MaxID
	}
	if d.Tweet.DeletedIDs != "" {
		c.Documents.Tweet.DeletedIDs = d.Tweet.DeletedIDs
	}

	l := other.Logging
	if l.Level != "" {
		c.Logging.Level = l.Level
	}
	if l.Format != "" {
		c.Logging.Format = l.Format
	}
	if l.File != "" {
		c.Logging.File = l.File
	}
	if l.MaxSizeMB != 0 {
		c.Logging.MaxSizeMB = l.MaxSizeMB
	}
	if l.MaxFiles != 0 {
		c.Logging.MaxFiles = l.MaxFiles
	}

	if other.Outputs.Ledger != "" {
		c.Outputs.Ledger = other.Outputs.Ledger
	}
	if other.Outputs.MetricsAddr != "" {
		c.Outputs.MetricsAddr = other.Outputs.MetricsAddr
	}
}

// applyEnvOverrides applies CORPUSIDX_* variables. Malformed numbers are
// configuration errors rather than silently ignored.
func (c *Config) applyEnvOverrides() error {
	ints := []struct {
		name string
		dst  *int
	}{
		{"THREADS", &c.Indexing.Threads},
		{"MEMORY_BUFFER_MB", &c.Indexing.MemoryBufferMB},
		{"BATCH_SIZE", &c.Indexing.BatchSize},
		{"SHARD_COUNT", &c.Shard.Count},
		{"SHARD_CURRENT", &c.Shard.Current},
	}
	for _, e := range ints {
		v := os.Getenv(EnvPrefix + e.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return cerrors.ConfigError(fmt.Sprintf("%s%s must be an integer, got %q", EnvPrefix, e.name, v), err)
		}
		*e.dst = n
	}

	bools := []struct {
		name string
		dst  *bool
	}{
		{"OPTIMIZE", &c.Indexing.Optimize},
		{"UNIQUE_DOCID", &c.Indexing.UniqueDocID},
		{"STORE_RAW", &c.Documents.StoreRaw},
		{"STORE_CONTENTS", &c.Documents.StoreContents},
	}
	for _, e := range bools {
		if v := os.Getenv(EnvPrefix + e.name); v != "" {
			*e.dst = strings.EqualFold(v, "true") || v == "1"
		}
	}

	strs := []struct {
		name string
		dst  *string
	}{
		{"COLLECTION", &c.Collection},
		{"GENERATOR", &c.Generator},
		{"INPUT", &c.Input},
		{"INDEX", &c.Index},
		{"PROGRESS_INTERVAL", &c.Indexing.ProgressInterval},
		{"WHITELIST", &c.Indexing.Whitelist},
		{"LOG_LEVEL", &c.Logging.Level},
		{"LOG_FORMAT", &c.Logging.Format},
		{"LOG_FILE", &c.Logging.File},
		{"LEDGER", &c.Outputs.Ledger},
		{"METRICS_ADDR", &c.Outputs.MetricsAddr},
	}
	for _, e := range strs {
		if v := os.Getenv(EnvPrefix + e.name); v != "" {
			*e.dst = v
		}
	}
	return nil
}

// ProgressEvery parses Indexing.ProgressInterval.
func (c *Config) ProgressEvery() (time.Duration, error) {
	d, err := time.ParseDuration(c.Indexing.ProgressInterval)
	if err != nil {
		return 0, cerrors.ConfigError(
			fmt.Sprintf("progress_interval must be a duration, got %q", c.Indexing.ProgressInterval), err)
	}
	if d <= 0 {
		return 0, cerrors.ConfigError(
			fmt.Sprintf("progress_interval must be positive, got %s", d), nil)
	}
	return d, nil
}

// Sharded reports whether the run covers only one shard of the corpus.
func (c *Config) Sharded() bool {
	return c.Shard.Count > 1
}

// Validate checks a configuration that is about to drive an indexing run.
func (c *Config) Validate() error {
	if c.Input == "" {
		return cerrors.New(cerrors.ErrCodeInvalidInput, "input directory is required", nil).
			WithSuggestion("Pass --input or set input in " + FileName)
	}
	if c.Index == "" {
		return cerrors.New(cerrors.ErrCodeInvalidInput, "index directory is required", nil).
			WithSuggestion("Pass --index or set index in " + FileName)
	}
	if c.Collection == "" {
		return cerrors.ConfigError("collection is required", nil)
	}
	if c.Generator == "" {
		return cerrors.ConfigError("generator is required", nil)
	}

	if c.Indexing.Threads < 1 {
		return cerrors.ConfigError(fmt.Sprintf("threads must be at least 1, got %d", c.Indexing.Threads), nil)
	}
	if c.Indexing.MemoryBufferMB < 1 {
		return cerrors.ConfigError(fmt.Sprintf("memory_buffer_mb must be at least 1, got %d", c.Indexing.MemoryBufferMB), nil)
	}
	if c.Indexing.BatchSize < 1 {
		return cerrors.ConfigError(fmt.Sprintf("batch_size must be at least 1, got %d", c.Indexing.BatchSize), nil)
	}
	if _, err := c.ProgressEvery(); err != nil {
		return err
	}
	switch c.Indexing.Analyzer {
	case "en", "standard":
	default:
		return cerrors.ConfigError(fmt.Sprintf("analyzer must be 'en' or 'standard', got %q", c.Indexing.Analyzer), nil)
	}

	if c.Sharded() && (c.Shard.Current < 0 || c.Shard.Current >= c.Shard.Count) {
		return cerrors.New(cerrors.ErrCodeInvalidShard,
			fmt.Sprintf("shard current %d out of range for shard count %d", c.Shard.Current, c.Shard.Count), nil).
			WithDetail("shard_count", strconv.Itoa(c.Shard.Count)).
			WithDetail("shard_current", strconv.Itoa(c.Shard.Current))
	}

	if !logging.ValidLevel(c.Logging.Level) {
		return cerrors.ConfigError(fmt.Sprintf("log level must be 'debug', 'info', 'warn', or 'error', got %q", c.Logging.Level), nil)
	}
	switch strings.ToLower(c.Logging.Format) {
	case logging.FormatText, logging.FormatJSON:
	default:
		return cerrors.ConfigError(fmt.Sprintf("log format must be 'text' or 'json', got %q", c.Logging.Format), nil)
	}

	return nil
}

// LoggingSetup converts the logging block into a logging.Config.
func (c *Config) LoggingSetup() logging.Config {
	return logging.Config{
		Level:     c.Logging.Level,
		Format:    c.Logging.Format,
		FilePath:  c.Logging.File,
		MaxSizeMB: c.Logging.MaxSizeMB,
		MaxFiles:  c.Logging.MaxFiles,
	}
}

// WriteYAML writes the configuration to path.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
