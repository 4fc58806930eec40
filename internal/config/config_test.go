package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/Aman-CERP/corpusidx/internal/errors"
)

func validConfig() *Config {
	cfg := NewConfig()
	cfg.Input = "/data/corpus"
	cfg.Index = "/data/index"
	return cfg
}

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	cfg := NewConfig()

	require.NotNil(t, cfg)
	assert.Equal(t, "json", cfg.Collection)
	assert.Equal(t, "default", cfg.Generator)
	assert.GreaterOrEqual(t, cfg.Indexing.Threads, 1)
	assert.LessOrEqual(t, cfg.Indexing.Threads, 4)
	assert.Equal(t, 1024, cfg.Indexing.MemoryBufferMB)
	assert.Equal(t, 10000, cfg.Indexing.BatchSize)
	assert.Equal(t, "60s", cfg.Indexing.ProgressInterval)
	assert.Equal(t, "en", cfg.Indexing.Analyzer)
	assert.False(t, cfg.Indexing.Optimize)
	assert.False(t, cfg.Indexing.UniqueDocID)
	assert.False(t, cfg.Sharded())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir(), "")

	require.NoError(t, err)
	assert.Equal(t, NewConfig(), cfg)
}

func TestLoad_ProjectFileMergesOverDefaults(t *testing.T) {
	// Given: a project config overriding some values
	dir := t.TempDir()
	yamlContent := `
collection: tweet
generator: tweet
input: /corpus
indexing:
  threads: 8
  optimize: true
  progress_interval: 5s
shard:
  count: 4
  current: 2
documents:
  store_raw: true
  tweet:
    keep_retweets: true
    max_id: 12345
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(yamlContent), 0o644))

	// When: loading
	cfg, err := Load(dir, "")
	require.NoError(t, err)

	// Then: overridden values win, untouched defaults survive
	assert.Equal(t, "tweet", cfg.Collection)
	assert.Equal(t, "tweet", cfg.Generator)
	assert.Equal(t, "/corpus", cfg.Input)
	assert.Equal(t, 8, cfg.Indexing.Threads)
	assert.True(t, cfg.Indexing.Optimize)
	assert.Equal(t, 10000, cfg.Indexing.BatchSize)
	assert.Equal(t, ShardConfig{Count: 4, Current: 2}, cfg.Shard)
	assert.True(t, cfg.Documents.StoreRaw)
	assert.True(t, cfg.Documents.Tweet.KeepRetweets)
	assert.Equal(t, int64(12345), cfg.Documents.Tweet.MaxID)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)

	every, err := cfg.ProgressEvery()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, every)
}

func TestLoad_ExplicitPathMissing(t *testing.T) {
	_, err := Load(t.TempDir(), filepath.Join(t.TempDir(), "nope.yaml"))

	require.Error(t, err)
	assert.Equal(t, cerrors.ErrCodeConfigNotFound, cerrors.GetCode(err))
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("indexing: [unclosed"), 0o644))

	_, err := Load(t.TempDir(), path)

	require.Error(t, err)
	assert.Equal(t, cerrors.ErrCodeConfigInvalid, cerrors.GetCode(err))
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	// Given: a file and env vars that disagree
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("indexing:\n  threads: 2\n"), 0o644))
	t.Setenv("CORPUSIDX_THREADS", "6")
	t.Setenv("CORPUSIDX_UNIQUE_DOCID", "true")
	t.Setenv("CORPUSIDX_LOG_FORMAT", "json")
	t.Setenv("CORPUSIDX_INDEX", "/tmp/idx")

	// When: loading
	cfg, err := Load(dir, "")
	require.NoError(t, err)

	// Then: env wins
	assert.Equal(t, 6, cfg.Indexing.Threads)
	assert.True(t, cfg.Indexing.UniqueDocID)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "/tmp/idx", cfg.Index)
}

func TestLoad_EnvMalformedInteger(t *testing.T) {
	t.Setenv("CORPUSIDX_BATCH_SIZE", "lots")

	_, err := Load(t.TempDir(), "")

	require.Error(t, err)
	assert.Equal(t, cerrors.ErrCodeConfigInvalid, cerrors.GetCode(err))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		wantCode string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing input", func(c *Config) { c.Input = "" }, cerrors.ErrCodeInvalidInput},
		{"missing index", func(c *Config) { c.Index = "" }, cerrors.ErrCodeInvalidInput},
		{"zero threads", func(c *Config) { c.Indexing.Threads = 0 }, cerrors.ErrCodeConfigInvalid},
		{"zero batch", func(c *Config) { c.Indexing.BatchSize = 0 }, cerrors.ErrCodeConfigInvalid},
		{"zero buffer", func(c *Config) { c.Indexing.MemoryBufferMB = 0 }, cerrors.ErrCodeConfigInvalid},
		{"bad interval", func(c *Config) { c.Indexing.ProgressInterval = "soon" }, cerrors.ErrCodeConfigInvalid},
		{"negative interval", func(c *Config) { c.Indexing.ProgressInterval = "-1s" }, cerrors.ErrCodeConfigInvalid},
		{"bad analyzer", func(c *Config) { c.Indexing.Analyzer = "klingon" }, cerrors.ErrCodeConfigInvalid},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, cerrors.ErrCodeConfigInvalid},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, cerrors.ErrCodeConfigInvalid},
		{"shard in range", func(c *Config) { c.Shard = ShardConfig{Count: 4, Current: 3} }, ""},
		{"shard out of range", func(c *Config) { c.Shard = ShardConfig{Count: 4, Current: 7} }, cerrors.ErrCodeInvalidShard},
		{"shard negative", func(c *Config) { c.Shard = ShardConfig{Count: 4, Current: -1} }, cerrors.ErrCodeInvalidShard},
		{"sharding disabled ignores current", func(c *Config) { c.Shard = ShardConfig{Count: 1, Current: 9} }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, cerrors.GetCode(err))
		})
	}
}

func TestWriteYAML_RoundTripsThroughLoad(t *testing.T) {
	dir := t.TempDir()
	cfg := validConfig()
	cfg.Indexing.Threads = 3
	cfg.Outputs.Ledger = "runs.db"

	require.NoError(t, cfg.WriteYAML(filepath.Join(dir, FileName)))
	loaded, err := Load(dir, "")

	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoggingSetup(t *testing.T) {
	cfg := NewConfig()
	cfg.Logging.File = "/tmp/x.log"

	lc := cfg.LoggingSetup()

	assert.Equal(t, "info", lc.Level)
	assert.Equal(t, "/tmp/x.log", lc.FilePath)
	assert.Equal(t, 10, lc.MaxSizeMB)
}
