package cmd

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/Aman-CERP/corpusidx/internal/errors"
	"github.com/Aman-CERP/corpusidx/internal/ledger"
)

// writeCorpus lays out a two-partition JSON lines corpus: four indexable
// records, one with empty contents, and one malformed line.
func writeCorpus(t *testing.T) string {
	t.Helper()

	root := filepath.Join(t.TempDir(), "corpus")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "b"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.jsonl"), []byte(
		`{"id":"d1","contents":"the quick brown fox"}`+"\n"+
			`{"id":"d2","contents":"jumps over the lazy dog"}`+"\n"+
			`not json`+"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b", "c.jsonl"), []byte(
		`{"id":"d3","contents":"indexing corpora in parallel"}`+"\n"+
			`{"id":"d4","contents":"counting every record"}`+"\n"+
			`{"id":"d5","contents":""}`+"\n"), 0o644))
	return root
}

func TestIndexCmd_EndToEnd(t *testing.T) {
	// Given: a small corpus and a ledger path
	root := writeCorpus(t)
	dir := t.TempDir()
	indexDir := filepath.Join(dir, "idx")
	ledgerPath := filepath.Join(dir, "runs.db")

	// When: indexing it
	output, err := execute(t, "index",
		"--collection", "json",
		"--input", root,
		"--index", indexDir,
		"--threads", "2",
		"--memory-buffer", "16",
		"--ledger", ledgerPath,
		"--plain", "-q")

	// Then: the report shows every outcome
	require.NoError(t, err, output)
	assert.Contains(t, output, "Indexing complete")
	assert.Regexp(t, `indexed:\s+4`, output)
	assert.Regexp(t, `empty:\s+1`, output)
	assert.Regexp(t, `skipped:\s+1`, output)
	assert.Regexp(t, `documents:\s+4`, output)
	assert.Regexp(t, `partitions:\s+2/2`, output)
	assert.DirExists(t, indexDir)

	// And: the ledger holds the run and both partitions
	m := regexp.MustCompile(`run:\s+(\S+)`).FindStringSubmatch(output)
	require.Len(t, m, 2, output)

	led, err := ledger.Open(ledgerPath, nil)
	require.NoError(t, err)
	defer func() { _ = led.Close() }()

	run, err := led.Run(context.Background(), m[1])
	require.NoError(t, err)
	assert.Equal(t, int64(4), run.Counters.Indexed)
	assert.Equal(t, uint64(4), run.DocCount)
	assert.Equal(t, 2, run.Completed)
	assert.False(t, run.FinishedAt.IsZero())

	parts, err := led.Partitions(context.Background(), m[1])
	require.NoError(t, err)
	assert.Len(t, parts, 2)
}

func TestIndexCmd_ConfigFileAndFlags(t *testing.T) {
	// Given: a config file naming the corpus and a flag overriding the index
	root := writeCorpus(t)
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "corpusidx.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(
		"collection: json\ngenerator: default\ninput: "+root+"\nindex: "+filepath.Join(dir, "unused")+"\n"), 0o644))
	indexDir := filepath.Join(dir, "flagged")

	// When: indexing with --config and --index
	output, err := execute(t, "--config", cfgPath, "index", "--index", indexDir, "--plain", "-q", "--unique-docid", "--skip-preflight")

	// Then: the flag wins and the config supplies the rest
	require.NoError(t, err, output)
	assert.DirExists(t, indexDir)
	assert.NoDirExists(t, filepath.Join(dir, "unused"))
	assert.Regexp(t, `indexed:\s+4`, output)
}

func TestIndexCmd_StartupErrors(t *testing.T) {
	root := writeCorpus(t)

	tests := []struct {
		name string
		args []string
		code string
	}{
		{
			name: "shard out of range",
			args: []string{"--shard-count", "4", "--shard-current", "7"},
			code: cerrors.ErrCodeInvalidShard,
		},
		{
			name: "unknown collection",
			args: []string{"--collection", "warc"},
			code: cerrors.ErrCodeUnknownCollection,
		},
		{
			name: "unknown generator",
			args: []string{"--generator", "nope"},
			code: cerrors.ErrCodeUnknownGenerator,
		},
		{
			name: "missing whitelist",
			args: []string{"--whitelist", filepath.Join(root, "missing.txt")},
			code: cerrors.ErrCodeWhitelistUnreadable,
		},
		{
			name: "zero threads",
			args: []string{"--threads", "0"},
			code: cerrors.ErrCodeConfigInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: an otherwise valid invocation
			indexDir := filepath.Join(t.TempDir(), "idx")
			args := append([]string{"index", "--input", root, "--index", indexDir, "--plain", "-q", "--skip-preflight"}, tt.args...)

			// When: executing
			_, err := execute(t, args...)

			// Then: the coded error is returned
			require.Error(t, err)
			assert.Equal(t, tt.code, cerrors.GetCode(err))
		})
	}
}

func TestIndexCmd_MissingConfigFile(t *testing.T) {
	// Given: an explicit config path that does not exist

	// When: indexing
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"), "index")

	// Then: ERR_101 is returned
	require.Error(t, err)
	assert.Equal(t, cerrors.ErrCodeConfigNotFound, cerrors.GetCode(err))
}

func TestIndexCmd_PreflightRefusesUnwritableIndex(t *testing.T) {
	// Given: an index path nested under a regular file
	root := writeCorpus(t)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	// When: indexing
	_, err := execute(t, "index", "--input", root, "--index", filepath.Join(blocker, "idx"), "--plain", "-q")

	// Then: preflight stops the run before any index work
	require.Error(t, err)
	assert.Equal(t, cerrors.ErrCodeFilePermission, cerrors.GetCode(err))
}

func TestIndexCmd_WritesHeapProfile(t *testing.T) {
	// Given: a corpus and a heap profile path
	root := writeCorpus(t)
	dir := t.TempDir()
	heap := filepath.Join(dir, "heap.pprof")

	// When: indexing with --mem-profile
	output, err := execute(t, "index", "--input", root, "--index", filepath.Join(dir, "idx"),
		"--plain", "-q", "--skip-preflight", "--mem-profile", heap)

	// Then: the profile is written after the run
	require.NoError(t, err, output)
	info, err := os.Stat(heap)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
