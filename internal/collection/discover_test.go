package collection

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/Aman-CERP/corpusidx/internal/errors"
)

func TestFilter_AcceptFile(t *testing.T) {
	f := Filter{
		AllowedSuffixes: []string{".json", ".jsonl"},
		SkippedPrefixes: []string{"readme"},
	}

	tests := []struct {
		name string
		want bool
	}{
		{"docs.json", true},
		{"docs.JSONL", true},
		{"docs.jsonl.gz", true},
		{"docs.json.zst", true},
		{"docs.txt", false},
		{"docs.gz", false},
		{"README.json", false},
		{".hidden.json", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.AcceptFile(tt.name))
		})
	}
}

func TestFilter_SkipDir(t *testing.T) {
	f := Filter{SkippedDirs: []string{"cr", "dtds"}}

	assert.True(t, f.SkipDir("CR"))
	assert.True(t, f.SkipDir("dtds"))
	assert.True(t, f.SkipDir(".git"))
	assert.False(t, f.SkipDir("ft"))
}

func TestDiscover_SortedAndFiltered(t *testing.T) {
	// Given: a corpus tree with noise
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.json"), "{}")
	writeFile(t, filepath.Join(root, "a.jsonl"), "")
	writeFile(t, filepath.Join(root, "sub", "c.json.gz"), "")
	writeFile(t, filepath.Join(root, "notes.txt"), "")
	writeFile(t, filepath.Join(root, ".cache", "d.json"), "")
	writeFile(t, filepath.Join(root, ".e.json"), "")

	// When: discovering json files
	paths, err := Discover(root, JSON().(*fileCollection).filter)

	// Then: only collection files, in lexicographic order
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.jsonl"),
		filepath.Join(root, "b.json"),
		filepath.Join(root, "sub", "c.json.gz"),
	}, paths)
}

func TestDiscover_FollowsSymlinkedDirectories(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	writeFile(t, filepath.Join(outside, "linked.json"), "{}")
	writeFile(t, filepath.Join(root, "local.json"), "{}")
	if err := os.Symlink(outside, filepath.Join(root, "more")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	paths, err := Discover(root, Filter{AllowedSuffixes: []string{".json"}})

	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "local.json"),
		filepath.Join(root, "more", "linked.json"),
	}, paths)
}

func TestDiscover_TRECSkipsReadmeAndDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "ft", "ft911_1"), "")
	writeFile(t, filepath.Join(root, "cr", "cr93e"), "")
	writeFile(t, filepath.Join(root, "readme.txt"), "")

	paths, err := TREC().SegmentPaths(root)

	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "ft", "ft911_1")}, paths)
}

func TestValidateRoot(t *testing.T) {
	root := t.TempDir()
	file := writeFile(t, filepath.Join(root, "f.json"), "{}")

	assert.NoError(t, ValidateRoot(root))

	err := ValidateRoot(filepath.Join(root, "missing"))
	require.Error(t, err)
	assert.Equal(t, cerrors.ErrCodeInvalidCollectionPath, cerrors.GetCode(err))
	assert.True(t, cerrors.IsFatal(err))

	err = ValidateRoot(file)
	require.Error(t, err)
	assert.Equal(t, cerrors.ErrCodeInvalidCollectionPath, cerrors.GetCode(err))
}

func TestValidateShard(t *testing.T) {
	tests := []struct {
		count, current int
		wantErr        bool
	}{
		{-1, -1, false},
		{0, 5, false},
		{1, 9, false},
		{4, 0, false},
		{4, 3, false},
		{4, 4, true},
		{4, 7, true},
		{4, -1, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_%d", tt.count, tt.current), func(t *testing.T) {
			err := ValidateShard(tt.count, tt.current)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, cerrors.ErrCodeInvalidShard, cerrors.GetCode(err))
		})
	}
}

func TestShard_UnionCoversEveryPathOnce(t *testing.T) {
	// Given: a listing of many partitions
	root := "/corpus"
	var all []string
	for i := 0; i < 200; i++ {
		all = append(all, filepath.Join(root, fmt.Sprintf("part-%03d.json", i)))
	}

	for _, count := range []int{2, 3, 7} {
		t.Run(fmt.Sprintf("count_%d", count), func(t *testing.T) {
			// When: taking every shard
			seen := map[string]int{}
			var union []string
			for current := 0; current < count; current++ {
				for _, p := range Shard(root, all, count, current) {
					seen[p]++
					union = append(union, p)
				}
			}

			// Then: no duplicates, no omissions
			sort.Strings(union)
			assert.Equal(t, all, union)
			for p, n := range seen {
				assert.Equal(t, 1, n, p)
			}
		})
	}
}

func TestShard_IndependentOfMountPoint(t *testing.T) {
	a := ShardOf("/mnt/a", "/mnt/a/x/y.json", 5)
	b := ShardOf("/srv/corpus", "/srv/corpus/x/y.json", 5)

	assert.Equal(t, a, b)
}

func TestShard_DisabledReturnsAll(t *testing.T) {
	paths := []string{"/c/a", "/c/b"}

	assert.Equal(t, paths, Shard("/c", paths, 1, 0))
	assert.Equal(t, paths, Shard("/c", paths, -1, -1))
}

func TestListPartitions_RejectsBadShardBeforeListing(t *testing.T) {
	_, err := ListPartitions(JSON(), "/does/not/matter", 4, 7)

	require.Error(t, err)
	assert.Equal(t, cerrors.ErrCodeInvalidShard, cerrors.GetCode(err))
}

func TestListPartitions_Sharded(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 10; i++ {
		writeFile(t, filepath.Join(root, fmt.Sprintf("%d.json", i)), "{}")
	}

	var total int
	for current := 0; current < 3; current++ {
		paths, err := ListPartitions(JSON(), root, 3, current)
		require.NoError(t, err)
		total += len(paths)
	}

	assert.Equal(t, 10, total)
}

func TestLookup(t *testing.T) {
	c, err := Lookup("trec")
	require.NoError(t, err)
	assert.Equal(t, "trec", c.Name())

	_, err = Lookup("warc")
	require.Error(t, err)
	assert.Equal(t, cerrors.ErrCodeUnknownCollection, cerrors.GetCode(err))

	assert.Subset(t, Names(), []string{"json", "parquet", "trec", "tweet"})
}
