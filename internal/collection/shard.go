package collection

import (
	"path/filepath"

	"github.com/cespare/xxhash/v2"
)

// ShardOf returns the shard a partition belongs to. The assignment hashes
// the slash-separated path relative to root, so it does not depend on where
// the corpus is mounted or on listing order.
func ShardOf(root, path string, count int) int {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	return int(xxhash.Sum64String(filepath.ToSlash(rel)) % uint64(count))
}

// Shard keeps the paths assigned to shard current out of count. With
// count <= 1 every path is returned. Across all values of current the
// results are disjoint and together cover paths exactly.
func Shard(root string, paths []string, count, current int) []string {
	if count <= 1 {
		return paths
	}
	out := make([]string, 0, len(paths)/count+1)
	for _, p := range paths {
		if ShardOf(root, p, count) == current {
			out = append(out, p)
		}
	}
	return out
}
