package collection

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	cerrors "github.com/Aman-CERP/corpusidx/internal/errors"
)

// Filter selects the files of a collection. Name checks are case-insensitive
// and suffix checks ignore a trailing .gz or .zst. Hidden files and
// directories are always skipped.
type Filter struct {
	AllowedSuffixes []string
	SkippedSuffixes []string
	AllowedPrefixes []string
	SkippedPrefixes []string
	SkippedDirs     []string
}

// AcceptFile reports whether a file with base name name belongs to the
// collection.
func (f Filter) AcceptFile(name string) bool {
	lower := strings.ToLower(name)
	if strings.HasPrefix(lower, ".") {
		return false
	}
	bare := stripCompression(lower)

	if len(f.AllowedSuffixes) > 0 && !hasAnySuffix(bare, f.AllowedSuffixes) {
		return false
	}
	if hasAnySuffix(bare, f.SkippedSuffixes) {
		return false
	}
	if len(f.AllowedPrefixes) > 0 && !hasAnyPrefix(lower, f.AllowedPrefixes) {
		return false
	}
	return !hasAnyPrefix(lower, f.SkippedPrefixes)
}

// SkipDir reports whether a directory with base name name is pruned.
func (f Filter) SkipDir(name string) bool {
	lower := strings.ToLower(name)
	if strings.HasPrefix(lower, ".") {
		return true
	}
	for _, d := range f.SkippedDirs {
		if lower == strings.ToLower(d) {
			return true
		}
	}
	return false
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, strings.ToLower(suf)) {
			return true
		}
	}
	return false
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// ValidateRoot checks that root is a readable directory.
func ValidateRoot(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return cerrors.New(cerrors.ErrCodeInvalidCollectionPath,
			fmt.Sprintf("collection path %s does not exist", root), err).
			WithDetail("path", root)
	}
	if !info.IsDir() {
		return cerrors.New(cerrors.ErrCodeInvalidCollectionPath,
			fmt.Sprintf("collection path %s is not a directory", root), nil).
			WithDetail("path", root)
	}
	d, err := os.Open(root)
	if err != nil {
		return cerrors.New(cerrors.ErrCodeInvalidCollectionPath,
			fmt.Sprintf("collection path %s is not readable", root), err).
			WithDetail("path", root)
	}
	defer func() { _ = d.Close() }()
	if _, err := d.Readdirnames(1); err != nil && !errors.Is(err, io.EOF) {
		return cerrors.New(cerrors.ErrCodeInvalidCollectionPath,
			fmt.Sprintf("collection path %s is not readable", root), err).
			WithDetail("path", root)
	}
	return nil
}

// Discover walks root and returns the accepted files in lexicographic order.
// Symlinked directories are followed and their files are reported under the
// link's path. Unreadable subtrees are logged and skipped; only a failure at
// root itself is returned.
func Discover(root string, f Filter) ([]string, error) {
	var paths []string
	if err := discover(root, root, f, &paths, map[string]bool{}); err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// discover walks dir, reporting every accepted file as shown joined with its
// path relative to dir.
func discover(dir, shown string, f Filter, paths *[]string, visited map[string]bool) error {
	real, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return err
	}
	if visited[real] {
		return nil
	}
	visited[real] = true

	return filepath.WalkDir(real, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == real {
				return err
			}
			slog.Warn("discover_skipped", slog.String("path", path), slog.String("error", err.Error()))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(real, path)
		if relErr != nil {
			return relErr
		}
		display := filepath.Join(shown, rel)

		if d.IsDir() {
			if path != real && f.SkipDir(d.Name()) {
				return fs.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			info, statErr := os.Stat(path)
			if statErr != nil {
				slog.Warn("discover_broken_link", slog.String("path", display), slog.String("error", statErr.Error()))
				return nil
			}
			if info.IsDir() {
				if f.SkipDir(d.Name()) {
					return nil
				}
				if err := discover(path, display, f, paths, visited); err != nil {
					slog.Warn("discover_skipped", slog.String("path", display), slog.String("error", err.Error()))
				}
				return nil
			}
		}

		if f.AcceptFile(d.Name()) {
			*paths = append(*paths, display)
		}
		return nil
	})
}

// ValidateShard rejects an out-of-range shard index. Sharding is disabled
// when count <= 1, in which case current is ignored.
func ValidateShard(count, current int) error {
	if count > 1 && (current < 0 || current >= count) {
		return cerrors.New(cerrors.ErrCodeInvalidShard,
			fmt.Sprintf("shard current %d out of range for shard count %d", current, count), nil).
			WithDetail("shard_count", strconv.Itoa(count)).
			WithDetail("shard_current", strconv.Itoa(current)).
			WithSuggestion("--shard-current must satisfy 0 <= current < --shard-count")
	}
	return nil
}

// ListPartitions discovers the partitions of c under root and, when sharding
// is enabled, keeps only those assigned to shard current.
func ListPartitions(c Collection, root string, count, current int) ([]string, error) {
	if err := ValidateShard(count, current); err != nil {
		return nil, err
	}
	paths, err := c.SegmentPaths(root)
	if err != nil {
		return nil, cerrors.New(cerrors.ErrCodeInvalidCollectionPath,
			fmt.Sprintf("failed to list %s partitions under %s", c.Name(), root), err)
	}
	return Shard(root, paths, count, current), nil
}
