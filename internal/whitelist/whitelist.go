// Package whitelist loads identifier sets from newline-delimited files.
package whitelist

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	cerrors "github.com/Aman-CERP/corpusidx/internal/errors"
)

// Set is an immutable set of document identifiers. Matching is exact and
// case-sensitive. The zero Set is empty.
type Set struct {
	ids map[string]struct{}
}

// New builds a set from ids.
func New(ids ...string) Set {
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return Set{ids: m}
}

// Load reads one identifier per line. Surrounding whitespace is trimmed and
// blank lines are ignored.
func Load(path string) (Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return Set{}, cerrors.New(cerrors.ErrCodeWhitelistUnreadable,
			fmt.Sprintf("cannot open id list %s", path), err).
			WithDetail("path", path)
	}
	defer func() { _ = f.Close() }()

	ids := make(map[string]struct{})
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		id := strings.TrimSpace(sc.Text())
		if id != "" {
			ids[id] = struct{}{}
		}
	}
	if err := sc.Err(); err != nil {
		return Set{}, cerrors.New(cerrors.ErrCodeWhitelistUnreadable,
			fmt.Sprintf("cannot read id list %s", path), err).
			WithDetail("path", path)
	}
	return Set{ids: ids}, nil
}

// Len returns the number of identifiers.
func (s Set) Len() int { return len(s.ids) }

// Empty reports whether the set has no identifiers. An empty whitelist
// filters nothing.
func (s Set) Empty() bool { return len(s.ids) == 0 }

// Contains reports whether id is in the set.
func (s Set) Contains(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Allows reports whether a record with id passes the whitelist: always
// true for an empty set, membership otherwise.
func (s Set) Allows(id string) bool {
	return s.Empty() || s.Contains(id)
}

// Map exposes the identifiers as a lookup map. The caller must not modify it.
func (s Set) Map() map[string]struct{} {
	return s.ids
}
