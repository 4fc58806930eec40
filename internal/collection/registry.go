package collection

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	cerrors "github.com/Aman-CERP/corpusidx/internal/errors"
)

// fileCollection is a Collection made of a discovery filter and a segment
// opener.
type fileCollection struct {
	name   string
	filter Filter
	open   func(path string) (Segment, error)
}

func (c *fileCollection) Name() string { return c.name }

func (c *fileCollection) SegmentPaths(root string) ([]string, error) {
	return Discover(root, c.filter)
}

func (c *fileCollection) NewSegment(path string) (Segment, error) {
	return c.open(path)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Collection{}
)

func init() {
	for _, c := range []Collection{JSON(), Tweets(), TREC(), Parquet()} {
		registry[c.Name()] = c
	}
}

// Register adds or replaces a collection under its name.
func Register(c Collection) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[c.Name()] = c
}

// Lookup returns the collection registered under name.
func Lookup(name string) (Collection, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	c, ok := registry[name]
	if !ok {
		return nil, cerrors.New(cerrors.ErrCodeUnknownCollection,
			fmt.Sprintf("unknown collection %q", name), nil).
			WithSuggestion("Available collections: " + strings.Join(namesLocked(), ", "))
	}
	return c, nil
}

// Names lists the registered collections in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return namesLocked()
}

func namesLocked() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
