package generator

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	cerrors "github.com/Aman-CERP/corpusidx/internal/errors"
)

// SchemaFunc describes the fields a generator emits under opts.
type SchemaFunc func(opts Options) Schema

type entry struct {
	factory Factory
	schema  SchemaFunc
}

var (
	registryMu sync.RWMutex
	registry   = map[string]entry{
		"default": {factory: NewDefault, schema: DefaultSchema},
		"tweet":   {factory: NewTweet, schema: TweetSchema},
	}
)

// Register adds or replaces a generator.
func Register(name string, factory Factory, schema SchemaFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = entry{factory: factory, schema: schema}
}

// Lookup returns the factory registered under name.
func Lookup(name string) (Factory, error) {
	e, err := lookup(name)
	if err != nil {
		return nil, err
	}
	return e.factory, nil
}

// SchemaFor returns the schema the named generator emits under opts.
func SchemaFor(name string, opts Options) (Schema, error) {
	e, err := lookup(name)
	if err != nil {
		return Schema{}, err
	}
	return e.schema(opts), nil
}

func lookup(name string) (entry, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	e, ok := registry[name]
	if !ok {
		return entry{}, cerrors.New(cerrors.ErrCodeUnknownGenerator,
			fmt.Sprintf("unknown generator %q", name), nil).
			WithSuggestion("Available generators: " + strings.Join(namesLocked(), ", "))
	}
	return e, nil
}

// Names lists the registered generators in sorted order.
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
