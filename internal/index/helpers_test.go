package index

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/Aman-CERP/corpusidx/internal/collection"
	"github.com/Aman-CERP/corpusidx/internal/generator"
	"github.com/Aman-CERP/corpusidx/internal/store"
)

func rec(id, contents string) *collection.Record {
	return &collection.Record{ID: id, Contents: contents, Indexable: true}
}

// partitionSpec scripts one fake partition.
type partitionSpec struct {
	records  []*collection.Record
	skipped  int
	failed   bool
	openErr  error
	// blocking makes Next wait for cancellation once records run out.
	blocking bool
}

type fakeCollection struct {
	parts  map[string]partitionSpec
	closed atomic.Int64
}

func (c *fakeCollection) Name() string { return "fake" }

func (c *fakeCollection) SegmentPaths(root string) ([]string, error) {
	paths := make([]string, 0, len(c.parts))
	for name := range c.parts {
		paths = append(paths, filepath.Join(root, name))
	}
	sort.Strings(paths)
	return paths, nil
}

func (c *fakeCollection) NewSegment(path string) (collection.Segment, error) {
	spec, ok := c.parts[filepath.Base(path)]
	if !ok {
		return nil, errors.New("no such partition")
	}
	if spec.openErr != nil {
		return nil, spec.openErr
	}
	return &fakeSegment{spec: spec, closed: &c.closed}, nil
}

type fakeSegment struct {
	spec   partitionSpec
	next   int
	closed *atomic.Int64
}

func (s *fakeSegment) Next(ctx context.Context) (*collection.Record, error) {
	if s.spec.blocking && s.next >= len(s.spec.records) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.next >= len(s.spec.records) {
		return nil, io.EOF
	}
	r := s.spec.records[s.next]
	s.next++
	return r, nil
}

func (s *fakeSegment) Skipped() int { return s.spec.skipped }

func (s *fakeSegment) Err() bool { return s.spec.failed }

func (s *fakeSegment) Close() error {
	s.closed.Add(1)
	return nil
}

// fakeEngine keeps documents in a map keyed the way the bleve engine keys
// them.
type fakeEngine struct {
	mu        sync.Mutex
	docs      map[string]*generator.Document
	seq       int
	commits   int
	merges    int
	closes    int
	commitErr error
	calls     []string
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{docs: map[string]*generator.Document{}}
}

func (e *fakeEngine) factory() EngineFactory {
	return func(generator.Schema) (store.Engine, error) { return e, nil }
}

func (e *fakeEngine) Add(_ context.Context, doc *generator.Document) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closes > 0 {
		return store.ErrClosed
	}
	e.seq++
	e.docs[doc.ID+"#"+strconv.Itoa(e.seq)] = doc
	return nil
}

func (e *fakeEngine) Update(_ context.Context, id string, doc *generator.Document) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closes > 0 {
		return store.ErrClosed
	}
	e.docs[id] = doc
	return nil
}

func (e *fakeEngine) Commit(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, "commit")
	e.commits++
	return e.commitErr
}

func (e *fakeEngine) ForceMerge(context.Context, int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, "merge")
	e.merges++
	return nil
}

func (e *fakeEngine) DocCount() (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return uint64(len(e.docs)), nil
}

func (e *fakeEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, "close")
	e.closes++
	return nil
}

func (e *fakeEngine) snapshotCalls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

// countingGenerator records every id it is asked to generate.
type countingGenerator struct {
	mu   *sync.Mutex
	seen *[]string
	next generator.Generator
}

func (g *countingGenerator) Generate(r *collection.Record) generator.Result {
	g.mu.Lock()
	*g.seen = append(*g.seen, r.ID)
	g.mu.Unlock()
	return g.next.Generate(r)
}

// panicGenerator panics on a chosen id.
type panicGenerator struct {
	on   string
	next generator.Generator
}

func (g *panicGenerator) Generate(r *collection.Record) generator.Result {
	if r.ID == g.on {
		panic("boom on " + r.ID)
	}
	return g.next.Generate(r)
}

// failingPool rejects the n-th submission.
type failingPool struct {
	inner  taskPool
	failOn int
	count  int
}

func (p *failingPool) Submit(task func()) error {
	p.count++
	if p.count == p.failOn {
		return errors.New("pool overloaded")
	}
	return p.inner.Submit(task)
}

func (p *failingPool) Release() { p.inner.Release() }
