package index

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/corpusidx/internal/collection"
	cerrors "github.com/Aman-CERP/corpusidx/internal/errors"
	"github.com/Aman-CERP/corpusidx/internal/generator"
	"github.com/Aman-CERP/corpusidx/internal/store"
	"github.com/Aman-CERP/corpusidx/internal/whitelist"
)

// DefaultProgressInterval is how often a running index logs progress.
const DefaultProgressInterval = 60 * time.Second

// DefaultDrainTimeout bounds how long an interrupted run waits for workers
// to stop before committing.
const DefaultDrainTimeout = 30 * time.Second

// Options configures one indexing run.
type Options struct {
	// Root is the corpus directory.
	Root string

	// Collection and Generator name registry entries. They are ignored
	// when WithCollection or WithGenerator supply implementations.
	Collection string
	Generator  string

	GeneratorOptions generator.Options

	// Threads is the worker pool size. Zero means runtime.NumCPU().
	Threads int

	// BatchSize is how often workers publish their indexed count.
	BatchSize int

	// UniqueDocID replaces documents that share an id instead of
	// appending them.
	UniqueDocID bool

	// Optimize force-merges the index to one segment after commit.
	Optimize bool

	// ShardCount > 1 enables sharding; only partitions hashed to
	// ShardCurrent are indexed.
	ShardCount   int
	ShardCurrent int

	// Whitelist restricts indexing to the listed ids. WhitelistPath is
	// loaded when Whitelist is empty.
	Whitelist     whitelist.Set
	WhitelistPath string

	ProgressInterval time.Duration
}

// EngineFactory creates the shared engine for a run from the generator's
// schema. The engine must start empty.
type EngineFactory func(schema generator.Schema) (store.Engine, error)

// Result summarises a finished run.
type Result struct {
	RunID    string
	Counters Snapshot

	// DocCount is the engine's own count after the last write.
	DocCount uint64

	Partitions int
	Completed  int
	Elapsed    time.Duration

	// Interrupted is set when the run was cancelled. The index holds
	// whatever was committed on the way out.
	Interrupted bool

	// CountMismatch is set when DocCount differs from Counters.Indexed.
	CountMismatch bool

	FailedPartitions []string
}

// taskPool is the part of *ants.Pool the indexer needs.
type taskPool interface {
	Submit(task func()) error
	Release()
}

func newAntsPool(size int) (taskPool, error) {
	p, err := ants.NewPool(size)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Indexer runs the pipeline for one corpus.
type Indexer struct {
	opts      Options
	newEngine EngineFactory

	coll    collection.Collection
	factory generator.Factory
	schema  *generator.Schema

	counters  *Counters
	observers []PartitionObserver
	logger    *slog.Logger
	runID     string
	newPool   func(size int) (taskPool, error)

	drainTimeout time.Duration
}

// Option configures an Indexer.
type Option func(*Indexer) error

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(ix *Indexer) error {
		if logger != nil {
			ix.logger = logger
		}
		return nil
	}
}

// WithCounters shares externally owned counters, e.g. ones already exported
// as metrics.
func WithCounters(c *Counters) Option {
	return func(ix *Indexer) error {
		if c == nil {
			return fmt.Errorf("counters must not be nil")
		}
		ix.counters = c
		return nil
	}
}

// WithObserver adds a partition observer. It may be given more than once.
func WithObserver(o PartitionObserver) Option {
	return func(ix *Indexer) error {
		if o != nil {
			ix.observers = append(ix.observers, o)
		}
		return nil
	}
}

// WithRunID fixes the run id instead of generating one.
func WithRunID(id string) Option {
	return func(ix *Indexer) error {
		ix.runID = id
		return nil
	}
}

// WithCollection supplies the collection directly.
func WithCollection(c collection.Collection) Option {
	return func(ix *Indexer) error {
		ix.coll = c
		return nil
	}
}

// WithGenerator supplies the generator factory and its schema directly.
func WithGenerator(factory generator.Factory, schema generator.Schema) Option {
	return func(ix *Indexer) error {
		if factory == nil {
			return fmt.Errorf("generator factory must not be nil")
		}
		ix.factory = factory
		ix.schema = &schema
		return nil
	}
}

func withPool(newPool func(size int) (taskPool, error)) Option {
	return func(ix *Indexer) error {
		ix.newPool = newPool
		return nil
	}
}

func withDrainTimeout(d time.Duration) Option {
	return func(ix *Indexer) error {
		ix.drainTimeout = d
		return nil
	}
}

// NewIndexer creates an indexer. Nothing is touched on disk until Run.
func NewIndexer(opts Options, newEngine EngineFactory, options ...Option) (*Indexer, error) {
	if newEngine == nil {
		return nil, fmt.Errorf("engine factory is required")
	}
	if opts.Threads <= 0 {
		opts.Threads = runtime.NumCPU()
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = DefaultProgressInterval
	}

	ix := &Indexer{
		opts:      opts,
		newEngine: newEngine,
		counters:  NewCounters(),
		logger:    slog.Default(),
		newPool:   newAntsPool,

		drainTimeout: DefaultDrainTimeout,
	}
	for _, o := range options {
		if err := o(ix); err != nil {
			return nil, err
		}
	}
	if ix.runID == "" {
		ix.runID = uuid.NewString()
	}
	ix.logger = ix.logger.With(slog.String("run_id", ix.runID))
	return ix, nil
}

// Counters returns the live counters of the run.
func (ix *Indexer) Counters() *Counters {
	return ix.counters
}

// RunID returns the id attached to every log line of the run.
func (ix *Indexer) RunID() string {
	return ix.runID
}

// Run indexes every partition and returns the final tallies. Startup
// problems and a short task count are returned as errors. Cancelling ctx
// stops the run early; that is reported through Result.Interrupted, not as
// an error.
func (ix *Indexer) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	opts := ix.opts

	if err := collection.ValidateRoot(opts.Root); err != nil {
		return nil, err
	}
	if err := collection.ValidateShard(opts.ShardCount, opts.ShardCurrent); err != nil {
		return nil, err
	}
	if err := ix.resolve(); err != nil {
		return nil, err
	}
	wl, err := ix.loadWhitelist()
	if err != nil {
		return nil, err
	}

	ix.logSettings(wl)

	paths, err := collection.ListPartitions(ix.coll, opts.Root, opts.ShardCount, opts.ShardCurrent)
	if err != nil {
		return nil, err
	}
	ix.logger.Info("index_started",
		slog.String("collection", ix.coll.Name()),
		slog.Int("partitions", len(paths)))

	engine, err := ix.newEngine(*ix.schema)
	if err != nil {
		if _, ok := cerrors.As(err); ok {
			return nil, err
		}
		return nil, cerrors.New(cerrors.ErrCodeIndexFailed, "failed to create index engine", err)
	}

	result := &Result{RunID: ix.runID, Partitions: len(paths)}
	if len(paths) == 0 {
		ix.logger.Warn("index_no_partitions", slog.String("root", opts.Root))
		return ix.finish(ctx, engine, result, start), nil
	}

	pool, err := ix.newPool(opts.Threads)
	if err != nil {
		ix.closeEngine(engine)
		return nil, cerrors.InternalError("failed to create worker pool", err)
	}

	var (
		completed atomic.Int64
		failedMu  sync.Mutex
		failed    []string
		pending   sync.WaitGroup
	)
	pending.Add(len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for i, path := range paths {
			if gctx.Err() != nil {
				pending.Add(-(len(paths) - i))
				return gctx.Err()
			}
			task := ix.newTask(path, engine, wl)
			err := pool.Submit(func() {
				defer pending.Done()
				report := task.run(ctx)
				completed.Add(1)
				if report.Failed {
					failedMu.Lock()
					failed = append(failed, report.Path)
					failedMu.Unlock()
				}
				for _, o := range ix.observers {
					o.PartitionDone(report)
				}
			})
			if err != nil {
				pending.Done()
				if gctx.Err() != nil {
					ix.logger.Debug("partition_not_started", slog.String("partition", path))
					continue
				}
				ix.logger.Error("partition_submit_failed",
					slog.String("partition", path),
					slog.String("error", err.Error()))
			}
		}
		return nil
	})

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		pending.Wait()
		close(done)
	}()

	ticker := time.NewTicker(opts.ProgressInterval)
	defer ticker.Stop()

poll:
	for {
		select {
		case <-done:
			break poll
		case <-ctx.Done():
			break poll
		case <-ticker.C:
			ix.logProgress(len(paths), completed.Load())
		}
	}
	pool.Release()
	if ctx.Err() != nil {
		ix.awaitWorkers(done)
	}

	result.Completed = int(completed.Load())
	failedMu.Lock()
	result.FailedPartitions = append([]string(nil), failed...)
	failedMu.Unlock()

	if ctx.Err() != nil {
		ix.logger.Warn("index_interrupted",
			slog.Int("completed", result.Completed),
			slog.Int("partitions", len(paths)),
			slog.Int64("indexed", ix.counters.Indexed()))
		result.Interrupted = true
		return ix.finish(context.WithoutCancel(ctx), engine, result, start), nil
	}

	if result.Completed != len(paths) {
		ix.closeEngine(engine)
		return nil, cerrors.New(cerrors.ErrCodeTaskCountMismatch,
			fmt.Sprintf("completed %d of %d partition tasks", result.Completed, len(paths)), nil).
			WithDetail("completed", strconv.Itoa(result.Completed)).
			WithDetail("partitions", strconv.Itoa(len(paths)))
	}

	return ix.finish(ctx, engine, result, start), nil
}

// awaitWorkers waits for cancelled workers to return so their pending
// indexed counts are flushed before the final snapshot. Workers stop at the
// next record, so the wait is short; drainTimeout bounds a stuck segment.
func (ix *Indexer) awaitWorkers(done <-chan struct{}) {
	timer := time.NewTimer(ix.drainTimeout)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		ix.logger.Warn("index_drain_timeout",
			slog.Duration("waited", ix.drainTimeout),
			slog.String("note", "indexed count may lag the engine"))
	}
}

// resolve fills in the collection, generator, and schema from the
// registries unless options supplied them.
func (ix *Indexer) resolve() error {
	if ix.coll == nil {
		c, err := collection.Lookup(ix.opts.Collection)
		if err != nil {
			return err
		}
		ix.coll = c
	}
	if ix.factory == nil {
		name := ix.opts.Generator
		if name == "" {
			name = "default"
		}
		f, err := generator.Lookup(name)
		if err != nil {
			return err
		}
		schema, err := generator.SchemaFor(name, ix.opts.GeneratorOptions)
		if err != nil {
			return err
		}
		ix.factory = f
		ix.schema = &schema
	}
	return nil
}

func (ix *Indexer) loadWhitelist() (whitelist.Set, error) {
	if !ix.opts.Whitelist.Empty() || ix.opts.WhitelistPath == "" {
		return ix.opts.Whitelist, nil
	}
	wl, err := whitelist.Load(ix.opts.WhitelistPath)
	if err != nil {
		return whitelist.Set{}, err
	}
	ix.logger.Info("whitelist_loaded",
		slog.String("path", ix.opts.WhitelistPath),
		slog.Int("ids", wl.Len()))
	return wl, nil
}

func (ix *Indexer) newTask(path string, engine store.Engine, wl whitelist.Set) *partitionTask {
	return &partitionTask{
		path:        path,
		runID:       ix.runID,
		coll:        ix.coll,
		factory:     ix.factory,
		genOpts:     ix.opts.GeneratorOptions,
		engine:      engine,
		counters:    ix.counters,
		whitelist:   wl,
		uniqueDocID: ix.opts.UniqueDocID,
		batchSize:   ix.opts.BatchSize,
		logger:      ix.logger,
	}
}

// finish commits, optionally merges, and closes the engine. Failures here
// are logged; the counters already describe what was written.
func (ix *Indexer) finish(ctx context.Context, engine store.Engine, result *Result, start time.Time) *Result {
	result.Counters = ix.counters.Snapshot()

	if n, err := engine.DocCount(); err != nil {
		ix.logger.Error("index_doc_count_failed", slog.String("error", err.Error()))
	} else {
		result.DocCount = n
		if int64(n) != result.Counters.Indexed && !result.Interrupted {
			result.CountMismatch = true
			ix.logger.Warn("index_count_mismatch",
				slog.Uint64("doc_count", n),
				slog.Int64("indexed", result.Counters.Indexed))
		}
	}

	if err := engine.Commit(ctx); err != nil {
		ix.logger.Error("index_commit_failed", slog.String("error", err.Error()))
	} else if ix.opts.Optimize && !result.Interrupted {
		mergeStart := time.Now()
		if err := engine.ForceMerge(ctx, 1); err != nil {
			ix.logger.Error("index_optimize_failed", slog.String("error", err.Error()))
		} else {
			ix.logger.Info("index_optimized", slog.Duration("duration", time.Since(mergeStart)))
		}
	}

	ix.closeEngine(engine)

	result.Elapsed = time.Since(start)
	c := result.Counters
	ix.logger.Info("index_complete",
		slog.Int64("indexed", c.Indexed),
		slog.Int64("unindexable", c.Unindexable),
		slog.Int64("empty", c.Empty),
		slog.Int64("skipped", c.Skipped),
		slog.Int64("errors", c.Errors),
		slog.Uint64("doc_count", result.DocCount),
		slog.String("elapsed", FormatElapsed(result.Elapsed)),
		slog.Bool("interrupted", result.Interrupted))
	return result
}

func (ix *Indexer) closeEngine(engine store.Engine) {
	if err := engine.Close(); err != nil {
		ix.logger.Error("index_close_failed", slog.String("error", err.Error()))
	}
}

func (ix *Indexer) logSettings(wl whitelist.Set) {
	o := ix.opts
	ix.logger.Info("index_settings",
		slog.String("root", o.Root),
		slog.String("collection", ix.coll.Name()),
		slog.String("generator", o.Generator),
		slog.Int("threads", o.Threads),
		slog.Int("batch_size", o.BatchSize),
		slog.Bool("unique_docid", o.UniqueDocID),
		slog.Bool("optimize", o.Optimize),
		slog.Int("shard_count", o.ShardCount),
		slog.Int("shard_current", o.ShardCurrent),
		slog.Int("whitelist_ids", wl.Len()),
		slog.Bool("store_raw", o.GeneratorOptions.StoreRaw),
		slog.Bool("store_contents", o.GeneratorOptions.StoreContents))
}

func (ix *Indexer) logProgress(total int, completed int64) {
	indexed := ix.counters.Indexed()
	if total == 1 {
		ix.logger.Info("index_progress", slog.Int64("indexed", indexed))
		return
	}
	pct := float64(completed) * 100 / float64(total)
	ix.logger.Info("index_progress",
		slog.String("partitions_done", fmt.Sprintf("%.2f%%", pct)),
		slog.Int64("completed", completed),
		slog.Int("partitions", total),
		slog.Int64("indexed", indexed))
}

// FormatElapsed renders d as HH:MM:SS. Hours are not capped at 24.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	s := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s/60)%60, s%60)
}
