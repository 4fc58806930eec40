package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/index/scorch/mergeplan"
	"github.com/cespare/xxhash/v2"

	cerrors "github.com/Aman-CERP/corpusidx/internal/errors"
	"github.com/Aman-CERP/corpusidx/internal/generator"
)

const (
	// maxBatchDocs caps the documents buffered per batch slot.
	maxBatchDocs = 1000

	// DefaultMemoryBufferMB is used when Config.MemoryBufferMB is unset.
	DefaultMemoryBufferMB = 1024
)

// Config configures a BleveEngine.
type Config struct {
	// Path is the index directory. Empty builds an in-memory index.
	Path string

	// MemoryBufferMB bounds the write buffer across all batch slots.
	MemoryBufferMB int

	// Analyzer selects the text chain: "en" (default) or "standard".
	Analyzer string

	// Stopwords replace the default English stop list.
	Stopwords []string

	// KeepStopwords disables stop-word removal.
	KeepStopwords bool

	// StoreTermVectors records term positions for text fields.
	StoreTermVectors bool

	// Slots is the number of batch slots. Zero means GOMAXPROCS.
	Slots int

	Logger *slog.Logger
}

// batchSlot buffers writes for the keys that hash to it. Flushing under
// mu keeps writes to one key in submission order.
type batchSlot struct {
	mu    sync.Mutex
	batch *bleve.Batch
	bytes int
}

// BleveEngine is an Engine over a bleve index.
type BleveEngine struct {
	index  bleve.Index
	lock   *DirLock
	logger *slog.Logger

	slots     []*batchSlot
	slotBytes int
	seq       atomic.Uint64

	// life is held shared by writers and exclusively by Close.
	life   sync.RWMutex
	closed bool
}

// Open creates a fresh index, replacing whatever is at cfg.Path.
func Open(cfg Config, schema generator.Schema) (*BleveEngine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if err := ValidateAnalyzer(cfg.Analyzer); err != nil {
		return nil, err
	}

	im, err := buildMapping(schema, cfg)
	if err != nil {
		return nil, cerrors.InternalError(fmt.Sprintf("failed to build index mapping: %v", err), err)
	}

	var (
		idx  bleve.Index
		lock *DirLock
	)
	if cfg.Path == "" {
		idx, err = bleve.NewMemOnly(im)
		if err != nil {
			return nil, cerrors.InternalError("failed to create in-memory index", err)
		}
	} else {
		lock = NewDirLock(cfg.Path)
		acquired, err := lock.TryLock()
		if err != nil {
			return nil, cerrors.IOError("failed to lock index directory", err).
				WithDetail("lock", lock.Path())
		}
		if !acquired {
			return nil, cerrors.New(cerrors.ErrCodeIndexLocked, "index directory is in use by another process", nil).
				WithDetail("path", cfg.Path).
				WithSuggestion("Wait for the other run to finish or choose a different --index path")
		}

		if err := os.RemoveAll(cfg.Path); err != nil {
			_ = lock.Unlock()
			return nil, cerrors.IOError("failed to clear index directory", err).WithDetail("path", cfg.Path)
		}
		idx, err = bleve.New(cfg.Path, im)
		if err != nil {
			_ = lock.Unlock()
			return nil, cerrors.IOError("failed to create index", err).WithDetail("path", cfg.Path)
		}
	}

	n := cfg.Slots
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	budget := cfg.MemoryBufferMB
	if budget <= 0 {
		budget = DefaultMemoryBufferMB
	}

	e := &BleveEngine{
		index:     idx,
		lock:      lock,
		logger:    logger,
		slots:     make([]*batchSlot, n),
		slotBytes: budget * 1024 * 1024 / n,
	}
	for i := range e.slots {
		e.slots[i] = &batchSlot{batch: idx.NewBatch()}
	}

	logger.Debug("index_opened",
		slog.String("path", cfg.Path),
		slog.Int("slots", n),
		slog.Int("buffer_mb", budget))
	return e, nil
}

// Add appends doc under a fresh internal key so earlier documents with the
// same id survive.
func (e *BleveEngine) Add(ctx context.Context, doc *generator.Document) error {
	key := doc.ID + "#" + strconv.FormatUint(e.seq.Add(1), 10)
	return e.write(ctx, key, doc)
}

// Update stores doc under its id, replacing any previous version.
func (e *BleveEngine) Update(ctx context.Context, id string, doc *generator.Document) error {
	return e.write(ctx, id, doc)
}

func (e *BleveEngine) write(ctx context.Context, key string, doc *generator.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.life.RLock()
	defer e.life.RUnlock()
	if e.closed {
		return ErrClosed
	}

	data, size := toBleveDoc(doc)
	slot := e.slots[xxhash.Sum64String(key)%uint64(len(e.slots))]

	slot.mu.Lock()
	defer slot.mu.Unlock()

	if err := slot.batch.Index(key, data); err != nil {
		return fmt.Errorf("failed to buffer document %s: %w", doc.ID, err)
	}
	slot.bytes += size
	if slot.batch.Size() >= maxBatchDocs || slot.bytes >= e.slotBytes {
		return e.flushSlot(slot)
	}
	return nil
}

// flushSlot writes a slot's batch. Caller holds slot.mu.
func (e *BleveEngine) flushSlot(slot *batchSlot) error {
	if slot.batch.Size() == 0 {
		return nil
	}
	if err := e.index.Batch(slot.batch); err != nil {
		return fmt.Errorf("failed to write batch: %w", err)
	}
	slot.batch.Reset()
	slot.bytes = 0
	return nil
}

func (e *BleveEngine) flushAll() error {
	for _, slot := range e.slots {
		slot.mu.Lock()
		err := e.flushSlot(slot)
		slot.mu.Unlock()
		if err != nil {
			return err
		}
	}
	return nil
}

// Commit flushes every batch slot.
func (e *BleveEngine) Commit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.life.RLock()
	defer e.life.RUnlock()
	if e.closed {
		return ErrClosed
	}
	return e.flushAll()
}

// mergeableIndex is implemented by the scorch index behind Advanced.
type mergeableIndex interface {
	ForceMerge(ctx context.Context, mo *mergeplan.MergePlanOptions) error
}

// ForceMerge asks the index to merge down to maxSegments segments per tier.
func (e *BleveEngine) ForceMerge(ctx context.Context, maxSegments int) error {
	e.life.RLock()
	defer e.life.RUnlock()
	if e.closed {
		return ErrClosed
	}
	if err := e.flushAll(); err != nil {
		return err
	}

	adv, err := e.index.Advanced()
	if err != nil {
		return fmt.Errorf("failed to access index internals: %w", err)
	}
	m, ok := adv.(mergeableIndex)
	if !ok {
		return ErrForceMergeUnsupported
	}

	opts := mergeplan.DefaultMergePlanOptions
	if maxSegments < 1 {
		maxSegments = 1
	}
	opts.MaxSegmentsPerTier = maxSegments
	return m.ForceMerge(ctx, &opts)
}

// DocCount flushes pending writes and reports the document count.
func (e *BleveEngine) DocCount() (uint64, error) {
	e.life.RLock()
	defer e.life.RUnlock()
	if e.closed {
		return 0, ErrClosed
	}
	if err := e.flushAll(); err != nil {
		return 0, err
	}
	return e.index.DocCount()
}

// Close flushes, closes the index, and releases the directory lock.
func (e *BleveEngine) Close() error {
	e.life.Lock()
	defer e.life.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true

	flushErr := e.flushAll()
	closeErr := e.index.Close()
	if e.lock != nil {
		if err := e.lock.Unlock(); err != nil {
			e.logger.Warn("index_unlock_failed", slog.String("error", err.Error()))
		}
	}

	if flushErr != nil {
		return flushErr
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close index: %w", closeErr)
	}
	return nil
}

// toBleveDoc converts a document into the map bleve indexes and estimates
// its buffered size. Repeated field names become lists.
func toBleveDoc(doc *generator.Document) (map[string]any, int) {
	data := make(map[string]any, len(doc.Fields))
	size := len(doc.ID)
	for _, f := range doc.Fields {
		v := f.Value
		switch f.Kind {
		case generator.Numeric:
			v = toFloat(v)
			size += 8
		default:
			if s, ok := v.(string); ok {
				size += len(s)
			}
		}
		size += len(f.Name)

		prev, ok := data[f.Name]
		switch {
		case !ok:
			data[f.Name] = v
		default:
			if list, isList := prev.([]any); isList {
				data[f.Name] = append(list, v)
			} else {
				data[f.Name] = []any{prev, v}
			}
		}
	}
	return data, size
}

func toFloat(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	}
	return v
}
