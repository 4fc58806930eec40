package index

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/corpusidx/internal/collection"
	"github.com/Aman-CERP/corpusidx/internal/generator"
	"github.com/Aman-CERP/corpusidx/internal/whitelist"
)

func newTestTask(coll *fakeCollection, engine *fakeEngine, counters *Counters) *partitionTask {
	return &partitionTask{
		path:      "/corpus/p1",
		runID:     "run-1",
		coll:      coll,
		factory:   generator.NewDefault,
		engine:    engine,
		counters:  counters,
		batchSize: 2,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestPartitionTask_ConservesRecords(t *testing.T) {
	// Given: a partition mixing every outcome
	coll := &fakeCollection{parts: map[string]partitionSpec{
		"p1": {records: []*collection.Record{
			rec("a", "first document"),
			rec("b", "second document"),
			{ID: "c", Contents: "not for the index", Indexable: false},
			rec("d", ""),
			rec("", "no id here"),
			rec("e", "third document"),
		}},
	}}
	engine := newFakeEngine()
	counters := NewCounters()
	task := newTestTask(coll, engine, counters)

	// When: the task runs
	report := task.run(context.Background())

	// Then: every record lands in exactly one bucket
	s := counters.Snapshot()
	assert.Equal(t, int64(3), s.Indexed)
	assert.Equal(t, int64(1), s.Unindexable)
	assert.Equal(t, int64(1), s.Empty)
	assert.Equal(t, int64(1), s.Errors)
	assert.Equal(t, report.Records, s.Total())
	assert.Equal(t, int64(3), report.Indexed)
	assert.False(t, report.Failed)
	assert.Equal(t, int64(1), coll.closed.Load())
}

func TestPartitionTask_FoldsSegmentSkipsAndErrorFlag(t *testing.T) {
	coll := &fakeCollection{parts: map[string]partitionSpec{
		"p1": {records: []*collection.Record{rec("a", "text")}, skipped: 3, failed: true},
	}}
	counters := NewCounters()
	report := newTestTask(coll, newFakeEngine(), counters).run(context.Background())

	s := counters.Snapshot()
	assert.Equal(t, int64(1), s.Indexed)
	assert.Equal(t, int64(3), s.Skipped)
	assert.Equal(t, int64(1), s.Errors)
	assert.Equal(t, 3, report.SegmentSkipped)
	assert.True(t, report.SegmentError)
}

func TestPartitionTask_OpenFailure(t *testing.T) {
	coll := &fakeCollection{parts: map[string]partitionSpec{
		"p1": {openErr: errors.New("permission denied")},
	}}
	counters := NewCounters()
	report := newTestTask(coll, newFakeEngine(), counters).run(context.Background())

	assert.True(t, report.Failed)
	assert.EqualError(t, report.Err, "permission denied")
	assert.Equal(t, Snapshot{}, counters.Snapshot())
	assert.Zero(t, coll.closed.Load())
}

func TestPartitionTask_WhitelistRejectsBeforeGeneration(t *testing.T) {
	// Given: a whitelist admitting a and c
	coll := &fakeCollection{parts: map[string]partitionSpec{
		"p1": {records: []*collection.Record{
			rec("a", "alpha text"), rec("b", "beta text"),
			rec("c", "gamma text"), rec("d", "delta text"),
		}},
	}}
	var (
		mu   sync.Mutex
		seen []string
	)
	counters := NewCounters()
	task := newTestTask(coll, newFakeEngine(), counters)
	task.whitelist = whitelist.New("a", "c")
	task.factory = func(opts generator.Options) (generator.Generator, error) {
		next, err := generator.NewDefault(opts)
		return &countingGenerator{mu: &mu, seen: &seen, next: next}, err
	}

	// When: the task runs
	task.run(context.Background())

	// Then: the generator never sees rejected ids
	assert.Equal(t, []string{"a", "c"}, seen)
	s := counters.Snapshot()
	assert.Equal(t, int64(2), s.Indexed)
	assert.Equal(t, int64(2), s.Skipped)
}

func TestPartitionTask_RecoversPanic(t *testing.T) {
	// Given: a generator that panics on the third record
	coll := &fakeCollection{parts: map[string]partitionSpec{
		"p1": {records: []*collection.Record{
			rec("a", "one"), rec("b", "two"), rec("c", "three"),
		}},
	}}
	counters := NewCounters()
	task := newTestTask(coll, newFakeEngine(), counters)
	task.batchSize = 100
	task.factory = func(opts generator.Options) (generator.Generator, error) {
		next, err := generator.NewDefault(opts)
		return &panicGenerator{on: "c", next: next}, err
	}

	// When: the task runs
	var report PartitionReport
	require.NotPanics(t, func() { report = task.run(context.Background()) })

	// Then: the partition is failed, pending work is published, and the
	// segment is closed
	assert.True(t, report.Failed)
	require.Error(t, report.Err)
	assert.Contains(t, report.Err.Error(), "boom on c")
	s := counters.Snapshot()
	assert.Equal(t, int64(2), s.Indexed)
	assert.Equal(t, int64(1), s.Errors)
	assert.Equal(t, int64(1), coll.closed.Load())
}

func TestPartitionTask_StopsOnCancelledContext(t *testing.T) {
	coll := &fakeCollection{parts: map[string]partitionSpec{
		"p1": {records: []*collection.Record{rec("a", "one"), rec("b", "two")}},
	}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	counters := NewCounters()
	report := newTestTask(coll, newFakeEngine(), counters).run(ctx)

	assert.True(t, report.Interrupted)
	assert.False(t, report.Failed)
	assert.Zero(t, report.Records)
	assert.Equal(t, int64(1), coll.closed.Load())
}

func TestPartitionTask_WriteFailureCountsError(t *testing.T) {
	coll := &fakeCollection{parts: map[string]partitionSpec{
		"p1": {records: []*collection.Record{rec("a", "one"), rec("b", "two")}},
	}}
	engine := newFakeEngine()
	require.NoError(t, engine.Close())

	counters := NewCounters()
	newTestTask(coll, engine, counters).run(context.Background())

	s := counters.Snapshot()
	assert.Zero(t, s.Indexed)
	assert.Equal(t, int64(2), s.Errors)
}

func TestPartitionTask_UniqueDocIDUsesUpdate(t *testing.T) {
	coll := &fakeCollection{parts: map[string]partitionSpec{
		"p1": {records: []*collection.Record{rec("a", "one"), rec("a", "two")}},
	}}
	engine := newFakeEngine()
	task := newTestTask(coll, engine, NewCounters())
	task.uniqueDocID = true

	task.run(context.Background())

	n, err := engine.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
	assert.Equal(t, "two", engine.docs["a"].Value(generator.FieldContents))
}
