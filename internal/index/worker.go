package index

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Aman-CERP/corpusidx/internal/collection"
	"github.com/Aman-CERP/corpusidx/internal/generator"
	"github.com/Aman-CERP/corpusidx/internal/store"
	"github.com/Aman-CERP/corpusidx/internal/whitelist"
)

// DefaultBatchSize is how many indexed documents a worker accumulates
// before publishing them to the shared counter.
const DefaultBatchSize = 10000

// PartitionReport describes what one worker did with its partition.
type PartitionReport struct {
	RunID string
	Path  string

	// Records is the number of records the segment yielded.
	Records     int64
	Indexed     int64
	Unindexable int64
	Empty       int64
	Skipped     int64
	Errors      int64

	// SegmentSkipped is the segment's own tally of unparseable records.
	SegmentSkipped int
	// SegmentError is set when the parser stopped on unrecoverable trouble.
	SegmentError bool

	// Failed is set when the partition could not be opened or the worker
	// panicked. Err carries the cause.
	Failed bool
	Err    error

	// Interrupted is set when the run was cancelled mid-partition.
	Interrupted bool

	Duration time.Duration
}

// PartitionObserver receives a report when each partition finishes. It is
// called from worker goroutines and must be safe for concurrent use.
type PartitionObserver interface {
	PartitionDone(report PartitionReport)
}

// partitionTask is the unit of work submitted to the pool. Each task owns
// its segment and its generator.
type partitionTask struct {
	path        string
	runID       string
	coll        collection.Collection
	factory     generator.Factory
	genOpts     generator.Options
	engine      store.Engine
	counters    *Counters
	whitelist   whitelist.Set
	uniqueDocID bool
	batchSize   int
	logger      *slog.Logger
}

// run processes the partition to exhaustion. Record-level problems are
// counted and never returned; a panic is recovered and reported as a failed
// partition.
func (t *partitionTask) run(ctx context.Context) (report PartitionReport) {
	start := time.Now()
	report.RunID = t.runID
	report.Path = t.path
	logger := t.logger.With(slog.String("partition", t.path))

	var pending int64
	defer func() {
		if r := recover(); r != nil {
			logger.Error("partition_panic", slog.Any("panic", r))
			t.counters.IncErrors()
			report.Failed = true
			report.Err = fmt.Errorf("partition worker panicked: %v", r)
		}
		if pending > 0 {
			t.counters.AddIndexed(pending)
		}
		report.Duration = time.Since(start)
	}()

	gen, err := t.factory(t.genOpts)
	if err != nil {
		logger.Error("partition_generator_failed", slog.String("error", err.Error()))
		report.Failed = true
		report.Err = err
		return report
	}

	seg, err := t.coll.NewSegment(t.path)
	if err != nil {
		logger.Error("partition_open_failed", slog.String("error", err.Error()))
		report.Failed = true
		report.Err = err
		return report
	}
	defer func() {
		if err := seg.Close(); err != nil {
			logger.Warn("partition_close_failed", slog.String("error", err.Error()))
		}
	}()

	for {
		if ctx.Err() != nil {
			report.Interrupted = true
			break
		}

		rec, err := seg.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				report.Interrupted = true
			} else {
				logger.Error("partition_read_failed", slog.String("error", err.Error()))
				report.Failed = true
				report.Err = err
			}
			break
		}
		report.Records++

		if !rec.Indexable {
			t.counters.IncUnindexable()
			report.Unindexable++
			continue
		}
		if !t.whitelist.Allows(rec.ID) {
			t.counters.IncSkipped()
			report.Skipped++
			continue
		}

		res := gen.Generate(rec)
		switch res.Outcome {
		case generator.OK:
			if err := t.write(ctx, res.Doc); err != nil {
				logger.Warn("document_write_failed",
					slog.String("id", res.Doc.ID),
					slog.String("error", err.Error()))
				t.counters.IncErrors()
				report.Errors++
				continue
			}
			report.Indexed++
			pending++
			if pending >= int64(t.batchSize) {
				t.counters.AddIndexed(pending)
				pending = 0
			}
		case generator.Empty:
			t.counters.IncEmpty()
			report.Empty++
		case generator.Skipped:
			t.counters.IncSkipped()
			report.Skipped++
		default:
			logger.Debug("record_invalid",
				slog.String("id", rec.ID),
				slog.String("reason", res.Reason))
			t.counters.IncErrors()
			report.Errors++
		}
	}

	if n := seg.Skipped(); n > 0 {
		logger.Warn("partition_records_skipped", slog.Int("count", n))
		t.counters.AddSkipped(int64(n))
		report.SegmentSkipped = n
	}
	if seg.Err() {
		logger.Error("partition_parse_error")
		t.counters.IncErrors()
		report.SegmentError = true
	}

	logger.Debug("partition_done",
		slog.Int64("records", report.Records),
		slog.Int64("indexed", report.Indexed),
		slog.Duration("duration", time.Since(start)))
	return report
}

func (t *partitionTask) write(ctx context.Context, doc *generator.Document) error {
	if t.uniqueDocID {
		return t.engine.Update(ctx, doc.ID, doc)
	}
	return t.engine.Add(ctx, doc)
}
