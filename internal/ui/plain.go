package ui

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/Aman-CERP/corpusidx/internal/index"
)

// PlainRenderer outputs plain text (for CI/pipes).
type PlainRenderer struct {
	mu             sync.Mutex
	out            io.Writer
	showPartitions bool
	done           int
}

// NewPlainRenderer creates a plain text renderer.
func NewPlainRenderer(cfg Config) *PlainRenderer {
	out := cfg.Output
	if out == nil {
		out = io.Discard
	}
	return &PlainRenderer{out: out, showPartitions: cfg.ShowPartitions}
}

// Start implements Renderer.
func (r *PlainRenderer) Start(_ context.Context, s Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, _ = fmt.Fprintf(r.out, "Indexing %s (%s collection, %s generator)\n", s.Input, s.Collection, s.Generator)
	_, _ = fmt.Fprintf(r.out, "  index:   %s\n", s.Index)
	_, _ = fmt.Fprintf(r.out, "  threads: %d\n", s.Threads)
	if s.Shard != "" {
		_, _ = fmt.Fprintf(r.out, "  shard:   %s\n", s.Shard)
	}
	_, _ = fmt.Fprintf(r.out, "  run:     %s\n", s.RunID)
	return nil
}

// PartitionDone implements index.PartitionObserver.
func (r *PlainRenderer) PartitionDone(rep index.PartitionReport) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.done++
	if !r.showPartitions {
		return
	}
	if rep.Failed {
		_, _ = fmt.Fprintf(r.out, "[FAIL %d] %s: %v\n", r.done, rep.Path, rep.Err)
		return
	}
	_, _ = fmt.Fprintf(r.out, "[DONE %d] %s: %d indexed, %d errors\n", r.done, rep.Path, rep.Indexed, rep.Errors)
}

// AddError implements Renderer.
func (r *PlainRenderer) AddError(event ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prefix := "ERROR"
	if event.IsWarn {
		prefix = "WARN"
	}
	if event.Partition != "" {
		_, _ = fmt.Fprintf(r.out, "%s: %s: %v\n", prefix, event.Partition, event.Err)
	} else {
		_, _ = fmt.Fprintf(r.out, "%s: %v\n", prefix, event.Err)
	}
}

// Complete implements Renderer.
func (r *PlainRenderer) Complete(res *index.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, _ = fmt.Fprintln(r.out, headline(res))
	for _, row := range reportRows(res) {
		_, _ = fmt.Fprintf(r.out, "  %-12s %s\n", row.label+":", row.value)
	}
	if res.CountMismatch {
		_, _ = fmt.Fprintf(r.out, "WARN: %s\n", mismatchWarning(res))
	}
	for _, p := range res.FailedPartitions {
		_, _ = fmt.Fprintf(r.out, "WARN: partition failed: %s\n", p)
	}
}

// Stop implements Renderer.
func (r *PlainRenderer) Stop() error {
	return nil
}
