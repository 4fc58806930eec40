// Package store adapts the bleve search library into the write-only index
// engine the indexing pipeline drives: create or overwrite, add or update
// documents, commit, force-merge, count, and close.
package store

import (
	"context"
	"errors"

	"github.com/Aman-CERP/corpusidx/internal/generator"
)

var (
	// ErrClosed is returned by writes after Close.
	ErrClosed = errors.New("index engine is closed")

	// ErrForceMergeUnsupported is returned when the underlying index cannot
	// merge segments on demand.
	ErrForceMergeUnsupported = errors.New("index does not support force merge")
)

// Engine is a shared index writer. Add and Update are safe for concurrent
// use; Commit, ForceMerge, DocCount, and Close are called by a single owner.
type Engine interface {
	// Add appends doc, keeping any earlier document with the same id.
	Add(ctx context.Context, doc *generator.Document) error

	// Update replaces every document with the given id by doc.
	Update(ctx context.Context, id string, doc *generator.Document) error

	// Commit makes every buffered write durable and visible.
	Commit(ctx context.Context) error

	// ForceMerge merges the index down to at most maxSegments segments.
	ForceMerge(ctx context.Context, maxSegments int) error

	// DocCount returns the number of documents, including buffered ones.
	DocCount() (uint64, error)

	// Close releases the engine. It is safe to call more than once.
	Close() error
}
