// Package index runs the indexing pipeline: it fans partitions out across a
// worker pool, turns records into documents, tallies every outcome, and
// drives the index engine through create, write, commit, merge, and close.
package index

import "sync/atomic"

// Counters tallies record outcomes for one run. Workers only ever add;
// readers take a Snapshot. A Counters is shared by pointer and is safe for
// concurrent use.
type Counters struct {
	indexed     atomic.Int64
	unindexable atomic.Int64
	empty       atomic.Int64
	skipped     atomic.Int64
	errors      atomic.Int64
}

// NewCounters returns zeroed counters.
func NewCounters() *Counters {
	return &Counters{}
}

// AddIndexed adds a batch of written documents.
func (c *Counters) AddIndexed(n int64) { c.indexed.Add(n) }

// IncUnindexable counts a record its source marked as not for indexing.
func (c *Counters) IncUnindexable() { c.unindexable.Add(1) }

// IncEmpty counts a record without indexable content.
func (c *Counters) IncEmpty() { c.empty.Add(1) }

// IncSkipped counts a record excluded by policy.
func (c *Counters) IncSkipped() { c.skipped.Add(1) }

// AddSkipped adds records a segment dropped while parsing.
func (c *Counters) AddSkipped(n int64) { c.skipped.Add(n) }

// IncErrors counts a malformed record, a failed write, or a failed segment.
func (c *Counters) IncErrors() { c.errors.Add(1) }

// Indexed returns the current indexed count.
func (c *Counters) Indexed() int64 { return c.indexed.Load() }

// Snapshot is a point-in-time copy of Counters. The fields are read one by
// one, so a snapshot taken mid-run is not atomic across fields.
type Snapshot struct {
	Indexed     int64 `json:"indexed"`
	Unindexable int64 `json:"unindexable"`
	Empty       int64 `json:"empty"`
	Skipped     int64 `json:"skipped"`
	Errors      int64 `json:"errors"`
}

// Snapshot reads all five counters.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		Indexed:     c.indexed.Load(),
		Unindexable: c.unindexable.Load(),
		Empty:       c.empty.Load(),
		Skipped:     c.skipped.Load(),
		Errors:      c.errors.Load(),
	}
}

// Total is the number of records accounted for.
func (s Snapshot) Total() int64 {
	return s.Indexed + s.Unindexable + s.Empty + s.Skipped + s.Errors
}
