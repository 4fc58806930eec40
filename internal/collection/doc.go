// Package collection turns a corpus directory into partitions (segments) of
// raw records.
//
// A Collection knows which files under a root belong to it and how to read
// one of them. Each file is one partition, processed by exactly one worker.
// Readers are restartable: NewSegment opens a fresh reader every time, so the
// same path always yields the same record sequence.
//
// Files ending in .gz or .zst are decompressed transparently.
package collection
