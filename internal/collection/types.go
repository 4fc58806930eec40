package collection

import (
	"context"
	"time"
)

// Record is one raw record pulled from a segment. Records are immutable
// after creation and consumed once.
type Record struct {
	// ID is the source identifier. Empty for malformed records.
	ID string

	// Contents is the main text body.
	Contents string

	// Fields holds any other source fields, stringified.
	Fields map[string]string

	// Raw is the record in its original serialized form.
	Raw string

	// Indexable is false for records the source marks as not meant for
	// indexing.
	Indexable bool

	// Tweet is set by the tweet collection.
	Tweet *TweetInfo
}

// TweetInfo carries the typed tweet attributes the tweet generator needs.
type TweetInfo struct {
	ScreenName        string
	Lang              string
	CreatedAt         time.Time
	InReplyToStatusID *int64
	InReplyToUserID   *int64
	RetweetedStatusID *int64
	RetweetedUserID   *int64
	RetweetCount      *int64
	FollowersCount    int
	FriendsCount      int
	StatusesCount     int
}

// IsRetweet reports whether the tweet embeds a retweeted status.
func (t *TweetInfo) IsRetweet() bool {
	return t != nil && t.RetweetedStatusID != nil
}

// Collection is a named corpus format.
type Collection interface {
	// Name is the registry key, e.g. "json".
	Name() string

	// SegmentPaths lists the partition files under root in lexicographic
	// order.
	SegmentPaths(root string) ([]string, error)

	// NewSegment opens a fresh reader over one partition.
	NewSegment(path string) (Segment, error)
}

// Segment is an open partition.
//
// Next returns io.EOF once the segment is exhausted, including when the
// parser stopped early on unrecoverable trouble (Err then reports true). It
// returns the context error when ctx is done. Records that fail to parse are
// tallied in Skipped and never returned.
type Segment interface {
	Next(ctx context.Context) (*Record, error)
	Skipped() int
	Err() bool
	Close() error
}

// segmentState is the parser bookkeeping every segment carries.
type segmentState struct {
	skipped int
	failed  bool
}

func (s *segmentState) Skipped() int { return s.skipped }

func (s *segmentState) Err() bool { return s.failed }
