// Package telemetry exposes a running index to Prometheus: the outcome
// counters, per-partition durations, and the most recently finished
// partitions.
package telemetry

import (
	"encoding/json"
	"net/http"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Aman-CERP/corpusidx/internal/index"
)

const (
	namespace = "corpusidx"

	// DefaultRecentPartitions bounds the recent-partition view.
	DefaultRecentPartitions = 64
)

// Partition statuses used as the "status" label.
const (
	StatusOK          = "ok"
	StatusFailed      = "failed"
	StatusInterrupted = "interrupted"
)

// Metrics owns a private registry so several runs in one process never
// collide on the default one.
type Metrics struct {
	registry *prometheus.Registry

	partitions        *prometheus.CounterVec
	partitionDuration prometheus.Histogram
	partitionRecords  prometheus.Histogram

	recent *lru.Cache[string, PartitionSummary]
}

var _ index.PartitionObserver = (*Metrics)(nil)

// PartitionSummary is the JSON view of a finished partition.
type PartitionSummary struct {
	Path           string    `json:"path"`
	Status         string    `json:"status"`
	Records        int64     `json:"records"`
	Indexed        int64     `json:"indexed"`
	Skipped        int64     `json:"skipped"`
	Errors         int64     `json:"errors"`
	SegmentSkipped int       `json:"segment_skipped"`
	Error          string    `json:"error,omitempty"`
	DurationMS     int64     `json:"duration_ms"`
	FinishedAt     time.Time `json:"finished_at"`
}

// NewMetrics registers collectors reading the live counters. recent bounds
// the recent-partition view; zero means DefaultRecentPartitions.
func NewMetrics(counters *index.Counters, recent int) (*Metrics, error) {
	if recent <= 0 {
		recent = DefaultRecentPartitions
	}
	cache, err := lru.New[string, PartitionSummary](recent)
	if err != nil {
		return nil, err
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		partitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "partitions_total",
				Help:      "Partitions finished, by status",
			},
			[]string{"status"},
		),
		partitionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "partition_duration_seconds",
			Help:      "Time spent indexing one partition",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 14),
		}),
		partitionRecords: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "partition_records",
			Help:      "Records read from one partition",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 10),
		}),
		recent: cache,
	}

	outcomes := []struct {
		name string
		read func(index.Snapshot) int64
	}{
		{"indexed", func(s index.Snapshot) int64 { return s.Indexed }},
		{"unindexable", func(s index.Snapshot) int64 { return s.Unindexable }},
		{"empty", func(s index.Snapshot) int64 { return s.Empty }},
		{"skipped", func(s index.Snapshot) int64 { return s.Skipped }},
		{"errors", func(s index.Snapshot) int64 { return s.Errors }},
	}
	for _, o := range outcomes {
		read := o.read
		m.registry.MustRegister(prometheus.NewCounterFunc(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "records_total",
				Help:        "Records processed, by outcome",
				ConstLabels: prometheus.Labels{"outcome": o.name},
			},
			func() float64 { return float64(read(counters.Snapshot())) },
		))
	}

	m.registry.MustRegister(
		m.partitions,
		m.partitionDuration,
		m.partitionRecords,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m, nil
}

// PartitionDone records a finished partition.
func (m *Metrics) PartitionDone(r index.PartitionReport) {
	status := StatusOK
	switch {
	case r.Failed:
		status = StatusFailed
	case r.Interrupted:
		status = StatusInterrupted
	}

	m.partitions.WithLabelValues(status).Inc()
	m.partitionDuration.Observe(r.Duration.Seconds())
	m.partitionRecords.Observe(float64(r.Records))

	s := PartitionSummary{
		Path:           r.Path,
		Status:         status,
		Records:        r.Records,
		Indexed:        r.Indexed,
		Skipped:        r.Skipped,
		Errors:         r.Errors,
		SegmentSkipped: r.SegmentSkipped,
		DurationMS:     r.Duration.Milliseconds(),
		FinishedAt:     time.Now().UTC(),
	}
	if r.Err != nil {
		s.Error = r.Err.Error()
	}
	m.recent.Add(r.Path, s)
}

// RecentPartitions returns the retained summaries, oldest first.
func (m *Metrics) RecentPartitions() []PartitionSummary {
	return m.recent.Values()
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves /metrics and /partitions.
func (m *Metrics) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/partitions", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(m.RecentPartitions())
	})
	return mux
}
