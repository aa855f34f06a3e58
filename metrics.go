package geoprefix

import (
	"sync/atomic"
	"time"

	"github.com/hupe1980/geoprefix/prefix"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordCommit is called after each commit. added and deleted count the
	// documents the commit made durable.
	RecordCommit(added, deleted int, duration time.Duration, err error)

	// RecordSearch is called after each search with the number of hits.
	RecordSearch(hits int, duration time.Duration, err error)

	// RecordFilter is called once per searched segment with the traversal
	// statistics of the filter.
	RecordFilter(stats prefix.Stats)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordCommit(int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordSearch(int, time.Duration, error)      {}
func (NoopMetricsCollector) RecordFilter(prefix.Stats)                   {}

// BasicMetricsCollector provides simple in-memory metrics collection.
type BasicMetricsCollector struct {
	CommitCount      atomic.Int64
	CommitErrors     atomic.Int64
	CommittedAdds    atomic.Int64
	CommittedDeletes atomic.Int64
	SearchCount      atomic.Int64
	SearchErrors     atomic.Int64
	SearchHits       atomic.Int64
	SearchTotalNanos atomic.Int64
	CellsPopped      atomic.Int64
	Seeks            atomic.Int64
	TermsScanned     atomic.Int64
}

// RecordCommit implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCommit(added, deleted int, _ time.Duration, err error) {
	b.CommitCount.Add(1)
	if err != nil {
		b.CommitErrors.Add(1)
		return
	}
	b.CommittedAdds.Add(int64(added))
	b.CommittedDeletes.Add(int64(deleted))
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(hits int, duration time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SearchErrors.Add(1)
		return
	}
	b.SearchHits.Add(int64(hits))
}

// RecordFilter implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFilter(stats prefix.Stats) {
	b.CellsPopped.Add(int64(stats.CellsPopped))
	b.Seeks.Add(int64(stats.Seeks))
	b.TermsScanned.Add(int64(stats.TermsScanned))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	s := BasicMetricsStats{
		CommitCount:      b.CommitCount.Load(),
		CommitErrors:     b.CommitErrors.Load(),
		CommittedAdds:    b.CommittedAdds.Load(),
		CommittedDeletes: b.CommittedDeletes.Load(),
		SearchCount:      b.SearchCount.Load(),
		SearchErrors:     b.SearchErrors.Load(),
		SearchHits:       b.SearchHits.Load(),
		CellsPopped:      b.CellsPopped.Load(),
		Seeks:            b.Seeks.Load(),
		TermsScanned:     b.TermsScanned.Load(),
	}
	if s.SearchCount > 0 {
		s.SearchAvgNanos = b.SearchTotalNanos.Load() / s.SearchCount
	}
	return s
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	CommitCount      int64
	CommitErrors     int64
	CommittedAdds    int64
	CommittedDeletes int64
	SearchCount      int64
	SearchErrors     int64
	SearchHits       int64
	SearchAvgNanos   int64
	CellsPopped      int64
	Seeks            int64
	TermsScanned     int64
}
