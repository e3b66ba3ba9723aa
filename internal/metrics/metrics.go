// Package metrics exposes Prometheus counters for engine activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScansTotal counts finished scans by terminal status.
	ScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plexsweep_scans_total",
			Help: "Total number of finished scans by status.",
		},
		[]string{"status"},
	)

	// ItemsScanned counts media items evaluated across all scans.
	ItemsScanned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "plexsweep_items_scanned_total",
		Help: "Total number of media items evaluated.",
	})

	// CandidatesFlagged counts items flagged as maintenance candidates.
	CandidatesFlagged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "plexsweep_candidates_flagged_total",
		Help: "Total number of media items flagged for review or deletion.",
	})

	// DeletionsTotal counts deletion attempts by result.
	DeletionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plexsweep_deletions_total",
			Help: "Total number of deletion attempts by result.",
		},
		[]string{"result"},
	)

	// ScanDuration observes wall-clock scan durations.
	ScanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "plexsweep_scan_duration_seconds",
		Help:    "Duration of rule scans in seconds.",
		Buckets: prometheus.DefBuckets,
	})
)
