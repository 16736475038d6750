// Package metrics holds the Prometheus collectors of the stats engine. All
// collectors register with the default registry, which /metrics exposes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.
const (
	OutcomeSuccess     = "success"
	OutcomeFailure     = "failure"
	OutcomeConfigError = "config_error"
	OutcomeTimeout     = "timeout"
)

var (
	// RebuildsTotal counts rebuild runs by invocation surface and outcome.
	RebuildsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stats_rebuilds_total",
		Help: "Total statistics rebuilds by surface and outcome",
	}, []string{"surface", "outcome"})

	// RebuildDuration tracks the wall time of one rebuild, scan plus cache write.
	RebuildDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stats_rebuild_duration_seconds",
		Help:    "Statistics rebuild duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 14), // 50ms to ~7min
	}, []string{"surface"})

	// RecordsScanned counts normalized records read from the records store.
	RecordsScanned = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stats_records_scanned_total",
		Help: "Total records read by rebuild scans",
	}, []string{"kind"}) // "attendance" or "grades"

	// TriggersTotal counts write-triggered rebuild requests by decision.
	TriggersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stats_triggers_total",
		Help: "Total write-triggered rebuild requests by decision",
	}, []string{"decision"}) // "started" or "debounced"

	// CoalescedTotal counts unconditional rebuild calls that joined an in-flight run.
	CoalescedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stats_rebuilds_coalesced_total",
		Help: "Total rebuild requests served by an already running rebuild",
	})

	// CacheWriteErrors counts failed cache snapshot writes.
	CacheWriteErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stats_cache_write_errors_total",
		Help: "Total failed cache snapshot writes",
	})
)
