package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the ETL pipeline.
type Metrics struct {
	RunsTotal       *prometheus.CounterVec // labels: outcome={success,error}
	RunDuration     prometheus.Histogram
	RefreshesShared prometheus.Counter
	LastSuccess     prometheus.Gauge
	SnapshotRows    prometheus.Gauge
	PipelineReady   prometheus.Gauge

	// Feed download metrics.
	FetchDuration prometheus.Histogram
	FetchBytes    prometheus.Counter

	// Repairs applied while building the national table.
	RowsDropped  prometheus.Counter
	CellsCoerced prometheus.Counter

	MessagesPublished prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ccaa_etl",
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ccaa_etl",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete fetch, build, and aggregate run.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		RefreshesShared: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ccaa_etl",
			Name:      "refreshes_shared_total",
			Help:      "Refresh requests that joined a run already in flight.",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ccaa_etl",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last published snapshot.",
		}),
		SnapshotRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ccaa_etl",
			Name:      "snapshot_rows",
			Help:      "Rows in the published national table.",
		}),
		PipelineReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ccaa_etl",
			Name:      "pipeline_ready",
			Help:      "1 once a snapshot has been published, 0 before.",
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ccaa_etl",
			Name:      "fetch_duration_seconds",
			Help:      "Feed download and normalization duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		FetchBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ccaa_etl",
			Name:      "fetch_bytes_total",
			Help:      "Raw feed bytes downloaded.",
		}),
		RowsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ccaa_etl",
			Name:      "rows_dropped_total",
			Help:      "Feed rows dropped for an unparseable date or malformed record.",
		}),
		CellsCoerced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ccaa_etl",
			Name:      "cells_coerced_total",
			Help:      "Empty or unparseable numeric cells replaced with zero.",
		}),
		MessagesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ccaa_etl",
			Name:      "messages_published_total",
			Help:      "Snapshot messages written to the sink topic.",
		}),
	}

	prometheus.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.RefreshesShared,
		m.LastSuccess,
		m.SnapshotRows,
		m.PipelineReady,
		m.FetchDuration,
		m.FetchBytes,
		m.RowsDropped,
		m.CellsCoerced,
		m.MessagesPublished,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		RunsTotal:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "ccaa_etl", Name: "runs_total"}, []string{"outcome"}),
		RunDuration:       prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "ccaa_etl", Name: "run_duration_seconds"}),
		RefreshesShared:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "ccaa_etl", Name: "refreshes_shared_total"}),
		LastSuccess:       prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "ccaa_etl", Name: "last_success_timestamp_seconds"}),
		SnapshotRows:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "ccaa_etl", Name: "snapshot_rows"}),
		PipelineReady:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "ccaa_etl", Name: "pipeline_ready"}),
		FetchDuration:     prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "ccaa_etl", Name: "fetch_duration_seconds"}),
		FetchBytes:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "ccaa_etl", Name: "fetch_bytes_total"}),
		RowsDropped:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "ccaa_etl", Name: "rows_dropped_total"}),
		CellsCoerced:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "ccaa_etl", Name: "cells_coerced_total"}),
		MessagesPublished: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "ccaa_etl", Name: "messages_published_total"}),
	}
}
