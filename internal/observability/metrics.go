package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// forecast pipeline.
type Metrics struct {
	BuildsTotal     prometheus.Counter
	BuildErrors     *prometheus.CounterVec // label: reason={catalog,key_parse,ingest,concat}
	EmptyWindows    prometheus.Counter
	PipelineRunning prometheus.Gauge

	SnapshotsSelected prometheus.Histogram
	RowsAssembled     prometheus.Histogram
	BuildDuration     prometheus.Histogram

	// Sink metrics.
	BuildsPublished prometheus.Counter
	PublishErrors   prometheus.Counter
	BuildsStored    prometheus.Counter
	StoreErrors     prometheus.Counter

	// Ingest cache metrics.
	IngestCache *prometheus.CounterVec // label: result={hit,miss}
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		BuildsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hydro_etl",
			Name:      "builds_total",
			Help:      "Total forecast build attempts.",
		}),
		BuildErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hydro_etl",
			Name:      "build_errors_total",
			Help:      "Failed forecast builds by reason.",
		}, []string{"reason"}),
		EmptyWindows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hydro_etl",
			Name:      "empty_windows_total",
			Help:      "Builds where no snapshot fell inside the forecast window.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hydro_etl",
			Name:      "pipeline_running",
			Help:      "1 when the refresh loop is active, 0 when shut down.",
		}),
		SnapshotsSelected: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hydro_etl",
			Name:      "snapshots_selected",
			Help:      "Number of snapshots selected per build.",
			Buckets:   []float64{1, 2, 3, 4, 5, 6, 7, 8, 14, 28},
		}),
		RowsAssembled: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hydro_etl",
			Name:      "rows_assembled",
			Help:      "Rows in the assembled master series.",
			Buckets:   []float64{24, 168, 336, 672, 1344, 2688, 5376},
		}),
		BuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hydro_etl",
			Name:      "build_duration_seconds",
			Help:      "Duration of a complete select-ingest-concat build.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		BuildsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hydro_etl",
			Name:      "builds_published_total",
			Help:      "Master series builds published to the Kafka sink topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hydro_etl",
			Name:      "publish_errors_total",
			Help:      "Failed Kafka publishes.",
		}),
		BuildsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hydro_etl",
			Name:      "builds_stored_total",
			Help:      "Master series builds persisted to the SQLite store.",
		}),
		StoreErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hydro_etl",
			Name:      "store_errors_total",
			Help:      "Failed store writes.",
		}),
		IngestCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hydro_etl",
			Name:      "ingest_cache_total",
			Help:      "Snapshot ingest cache lookups by result.",
		}, []string{"result"}),
	}

	prometheus.MustRegister(
		m.BuildsTotal,
		m.BuildErrors,
		m.EmptyWindows,
		m.PipelineRunning,
		m.SnapshotsSelected,
		m.RowsAssembled,
		m.BuildDuration,
		m.BuildsPublished,
		m.PublishErrors,
		m.BuildsStored,
		m.StoreErrors,
		m.IngestCache,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		BuildsTotal:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "hydro_etl", Name: "builds_total"}),
		BuildErrors:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "hydro_etl", Name: "build_errors_total"}, []string{"reason"}),
		EmptyWindows:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "hydro_etl", Name: "empty_windows_total"}),
		PipelineRunning:   prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "hydro_etl", Name: "pipeline_running"}),
		SnapshotsSelected: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "hydro_etl", Name: "snapshots_selected"}),
		RowsAssembled:     prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "hydro_etl", Name: "rows_assembled"}),
		BuildDuration:     prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "hydro_etl", Name: "build_duration_seconds"}),
		BuildsPublished:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "hydro_etl", Name: "builds_published_total"}),
		PublishErrors:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "hydro_etl", Name: "publish_errors_total"}),
		BuildsStored:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "hydro_etl", Name: "builds_stored_total"}),
		StoreErrors:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "hydro_etl", Name: "store_errors_total"}),
		IngestCache:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "hydro_etl", Name: "ingest_cache_total"}, []string{"result"}),
	}
}
