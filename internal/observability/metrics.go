package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// dataset pipeline.
type Metrics struct {
	RecordsFetched   *prometheus.CounterVec // labels: source={NMED,ABQ}
	RecordsDropped   *prometheus.CounterVec // labels: source={NMED,ABQ}
	SourceFailures   *prometheus.CounterVec // labels: source={NMED,ABQ}
	RecordsPublished prometheus.Counter
	RunsTotal        *prometheus.CounterVec // labels: outcome={success,error}
	PipelineRunning  prometheus.Gauge

	RunDuration    prometheus.Histogram
	DatasetRecords prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RecordsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "inspection_etl",
			Name:      "records_fetched_total",
			Help:      "Total normalized records produced per source.",
		}, []string{"source"}),
		RecordsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "inspection_etl",
			Name:      "records_dropped_total",
			Help:      "Total malformed rows dropped per source.",
		}, []string{"source"}),
		SourceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "inspection_etl",
			Name:      "source_failures_total",
			Help:      "Total source fetches that failed entirely.",
		}, []string{"source"}),
		RecordsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "inspection_etl",
			Name:      "records_published_total",
			Help:      "Total records published to the Kafka sink.",
		}),
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "inspection_etl",
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome.",
		}, []string{"outcome"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "inspection_etl",
			Name:      "pipeline_running",
			Help:      "1 while a pipeline run is in progress, 0 otherwise.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "inspection_etl",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete fetch-normalize-score-write run.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		DatasetRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "inspection_etl",
			Name:      "dataset_records",
			Help:      "Record count of the most recently written dataset.",
		}),
	}

	prometheus.MustRegister(
		m.RecordsFetched,
		m.RecordsDropped,
		m.SourceFailures,
		m.RecordsPublished,
		m.RunsTotal,
		m.PipelineRunning,
		m.RunDuration,
		m.DatasetRecords,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		RecordsFetched:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "inspection_etl", Name: "records_fetched_total"}, []string{"source"}),
		RecordsDropped:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "inspection_etl", Name: "records_dropped_total"}, []string{"source"}),
		SourceFailures:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "inspection_etl", Name: "source_failures_total"}, []string{"source"}),
		RecordsPublished: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "inspection_etl", Name: "records_published_total"}),
		RunsTotal:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "inspection_etl", Name: "runs_total"}, []string{"outcome"}),
		PipelineRunning:  prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "inspection_etl", Name: "pipeline_running"}),
		RunDuration:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "inspection_etl", Name: "run_duration_seconds"}),
		DatasetRecords:   prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "inspection_etl", Name: "dataset_records"}),
	}
}
