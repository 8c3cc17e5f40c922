package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and histograms for one ETL run.
type Metrics struct {
	RecordsExtracted *prometheus.CounterVec // labels: kind
	RecordsLoaded    *prometheus.CounterVec // labels: kind, sink
	PipelineErrors   *prometheus.CounterVec // labels: kind, stage={extract,normalize,aggregate,load}
	PipelineDuration *prometheus.HistogramVec

	// Fetch metrics.
	FetchRequests *prometheus.CounterVec   // labels: host, outcome={success,error}
	FetchDuration *prometheus.HistogramVec // labels: host

	LastSuccess *prometheus.GaugeVec // labels: kind; unix seconds
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.Collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RecordsExtracted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "localidades_etl",
			Name:      "records_extracted_total",
			Help:      "Raw records produced by extractors.",
		}, []string{"kind"}),
		RecordsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "localidades_etl",
			Name:      "records_loaded_total",
			Help:      "Canonical records handed to each sink.",
		}, []string{"kind", "sink"}),
		PipelineErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "localidades_etl",
			Name:      "pipeline_errors_total",
			Help:      "Pipeline failures by kind and stage.",
		}, []string{"kind", "stage"}),
		PipelineDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "localidades_etl",
			Name:      "pipeline_duration_seconds",
			Help:      "Duration of a complete fetch-to-write pipeline.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"kind"}),
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "localidades_etl",
			Name:      "fetch_requests_total",
			Help:      "Upstream HTTP requests by host and outcome.",
		}, []string{"host", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "localidades_etl",
			Name:      "fetch_duration_seconds",
			Help:      "Upstream HTTP request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"host"}),
		LastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "localidades_etl",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful pipeline run per kind.",
		}, []string{"kind"}),
	}
}

// Collectors lists every metric, for registration and Pushgateway pushes.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.RecordsExtracted,
		m.RecordsLoaded,
		m.PipelineErrors,
		m.PipelineDuration,
		m.FetchRequests,
		m.FetchDuration,
		m.LastSuccess,
	}
}
