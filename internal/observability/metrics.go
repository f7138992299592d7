package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and histograms for chart runs. A
// one-shot process pushes nothing by itself; the counters exist so runs
// invoked from automation can expose or push them, and so tests can assert
// on pipeline behavior.
type Metrics struct {
	FetchRequests    *prometheus.CounterVec // labels: source={census,census_bulk,ipums}, outcome={success,error}
	FetchCache       *prometheus.CounterVec // labels: result={hit,miss}
	RowsConsolidated prometheus.Counter
	RendersCompleted *prometheus.CounterVec // labels: kind={choropleth,hexmap,bubbles,scatter,spikes}
	ArtifactBytes    prometheus.Counter

	StageDuration *prometheus.HistogramVec // labels: stage={fetch,transform,render,write}
	QueryDuration *prometheus.HistogramVec // labels: query={slice,percent_change,per_capita,panel}
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FetchRequests,
		m.FetchCache,
		m.RowsConsolidated,
		m.RendersCompleted,
		m.ArtifactBytes,
		m.StageDuration,
		m.QueryDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chartpress",
			Name:      "fetch_requests_total",
			Help:      "Upstream data requests by source and outcome.",
		}, []string{"source", "outcome"}),
		FetchCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chartpress",
			Name:      "fetch_cache_total",
			Help:      "Fetch cache lookups by result.",
		}, []string{"result"}),
		RowsConsolidated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chartpress",
			Name:      "rows_consolidated_total",
			Help:      "Long-format observation rows written to the warehouse.",
		}),
		RendersCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chartpress",
			Name:      "renders_completed_total",
			Help:      "Rendered artifacts by chart kind.",
		}, []string{"kind"}),
		ArtifactBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chartpress",
			Name:      "artifact_bytes_total",
			Help:      "Bytes written to the artifact store.",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "chartpress",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "chartpress",
			Name:      "warehouse_query_duration_seconds",
			Help:      "Duration of warehouse queries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"query"}),
	}
}
