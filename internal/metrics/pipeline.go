package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline Prometheus metrics.
var (
	PipelineRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paperask",
			Name:      "pipeline_requests_total",
			Help:      "Total number of ask pipeline runs",
		},
		[]string{"generator", "status"},
	)

	PipelineStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "paperask",
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Duration of each pipeline stage in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"stage"},
	)

	RetrievedChunksTotal = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "paperask",
			Name:      "retrieved_chunks",
			Help:      "Number of chunks returned per retrieval",
			Buckets:   []float64{0, 1, 2, 4, 6, 8, 12, 16, 24, 50},
		},
		[]string{"generator"},
	)

	GenerationTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paperask",
			Name:      "generation_tokens_total",
			Help:      "Total tokens consumed by generation backends",
		},
		[]string{"generator", "model"},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers Prometheus pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(PipelineRequestsTotal)
	prometheus.MustRegister(PipelineStageDuration)
	prometheus.MustRegister(RetrievedChunksTotal)
	prometheus.MustRegister(GenerationTokensTotal)
	pipelineMetricsRegistered = true
}
