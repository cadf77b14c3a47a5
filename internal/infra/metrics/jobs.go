package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(jobsProcessedTotal, pipelinePhaseTotal, pipelineRetriesTotal) }

var jobsProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "extraction_jobs_processed_total",
		Help: "Total number of extraction jobs processed, labeled by terminal status.",
	},
	[]string{"status"}, // 'success', 'failure'
)

var pipelinePhaseTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "pipeline_phase_transitions_total",
		Help: "Status transitions published by the extraction pipeline.",
	},
	[]string{"status"},
)

var pipelineRetriesTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "pipeline_retries_total",
		Help: "Whole-pipeline retry attempts after a retryable failure.",
	},
)

func IncJob(status string) {
	jobsProcessedTotal.WithLabelValues(norm(status)).Inc()
}

func IncPhase(status string) {
	pipelinePhaseTotal.WithLabelValues(norm(status)).Inc()
}

func IncPipelineRetry() {
	pipelineRetriesTotal.Inc()
}
