package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(llmCallLatencyMs, historyTruncatedTotal) }

var llmCallLatencyMs = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "llm_call_latency_ms",
		Help:    "Summarization call latency distribution in milliseconds.",
		Buckets: []float64{100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000, 120000},
	},
	[]string{"provider", "model", "success"},
)

var historyTruncatedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "llm_history_truncated_total",
		Help: "Histories cut down to the configured token budget before summarization.",
	},
)

func ObserveLLMCall(provider, model string, latencyMs int, success bool) {
	llmCallLatencyMs.WithLabelValues(norm(provider), norm(model), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
}

func IncHistoryTruncated() {
	historyTruncatedTotal.Inc()
}
