package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(rateLimitedTotal) }

var rateLimitedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "rate_limit_denials_total",
		Help: "Admission checks denied by the sliding-window rate limiter.",
	},
	[]string{"action"},
)

func IncRateLimited(action string) {
	rateLimitedTotal.WithLabelValues(norm(action)).Inc()
}
