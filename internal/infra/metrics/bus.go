package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(busPublishFailures, filesSweptTotal) }

var busPublishFailures = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "status_bus_publish_failures_total",
		Help: "Status events that could not be published (best-effort bus).",
	},
)

var filesSweptTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "output_files_swept_total",
		Help: "Participant files removed by the retention sweeper.",
	},
)

func IncBusPublishFailure() {
	busPublishFailures.Inc()
}

func AddFilesSwept(n int) {
	filesSweptTotal.Add(float64(n))
}
