package workflow

import "github.com/prometheus/client_golang/prometheus"

// Metric names follow the service-prefix convention; everything here is
// registered once against the default registry and exposed on /metrics.
var (
	fetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cdrr_triage_fetches_total",
			Help: "Total record fetches against the remote store by outcome",
		},
		[]string{"outcome", "bucket"},
	)

	staleResponsesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cdrr_triage_stale_responses_total",
			Help: "Responses discarded because the query state moved on before they resolved",
		},
	)

	pollTicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cdrr_triage_poll_ticks_total",
			Help: "Badge poller ticks by outcome",
		},
		[]string{"outcome"},
	)

	storeLatencySeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cdrr_triage_store_latency_seconds",
			Help:    "Latency of list calls against the remote store",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(fetchesTotal, staleResponsesTotal, pollTicksTotal, storeLatencySeconds)
}
