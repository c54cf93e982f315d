package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Engine metrics, registered on the default registry.
var (
	IntentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poseidon_intents_total",
		Help: "Executed intents by kind and outcome",
	}, []string{"kind", "outcome"})

	BundlesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poseidon_bundles_total",
		Help: "Bundle submissions by outcome",
	}, []string{"outcome"})

	OracleGateRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "poseidon_oracle_gate_rejections_total",
		Help: "Intents rejected by the oracle reliability gate",
	})

	MonitorTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "poseidon_monitor_ticks_total",
		Help: "Completed monitor ticks",
	})

	PipelineBuildSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "poseidon_pipeline_build_seconds",
		Help:    "Wall time to compose and finalize a transaction list",
		Buckets: prometheus.DefBuckets,
	})
)

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
