package tor

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeOK        = "ok"
	outcomeTransient = "transient"
	outcomeFailure   = "failure"
)

var requestAttempts = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "chaincase",
		Subsystem: "transport",
		Name:      "request_attempts_total",
		Help:      "Number of HTTP request attempts by outcome.",
	},
	[]string{"outcome"},
)

// Collectors returns the metrics of the transport layer, to be registered by
// whoever exposes them.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{requestAttempts}
}
