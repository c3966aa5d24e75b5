package application

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	syncTicks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chaincase",
			Subsystem: "sync",
			Name:      "ticks_total",
			Help:      "Number of sync ticks by result.",
		},
		[]string{"result"},
	)
	mempoolUpdates = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "chaincase",
			Subsystem: "sync",
			Name:      "mempool_updates_total",
			Help:      "Number of mempool updates handed to the transaction processor.",
		},
	)
	serverTipHeight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "chaincase",
			Subsystem: "sync",
			Name:      "server_tip_height",
			Help:      "Height of the latest mature header of the backend.",
		},
	)
	droppedEvents = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "chaincase",
			Subsystem: "sync",
			Name:      "dropped_events_total",
			Help:      "Number of sync events dropped because nobody was listening.",
		},
	)
)

// Collectors returns the sync metrics, to be registered by whoever exposes
// them.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		syncTicks, mempoolUpdates, serverTipHeight, droppedEvents,
	}
}
