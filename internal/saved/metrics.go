package saved

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	flushedOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "compete",
			Subsystem: "saved",
			Name:      "flushed_ops_total",
			Help:      "Pending operations sent to the backend, by outcome.",
		},
		[]string{"outcome"},
	)

	syncRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "compete",
			Subsystem: "saved",
			Name:      "sync_runs_total",
			Help:      "Reconciliation passes, by outcome.",
		},
		[]string{"outcome"},
	)

	pendingOps = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "compete",
			Subsystem: "saved",
			Name:      "pending_ops",
			Help:      "Operations waiting for backend acknowledgement.",
		},
	)
)
