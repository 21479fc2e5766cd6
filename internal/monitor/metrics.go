package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// ActivationsTotal counts PENDING_INIT markets activated.
	ActivationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pricebet_monitor_activations_total",
		Help: "Total number of markets activated after seed verification",
	})

	// TransitionsTotal counts time-derived status transitions by target.
	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pricebet_monitor_transitions_total",
		Help: "Total number of time-derived status transitions",
	}, []string{"target"})

	// PoolSyncsTotal counts mirrored records refreshed from the ledger.
	PoolSyncsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pricebet_monitor_pool_syncs_total",
		Help: "Total number of mirrored market records refreshed from the ledger",
	})
)
