package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// OperationsTotal counts ledger operations by operation and result.
	// Guard rejections are expected outcomes when monitors race, so
	// they get their own result label rather than an error counter.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricebet_ledger_operations_total",
			Help: "Total number of ledger operations by operation and result",
		},
		[]string{"operation", "result"},
	)

	// WagerVolume accumulates gross wager volume in minor units.
	WagerVolume = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pricebet_ledger_wager_volume_minor_units",
		Help: "Gross wager volume accepted, in minor units",
	})
)
