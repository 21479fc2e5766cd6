package settlement

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// DetectionsTotal counts qualifying oracle updates detected.
	DetectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pricebet_settlement_detections_total",
		Help: "Total number of qualifying oracle updates detected",
	})

	// SettlementsTotal counts successful ledger settlements.
	SettlementsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pricebet_settlements_total",
		Help: "Total number of successful market settlements",
	})

	// SettlementFailuresTotal counts transient settlement failures that
	// will be retried next cycle.
	SettlementFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pricebet_settlement_failures_total",
		Help: "Total number of transient settlement failures",
	})

	// SettlementRacesLostTotal counts attempts rejected because another
	// instance settled first. Expected under redundant deployment.
	SettlementRacesLostTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pricebet_settlement_races_lost_total",
		Help: "Total number of settlement attempts that lost the race to another instance",
	})

	// CycleDurationSeconds tracks orchestrator cycle latency.
	CycleDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pricebet_settlement_cycle_duration_seconds",
		Help:    "Duration of settlement orchestrator poll cycles",
		Buckets: prometheus.DefBuckets,
	})
)
