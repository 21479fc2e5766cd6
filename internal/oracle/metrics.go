package oracle

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// QueriesTotal counts successful action-log queries.
	QueriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pricebet_oracle_queries_total",
		Help: "Total number of successful oracle action-log queries",
	})

	// QueryErrorsTotal counts failed action-log queries. Failures are
	// retried on the next poll cycle, never escalated.
	QueryErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pricebet_oracle_query_errors_total",
		Help: "Total number of failed oracle action-log queries",
	})

	// ParseFailuresTotal counts log entries whose embedded fields could
	// not be parsed and were treated as no data.
	ParseFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pricebet_oracle_parse_failures_total",
		Help: "Total number of malformed oracle log entries treated as no data",
	})
)
