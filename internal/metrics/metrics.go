// Package metrics exposes Prometheus collectors for the custody engine
// and the HTTP layer. Served on /metrics by the server binary.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransactionsTotal counts successfully recorded ledger transactions by type.
	TransactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "toolcrib_transactions_total",
		Help: "Ledger transactions recorded, by type.",
	}, []string{"type"})

	// TransactionRejections counts transactions rejected by a business rule.
	TransactionRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "toolcrib_transaction_rejections_total",
		Help: "Transactions rejected by validation, by reason.",
	}, []string{"reason"})

	// OverdueFlagged counts checkouts newly promoted to overdue by sweeps.
	OverdueFlagged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "toolcrib_overdue_flagged_total",
		Help: "Open checkouts newly flagged overdue.",
	})

	// HTTPDuration tracks request latency by method and response status.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "toolcrib_http_request_duration_seconds",
		Help:    "HTTP request duration.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "status"})
)

// Rejection reasons.
const (
	ReasonInsufficientStock = "insufficient_stock"
	ReasonInvalidCheckIn    = "invalid_check_in"
	ReasonNotFound          = "not_found"
	ReasonValidation        = "validation"
)
