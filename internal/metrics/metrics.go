// Package metrics registers the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransactionsSubmitted counts ledger submissions by kind and initial status.
	TransactionsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "messbook_transactions_submitted_total",
		Help: "Deposits and expenses submitted to the ledger.",
	}, []string{"kind", "status"})

	// TransactionTransitions counts workflow transitions (approve, reject,
	// delete, request_deletion, approve_deletion, reject_deletion).
	TransactionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "messbook_transaction_transitions_total",
		Help: "Approval-workflow transitions applied to ledger records.",
	}, []string{"action"})

	// PushesSent counts per-token push delivery attempts by outcome.
	PushesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "messbook_pushes_sent_total",
		Help: "Per-token push delivery attempts.",
	}, []string{"outcome"})

	// TokensPruned counts device tokens removed after the push service
	// reported them permanently invalid.
	TokensPruned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "messbook_tokens_pruned_total",
		Help: "Device tokens removed due to invalid-registration failures.",
	})
)
