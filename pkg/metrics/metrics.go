package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// OrdersCreatedTotal counts successfully committed orders.
	OrdersCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "agrimarket",
			Name:      "orders_created_total",
			Help:      "Total orders created.",
		},
	)

	// OrdersRejectedTotal counts rejected order attempts by reason.
	OrdersRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agrimarket",
			Name:      "orders_rejected_total",
			Help:      "Total rejected order attempts by reason.",
		},
		[]string{"reason"},
	)

	// LedgerOpsTotal counts ledger operations by type and outcome.
	LedgerOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agrimarket",
			Name:      "ledger_operations_total",
			Help:      "Total wallet ledger operations by type and outcome.",
		},
		[]string{"type", "outcome"},
	)

	// EscrowSettlementsTotal counts escrow settlements by outcome.
	EscrowSettlementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agrimarket",
			Name:      "escrow_settlements_total",
			Help:      "Total escrow settlements by outcome (released, refunded).",
		},
		[]string{"outcome"},
	)

	// EventPublishFailuresTotal counts best-effort event bus publish failures.
	EventPublishFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agrimarket",
			Name:      "event_publish_failures_total",
			Help:      "Total event bus publish failures by topic.",
		},
		[]string{"topic"},
	)
)

func init() {
	prometheus.MustRegister(
		OrdersCreatedTotal,
		OrdersRejectedTotal,
		LedgerOpsTotal,
		EscrowSettlementsTotal,
		EventPublishFailuresTotal,
	)
}
