// Package metrics exposes the engine's Prometheus counters. Everything is
// registered on the default registry and served by promhttp in cmd/server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransactionsCreated counts committed transactions, labeled by
	// whether they were shared with a group.
	TransactionsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settleup_transactions_created_total",
		Help: "Transactions created, by shared/personal.",
	}, []string{"shared"})

	// SettlementsConfirmed counts settlement confirmations that applied.
	SettlementsConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settleup_settlements_confirmed_total",
		Help: "Settlement edges confirmed and applied to the ledger.",
	})

	// SettlementsStale counts confirmations rejected by the optimistic
	// concurrency check.
	SettlementsStale = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settleup_settlements_stale_total",
		Help: "Settlement confirmations rejected as stale.",
	})

	// RecurringMaterialized counts transactions created from rules.
	RecurringMaterialized = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settleup_recurring_materialized_total",
		Help: "Transactions materialized from recurring rules.",
	})

	// RatesMissing counts normalizations that fell back to the original
	// amount because no FX rate was available.
	RatesMissing = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settleup_fx_rate_missing_total",
		Help: "Amount normalizations that found no FX rate.",
	})
)
