package usecase

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ledgerEntriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "settlement",
		Name:      "ledger_entries_total",
		Help:      "Ledger entries written, by type.",
	}, []string{"type"})

	webhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "settlement",
		Name:      "webhook_events_total",
		Help:      "Authenticated webhook events, by event and outcome.",
	}, []string{"event", "outcome"})

	payoutOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "settlement",
		Name:      "payout_outcomes_total",
		Help:      "Payout execution outcomes.",
	}, []string{"outcome"})
)
