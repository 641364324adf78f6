package mirror

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pushesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "akms",
		Subsystem: "sync",
		Name:      "pushes_total",
		Help:      "Outbox entries pushed to the remote store, by entity, operation and result.",
	}, []string{"entity", "op", "result"})

	outboxEntries = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "akms",
		Subsystem: "sync",
		Name:      "outbox_entries",
		Help:      "Outbox entries by state after the last flush.",
	}, []string{"state"})

	migratedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "akms",
		Subsystem: "sync",
		Name:      "migrated_rows_total",
		Help:      "Rows written to the remote store by bulk migration.",
	}, []string{"entity"})
)
