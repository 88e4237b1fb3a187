package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	OutboxEntriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edusync_outbox_entries_total",
			Help: "Outbox entry lifecycle counter by stage and entity",
		},
		[]string{"stage", "entity"}, // enqueued|synced|failed|abandoned
	)

	OutboxPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "edusync_outbox_pending",
			Help: "Outbox entries currently awaiting sync",
		},
	)

	SyncPassDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "edusync_sync_pass_duration_seconds",
			Help:    "Duration of a full outbox drain pass",
			Buckets: prometheus.DefBuckets,
		},
	)

	ConnectivityFlips = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edusync_connectivity_flips_total",
			Help: "Connectivity transitions by target state",
		},
		[]string{"to"}, // online|offline
	)
)

var registerOnce sync.Once

// MustRegister registers the collectors exactly once; later calls against the
// same process are no-ops so restarting the HTTP surface cannot panic.
func MustRegister(r prometheus.Registerer) {
	registerOnce.Do(func() {
		r.MustRegister(
			OutboxEntriesTotal,
			OutboxPending,
			SyncPassDuration,
			ConnectivityFlips,
		)
	})
}
