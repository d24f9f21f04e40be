package syncer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes the sync pipeline's counters. A failed item silently
// retried forever is a degraded state; the pending gauge is what makes it
// visible.
type Metrics struct {
	SyncedTotal   prometheus.Counter
	FailedTotal   prometheus.Counter
	PendingQueued prometheus.Gauge
	DrainSeconds  prometheus.Histogram
}

// NewMetrics registers the sync metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		SyncedTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "tillsync_transactions_synced_total",
			Help: "Offline transactions accepted by the remote billing API.",
		}),
		FailedTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "tillsync_transactions_failed_total",
			Help: "Submission attempts that failed and were re-queued.",
		}),
		PendingQueued: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "tillsync_transactions_pending",
			Help: "Transactions currently waiting in the offline queue.",
		}),
		DrainSeconds: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "tillsync_drain_duration_seconds",
			Help:    "Duration of one full queue drain cycle.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
