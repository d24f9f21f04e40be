// Package syncer drains the pending transaction queue against the remote
// billing API whenever the device is online.
package syncer

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/sahajch/tillsync/internal/events"
	"github.com/sahajch/tillsync/internal/queue"
)

// submitter is the slice of the remote client the coordinator needs.
type submitter interface {
	SubmitBill(ctx context.Context, payload []byte, token string) (string, error)
}

// connectivity is the slice of the network monitor the coordinator needs.
type connectivity interface {
	Online() bool
}

// refresher is invoked after a non-empty drain so read models pick up the
// newly synced sales.
type refresher interface {
	RefreshAll(ctx context.Context, force bool)
}

// Coordinator drains the queue sequentially, never in parallel, so sales
// are submitted in the order they were made and two in-flight submissions
// cannot race against the same customer or token.
type Coordinator struct {
	queue    *queue.Queue
	remote   submitter
	monitor  connectivity
	refresh  refresher // may be nil
	bus      *events.Bus
	interval time.Duration
	metrics  *Metrics

	draining atomic.Bool
}

// New creates a coordinator. refresh may be nil when no cache refresher is
// wired (e.g. in tests).
func New(q *queue.Queue, remote submitter, monitor connectivity, refresh refresher, bus *events.Bus, interval time.Duration, metrics *Metrics) *Coordinator {
	return &Coordinator{
		queue:    q,
		remote:   remote,
		monitor:  monitor,
		refresh:  refresh,
		bus:      bus,
		interval: interval,
		metrics:  metrics,
	}
}

// Draining reports whether a drain cycle is currently in flight.
func (c *Coordinator) Draining() bool {
	return c.draining.Load()
}

// Drain runs one full pass over the queue. It is safe to invoke repeatedly
// and concurrently: a trigger that arrives while a drain is in flight is
// coalesced into it rather than starting a second pass over the same
// snapshot. An empty snapshot skips the cycle entirely, so a page load with
// nothing queued emits no sync events at all.
//
// A drain in progress is never cancelled mid-record; ctx only suppresses
// further submissions between records.
func (c *Coordinator) Drain(ctx context.Context) {
	if !c.monitor.Online() {
		return
	}
	if !c.draining.CompareAndSwap(false, true) {
		return
	}
	defer c.draining.Store(false)

	snapshot, err := c.queue.ListPending(ctx)
	if err != nil {
		slog.Warn("failed to snapshot queue, skipping drain", "error", err)
		return
	}
	if len(snapshot) == 0 {
		return
	}

	start := time.Now()
	c.bus.Publish(events.SyncStarted, nil)
	slog.Info("draining offline queue", "queued", len(snapshot))

	synced, failed := 0, 0
	for _, tx := range snapshot {
		select {
		case <-ctx.Done():
			slog.Info("drain interrupted", "synced", synced, "failed", failed)
			return
		default:
		}

		billID, err := c.remote.SubmitBill(ctx, tx.Payload, tx.AuthToken)
		if err != nil {
			// One bad record must not abort the rest of the batch.
			failed++
			if c.metrics != nil {
				c.metrics.FailedTotal.Inc()
			}
			slog.Warn("sale submission failed, will retry next cycle",
				"id", tx.ID, "retries", tx.RetryCount, "error", err)
			if err := c.queue.MarkFailed(ctx, tx.ID); err != nil {
				slog.Warn("failed to mark sale failed", "id", tx.ID, "error", err)
			}
			continue
		}

		synced++
		if c.metrics != nil {
			c.metrics.SyncedTotal.Inc()
		}
		slog.Info("sale synced", "id", tx.ID, "bill", billID)
		if err := c.queue.Remove(ctx, tx.ID); err != nil {
			slog.Warn("failed to remove synced sale", "id", tx.ID, "error", err)
		}
	}

	if c.metrics != nil {
		c.metrics.DrainSeconds.Observe(time.Since(start).Seconds())
		c.metrics.PendingQueued.Set(float64(c.queue.Count(ctx)))
	}
	c.bus.Publish(events.SyncFinished, events.SyncSummary{Synced: synced, Failed: failed})
	slog.Info("drain finished", "synced", synced, "failed", failed)

	if c.refresh != nil {
		c.refresh.RefreshAll(ctx, true)
	}
}

// Run subscribes to wentOnline and drains on a fixed polling interval until
// ctx is cancelled. The subscription and the ticker are both torn down with
// the context, so no timer outlives its owning session.
func (c *Coordinator) Run(ctx context.Context) {
	unsubscribe := c.bus.Subscribe(events.WentOnline, func(any) {
		go c.Drain(ctx)
	})
	defer unsubscribe()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Drain(ctx)
		}
	}
}
