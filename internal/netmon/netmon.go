// Package netmon tracks connectivity to the remote API and emits
// online/offline transition events.
//
// There is no ambient browser-style connectivity signal on a server, so the
// monitor derives its boolean by probing the remote health endpoint on an
// interval. SetOnline exists for push-style signals and tests. The monitor
// is an explicitly constructed instance passed into the components that need
// it; nothing here is global.
package netmon

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/sahajch/tillsync/internal/events"
)

// Probe reports whether the remote side is currently reachable.
type Probe func(ctx context.Context) bool

// Monitor holds the current connectivity boolean and publishes wentOnline /
// wentOffline on transitions. A spurious double flip to the same state emits
// nothing; consumers may still treat a repeated wentOnline as idempotent.
type Monitor struct {
	probe    Probe
	interval time.Duration
	bus      *events.Bus
	online   atomic.Bool
}

// New creates a monitor that starts out online. probe may be nil when
// transitions are driven purely through SetOnline.
func New(probe Probe, interval time.Duration, bus *events.Bus) *Monitor {
	m := &Monitor{probe: probe, interval: interval, bus: bus}
	m.online.Store(true)
	return m
}

// HTTPProbe probes url with a HEAD request. Any response at all means the
// network path is up; only transport errors count as offline.
func HTTPProbe(client *http.Client, url string) Probe {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return func(ctx context.Context) bool {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
		if err != nil {
			return false
		}
		resp, err := client.Do(req)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return true
	}
}

// Online returns the current connectivity boolean.
func (m *Monitor) Online() bool {
	return m.online.Load()
}

// SetOnline flips the boolean and publishes the transition event if the
// state actually changed.
func (m *Monitor) SetOnline(online bool) {
	if m.online.Swap(online) == online {
		return
	}
	if online {
		slog.Info("network connection restored")
		m.bus.Publish(events.WentOnline, nil)
	} else {
		slog.Info("network connection lost")
		m.bus.Publish(events.WentOffline, nil)
	}
}

// Run probes on the configured interval until ctx is cancelled. The first
// probe happens immediately so startup state is accurate.
func (m *Monitor) Run(ctx context.Context) {
	if m.probe == nil {
		<-ctx.Done()
		return
	}

	m.SetOnline(m.probe(ctx))

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.SetOnline(m.probe(ctx))
		}
	}
}
