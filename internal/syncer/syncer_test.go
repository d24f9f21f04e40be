package syncer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sahajch/tillsync/internal/events"
	"github.com/sahajch/tillsync/internal/models"
	"github.com/sahajch/tillsync/internal/queue"
	"github.com/sahajch/tillsync/internal/storage/sqlite"
)

type stubMonitor struct{ online bool }

func (m *stubMonitor) Online() bool { return m.online }

// stubRemote records every submission and can fail selected payloads.
type stubRemote struct {
	mu       sync.Mutex
	submits  []string // auth tokens in submission order
	failWhen func(attempt int) error
	gate     chan struct{} // if set, submission blocks until the gate closes
}

func (r *stubRemote) SubmitBill(ctx context.Context, payload []byte, token string) (string, error) {
	if r.gate != nil {
		<-r.gate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	attempt := len(r.submits)
	r.submits = append(r.submits, token)
	if r.failWhen != nil {
		if err := r.failWhen(attempt); err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("bill-%d", attempt), nil
}

func (r *stubRemote) submissions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.submits...)
}

func newTestQueue(t *testing.T) *queue.Queue {
	t.Helper()
	tempDir, err := os.MkdirTemp("", "tillsync-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := sqlite.Open(filepath.Join(tempDir, "test.db"), 1)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return queue.New(store)
}

func enqueueN(t *testing.T, q *queue.Queue, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		payload := &models.BillPayload{Reference: fmt.Sprintf("ref-%d", i), GrandTotal: 118}
		if _, err := q.Enqueue(context.Background(), payload, fmt.Sprintf("tok-%d", i)); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}
}

func newCoordinator(q *queue.Queue, remote *stubRemote, online bool, bus *events.Bus) *Coordinator {
	return New(q, remote, &stubMonitor{online: online}, nil, bus,
		time.Hour, NewMetrics(prometheus.NewRegistry()))
}

func TestDrainPartialFailureIsolation(t *testing.T) {
	q := newTestQueue(t)
	enqueueN(t, q, 3)

	remote := &stubRemote{failWhen: func(attempt int) error {
		if attempt == 1 {
			return errors.New("boom")
		}
		return nil
	}}
	bus := events.NewBus()

	var summary events.SyncSummary
	bus.Subscribe(events.SyncFinished, func(p any) { summary = p.(events.SyncSummary) })

	c := newCoordinator(q, remote, true, bus)
	c.Drain(context.Background())

	if summary.Synced != 2 || summary.Failed != 1 {
		t.Errorf("summary = %+v, want {Synced:2 Failed:1}", summary)
	}

	left, _ := q.ListPending(context.Background())
	if len(left) != 1 {
		t.Fatalf("expected 1 record retained, got %d", len(left))
	}
	if left[0].Status != models.TxFailed || left[0].RetryCount != 1 {
		t.Errorf("failed record = %+v, want failed with retryCount 1", left[0])
	}
}

func TestDrainCoalescesConcurrentTriggers(t *testing.T) {
	q := newTestQueue(t)
	enqueueN(t, q, 2)

	gate := make(chan struct{})
	remote := &stubRemote{gate: gate}
	c := newCoordinator(q, remote, true, events.NewBus())

	ctx := context.Background()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); c.Drain(ctx) }()

	// Give the first drain time to take the in-flight guard, then fire the
	// second trigger while it is still blocked mid-submission.
	time.Sleep(50 * time.Millisecond)
	go func() { defer wg.Done(); c.Drain(ctx) }()
	time.Sleep(50 * time.Millisecond)

	close(gate)
	wg.Wait()

	if got := len(remote.submissions()); got != 2 {
		t.Errorf("submitted %d times, want exactly 2 (one per queued sale)", got)
	}
	if n := q.Count(ctx); n != 0 {
		t.Errorf("queue count = %d after drain, want 0", n)
	}
}

func TestDrainSkipsEmptyQueueSilently(t *testing.T) {
	q := newTestQueue(t)
	bus := events.NewBus()

	fired := 0
	bus.Subscribe(events.SyncStarted, func(any) { fired++ })
	bus.Subscribe(events.SyncFinished, func(any) { fired++ })

	c := newCoordinator(q, &stubRemote{}, true, bus)
	c.Drain(context.Background())

	if fired != 0 {
		t.Errorf("sync events fired on empty queue: %d", fired)
	}
}

func TestDrainDoesNothingOffline(t *testing.T) {
	q := newTestQueue(t)
	enqueueN(t, q, 1)

	remote := &stubRemote{}
	c := newCoordinator(q, remote, false, events.NewBus())
	c.Drain(context.Background())

	if len(remote.submissions()) != 0 {
		t.Error("drain submitted while offline")
	}
	if n := q.Count(context.Background()); n != 1 {
		t.Errorf("queue count = %d, want untouched 1", n)
	}
}

func TestRunDrainsOnWentOnline(t *testing.T) {
	q := newTestQueue(t)
	enqueueN(t, q, 1)

	remote := &stubRemote{}
	bus := events.NewBus()
	c := newCoordinator(q, remote, true, bus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)
	time.Sleep(20 * time.Millisecond) // let Run subscribe

	bus.Publish(events.WentOnline, nil)
	bus.Publish(events.WentOnline, nil) // spurious double-fire must be idempotent

	deadline := time.After(2 * time.Second)
	for q.Count(ctx) != 0 {
		select {
		case <-deadline:
			t.Fatal("queue not drained after wentOnline")
		case <-time.After(10 * time.Millisecond):
		}
	}

	if got := len(remote.submissions()); got != 1 {
		t.Errorf("submitted %d times, want exactly 1", got)
	}
}
