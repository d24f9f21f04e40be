package netmon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sahajch/tillsync/internal/events"
)

func TestSetOnlineEmitsTransitionsOnce(t *testing.T) {
	bus := events.NewBus()
	m := New(nil, time.Second, bus)

	var online, offline int
	bus.Subscribe(events.WentOnline, func(any) { online++ })
	bus.Subscribe(events.WentOffline, func(any) { offline++ })

	if !m.Online() {
		t.Fatal("monitor should start online")
	}

	m.SetOnline(false)
	m.SetOnline(false) // same state, no second event
	if offline != 1 {
		t.Errorf("wentOffline fired %d times, want 1", offline)
	}
	if m.Online() {
		t.Error("Online() = true after going offline")
	}

	m.SetOnline(true)
	m.SetOnline(true)
	if online != 1 {
		t.Errorf("wentOnline fired %d times, want 1", online)
	}
	if !m.Online() {
		t.Error("Online() = false after coming back")
	}
}

func TestHTTPProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable) // any response still means reachable
	}))
	defer srv.Close()

	probe := HTTPProbe(srv.Client(), srv.URL+"/health")
	if !probe(context.Background()) {
		t.Error("probe should report reachable for any HTTP response")
	}

	srv.Close()
	if probe(context.Background()) {
		t.Error("probe should report unreachable after server shutdown")
	}
}
