package dashboard

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/oremus-labs/watchdesk/internal/remote"
	"github.com/oremus-labs/watchdesk/internal/revalidate"
)

type fakeBackend struct {
	mu         sync.Mutex
	health     []remote.Result[remote.HealthStatus]
	watchlists remote.Result[[]remote.Watchlist]
	events     remote.Result[[]remote.Event]
}

func (f *fakeBackend) Health(context.Context) remote.Result[remote.HealthStatus] {
	f.mu.Lock()
	defer f.mu.Unlock()
	res := f.health[0]
	if len(f.health) > 1 {
		f.health = f.health[1:]
	}
	return res
}

func (f *fakeBackend) ListWatchlists(context.Context) remote.Result[[]remote.Watchlist] {
	return f.watchlists
}

func (f *fakeBackend) ListEvents(context.Context) remote.Result[[]remote.Event] {
	return f.events
}

type fakePublisher struct {
	events []revalidate.Event
}

func (f *fakePublisher) Publish(_ context.Context, evt revalidate.Event) error {
	f.events = append(f.events, evt)
	return nil
}

func sampleEvents() []remote.Event {
	return []remote.Event{
		{ID: "e1", Title: "a", Severity: remote.SeverityCritical},
		{ID: "e2", Title: "b", Severity: remote.SeverityHigh},
		{ID: "e3", Title: "c", Severity: remote.SeverityLow},
		{ID: "e4", Title: "d", Severity: remote.SeverityCritical},
		{ID: "e5", Title: "e", Severity: remote.SeverityMedium},
	}
}

func TestBuildSummaryCounts(t *testing.T) {
	backend := &fakeBackend{
		watchlists: remote.OK([]remote.Watchlist{{ID: "w1"}, {ID: "w2"}, {ID: "w3"}, {ID: "w4"}}),
		events:     remote.OK(sampleEvents()),
	}
	res := BuildSummary(context.Background(), backend)
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	s := res.Data
	if s.TotalWatchlists != 4 || s.TotalEvents != 5 || s.CriticalEvents != 2 || s.HighSeverityEvents != 1 {
		t.Fatalf("unexpected counts %+v", s)
	}
	if diff := cmp.Diff(sampleEvents()[:3], s.RecentEvents); diff != "" {
		t.Fatalf("recent events (-want +got):\n%s", diff)
	}
	if len(s.Watchlists) != 3 || s.Watchlists[0].ID != "w1" {
		t.Fatalf("unexpected watchlists %+v", s.Watchlists)
	}
}

func TestBuildSummaryPartialFailure(t *testing.T) {
	backend := &fakeBackend{
		watchlists: remote.Fail[[]remote.Watchlist](&remote.Error{Kind: remote.KindHTTP, Status: 500, Message: "boom"}),
		events:     remote.OK(sampleEvents()[:1]),
	}
	res := BuildSummary(context.Background(), backend)
	if !res.Success {
		t.Fatalf("partial failure should still succeed: %+v", res)
	}
	if res.Data.Errors.Watchlists != "boom" || res.Data.TotalWatchlists != 0 || len(res.Data.Watchlists) != 0 {
		t.Fatalf("unexpected summary %+v", res.Data)
	}
	if res.Data.TotalEvents != 1 {
		t.Fatalf("events half lost: %+v", res.Data)
	}
}

func TestBuildSummaryBothFail(t *testing.T) {
	fail := &remote.Error{Kind: remote.KindConnectivity, Message: remote.ConnectivityMessage}
	backend := &fakeBackend{
		watchlists: remote.Fail[[]remote.Watchlist](fail),
		events:     remote.Fail[[]remote.Event](fail),
	}
	res := BuildSummary(context.Background(), backend)
	if res.Success || res.Kind != remote.KindConnectivity || res.Error != remote.ConnectivityMessage {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestClassifyHealth(t *testing.T) {
	tests := map[string]HealthState{
		"ok":        StateConnected,
		"healthy":   StateConnected,
		"OK":        StateConnected,
		"error":     StateError,
		"unhealthy": StateError,
		"degraded":  StateUnknown,
		"":          StateUnknown,
	}
	for in, want := range tests {
		if got := ClassifyHealth(in); got != want {
			t.Errorf("ClassifyHealth(%q) = %s, want %s", in, got, want)
		}
	}
	failed := remote.Fail[remote.HealthStatus](&remote.Error{Kind: remote.KindConnectivity, Message: "down"})
	if got := ClassifyResult(failed); got != StateError {
		t.Errorf("failed probe classified as %s", got)
	}
}

func TestMonitorPublishesOnlyTransitions(t *testing.T) {
	ok := remote.OK(remote.HealthStatus{Status: "ok"})
	down := remote.Fail[remote.HealthStatus](&remote.Error{Kind: remote.KindConnectivity, Message: remote.ConnectivityMessage})
	backend := &fakeBackend{health: []remote.Result[remote.HealthStatus]{ok, ok, down, down, ok}}
	pub := &fakePublisher{}
	mon := NewMonitor(MonitorOptions{
		Backend:   backend,
		Publisher: pub,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	var states []HealthState
	for i := 0; i < 5; i++ {
		states = append(states, mon.Check(context.Background()).State)
	}
	want := []HealthState{StateConnected, StateConnected, StateError, StateError, StateConnected}
	if diff := cmp.Diff(want, states); diff != "" {
		t.Fatalf("states (-want +got):\n%s", diff)
	}
	if len(pub.events) != 3 {
		t.Fatalf("expected 3 transitions, got %d", len(pub.events))
	}
	for _, evt := range pub.events {
		if evt.Type != revalidate.TypeHealthChanged {
			t.Fatalf("unexpected event type %s", evt.Type)
		}
	}
	if snap := mon.Snapshot(); snap.State != StateConnected || snap.Health == nil {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestMonitorRunStopsWithContext(t *testing.T) {
	backend := &fakeBackend{health: []remote.Result[remote.HealthStatus]{remote.OK(remote.HealthStatus{Status: "ok"})}}
	mon := NewMonitor(MonitorOptions{Backend: backend, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		mon.Run(ctx)
		close(done)
	}()
	cancel()
	<-done
}
