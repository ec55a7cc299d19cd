// Package dashboard aggregates backend data for the dashboard home view and
// keeps track of backend health.
package dashboard

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/oremus-labs/watchdesk/internal/remote"
)

// RecentLimit caps the events and watchlists shown on the home view.
const RecentLimit = 3

// Backend is the subset of the remote client used here.
type Backend interface {
	Health(ctx context.Context) remote.Result[remote.HealthStatus]
	ListWatchlists(ctx context.Context) remote.Result[[]remote.Watchlist]
	ListEvents(ctx context.Context) remote.Result[[]remote.Event]
}

// Summary is the home view's aggregate.
type Summary struct {
	TotalWatchlists    int                `json:"totalWatchlists"`
	TotalEvents        int                `json:"totalEvents"`
	CriticalEvents     int                `json:"criticalEvents"`
	HighSeverityEvents int                `json:"highSeverityEvents"`
	RecentEvents       []remote.Event     `json:"recentEvents"`
	Watchlists         []remote.Watchlist `json:"watchlists"`
	Errors             SummaryErrors      `json:"errors"`
}

// SummaryErrors carries the failure message of each half, if any.
type SummaryErrors struct {
	Watchlists string `json:"watchlists,omitempty"`
	Events     string `json:"events,omitempty"`
}

// BuildSummary fetches watchlists and events concurrently and aggregates
// them. It fails only when both fetches fail.
func BuildSummary(ctx context.Context, backend Backend) remote.Result[Summary] {
	var (
		g          errgroup.Group
		watchlists remote.Result[[]remote.Watchlist]
		events     remote.Result[[]remote.Event]
	)
	g.Go(func() error {
		watchlists = backend.ListWatchlists(ctx)
		return nil
	})
	g.Go(func() error {
		events = backend.ListEvents(ctx)
		return nil
	})
	_ = g.Wait()

	if !watchlists.Success && !events.Success {
		// Both halves failed; report the events failure.
		return remote.Fail[Summary](events.Err())
	}

	s := Summary{
		RecentEvents: []remote.Event{},
		Watchlists:   []remote.Watchlist{},
	}
	if watchlists.Success {
		s.TotalWatchlists = len(watchlists.Data)
		s.Watchlists = head(watchlists.Data, RecentLimit)
	} else {
		s.Errors.Watchlists = watchlists.Error
	}
	if events.Success {
		s.TotalEvents = len(events.Data)
		for _, e := range events.Data {
			switch e.Severity {
			case remote.SeverityCritical:
				s.CriticalEvents++
			case remote.SeverityHigh:
				s.HighSeverityEvents++
			}
		}
		s.RecentEvents = head(events.Data, RecentLimit)
	} else {
		s.Errors.Events = events.Error
	}
	return remote.OK(s)
}

func head[T any](items []T, n int) []T {
	if len(items) < n {
		n = len(items)
	}
	out := make([]T, n)
	copy(out, items[:n])
	return out
}
