package remote

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oremus-labs/watchdesk/internal/forms"
)

// Health probes the backend's /health endpoint.
func (c *Client) Health(ctx context.Context) Result[HealthStatus] {
	return call[HealthStatus](ctx, c, request{operation: "health", method: http.MethodGet, path: "/health"})
}

// ListWatchlists returns every watchlist with its terms.
func (c *Client) ListWatchlists(ctx context.Context) Result[[]Watchlist] {
	return call[[]Watchlist](ctx, c, request{operation: "listWatchlists", method: http.MethodGet, path: "/api/watchlists"})
}

// GetWatchlist fetches a single watchlist.
func (c *Client) GetWatchlist(ctx context.Context, id string) Result[Watchlist] {
	r := request{operation: "getWatchlist", method: http.MethodGet, path: "/api/watchlists/" + escape(id)}
	if err := forms.IDs(id); err != nil {
		return reject[Watchlist](c, r, err)
	}
	return call[Watchlist](ctx, c, r)
}

// CreateWatchlist creates a watchlist after validating its fields locally.
func (c *Client) CreateWatchlist(ctx context.Context, in WatchlistInput) Result[Watchlist] {
	in = trimWatchlist(in)
	r := request{operation: "createWatchlist", method: http.MethodPost, path: "/api/watchlists", body: in}
	if err := c.forms.Watchlist(in.Name, in.Description); err != nil {
		return reject[Watchlist](c, r, err)
	}
	return call[Watchlist](ctx, c, r)
}

// UpdateWatchlist replaces a watchlist's name and description.
func (c *Client) UpdateWatchlist(ctx context.Context, id string, in WatchlistInput) Result[Watchlist] {
	in = trimWatchlist(in)
	r := request{operation: "updateWatchlist", method: http.MethodPut, path: "/api/watchlists/" + escape(id), body: in}
	if err := forms.IDs(id); err != nil {
		return reject[Watchlist](c, r, err)
	}
	if err := c.forms.Watchlist(in.Name, in.Description); err != nil {
		return reject[Watchlist](c, r, err)
	}
	return call[Watchlist](ctx, c, r)
}

// DeleteWatchlist removes a watchlist.
func (c *Client) DeleteWatchlist(ctx context.Context, id string) Result[Empty] {
	r := request{operation: "deleteWatchlist", method: http.MethodDelete, path: "/api/watchlists/" + escape(id)}
	if err := forms.IDs(id); err != nil {
		return reject[Empty](c, r, err)
	}
	return call[Empty](ctx, c, r)
}

// AddTerm attaches a term to a watchlist.
func (c *Client) AddTerm(ctx context.Context, watchlistID string, in TermInput) Result[WatchlistTerm] {
	in.Term = strings.TrimSpace(in.Term)
	r := request{
		operation: "addTerm",
		method:    http.MethodPost,
		path:      "/api/watchlists/" + escape(watchlistID) + "/terms",
		body:      in,
	}
	if err := forms.IDs(watchlistID); err != nil {
		return reject[WatchlistTerm](c, r, err)
	}
	if err := c.forms.Term(in.Term); err != nil {
		return reject[WatchlistTerm](c, r, err)
	}
	return call[WatchlistTerm](ctx, c, r)
}

// DeleteTerm detaches a term from a watchlist.
func (c *Client) DeleteTerm(ctx context.Context, watchlistID, termID string) Result[Empty] {
	r := request{
		operation: "deleteTerm",
		method:    http.MethodDelete,
		path:      "/api/watchlists/" + escape(watchlistID) + "/terms/" + escape(termID),
	}
	if err := forms.IDs(watchlistID, termID); err != nil {
		return reject[Empty](c, r, err)
	}
	return call[Empty](ctx, c, r)
}

// ListEvents returns events in the order the backend reports them.
func (c *Client) ListEvents(ctx context.Context) Result[[]Event] {
	return call[[]Event](ctx, c, request{operation: "listEvents", method: http.MethodGet, path: "/api/events"})
}

// SimulateEvent asks the backend to ingest a synthetic event.
func (c *Client) SimulateEvent(ctx context.Context, in SimulateEventInput) Result[Event] {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Severity = Severity(strings.TrimSpace(string(in.Severity)))
	r := request{operation: "simulateEvent", method: http.MethodPost, path: "/api/events/simulate", body: in}
	if err := c.forms.Event(in.Title, in.Description, string(in.Severity)); err != nil {
		return reject[Event](c, r, err)
	}
	return call[Event](ctx, c, r)
}

// GetEventAnalysis lists the analyses produced for an event.
func (c *Client) GetEventAnalysis(ctx context.Context, eventID string) Result[[]AIAnalysis] {
	r := request{operation: "getEventAnalysis", method: http.MethodGet, path: "/api/events/" + escape(eventID) + "/analysis"}
	if err := forms.IDs(eventID); err != nil {
		return reject[[]AIAnalysis](c, r, err)
	}
	return call[[]AIAnalysis](ctx, c, r)
}

// AnalyzeEvent requests a new AI analysis of an event.
func (c *Client) AnalyzeEvent(ctx context.Context, eventID string) Result[AIAnalysis] {
	r := request{operation: "analyzeEvent", method: http.MethodPost, path: "/api/events/" + escape(eventID) + "/analyze"}
	if err := forms.IDs(eventID); err != nil {
		return reject[AIAnalysis](c, r, err)
	}
	return call[AIAnalysis](ctx, c, r)
}

// reject short-circuits a call that failed local validation.
func reject[T any](c *Client, r request, err error) Result[T] {
	return finish(c, r, "", time.Now(), 0, Fail[T](err))
}

func escape(id string) string {
	return url.PathEscape(strings.TrimSpace(id))
}

func trimWatchlist(in WatchlistInput) WatchlistInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	return in
}
