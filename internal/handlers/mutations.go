package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oremus-labs/watchdesk/internal/remote"
	"github.com/oremus-labs/watchdesk/internal/revalidate"
	"github.com/oremus-labs/watchdesk/internal/store"
)

// mutation describes the bookkeeping done after a write.
type mutation struct {
	action     string
	resource   string
	resourceID string
	event      string
	// pathID selects the revalidated detail view.
	pathID string
}

// settle records the mutation in the activity log and, on success,
// publishes the revalidation event. Neither step can fail the request.
func settle[T any](c *gin.Context, h *Handler, m mutation, res remote.Result[T]) {
	ctx := context.WithoutCancel(c.Request.Context())
	if h.activity != nil {
		entry := &store.Activity{
			Action:     m.action,
			Resource:   m.resource,
			ResourceID: m.resourceID,
			Success:    res.Success,
			Error:      res.Error,
			RequestID:  requestID(c),
		}
		if !res.Success {
			entry.Metadata = map[string]interface{}{"kind": string(res.Kind), "status": res.Status}
		}
		if err := h.activity.AppendActivity(ctx, entry); err != nil {
			h.logger.Warn("record activity failed", "action", m.action, "resource", m.resource, "error", err)
		}
	}
	if !res.Success || h.bus == nil {
		return
	}
	evt := revalidate.Mutation(m.event, m.pathID, res.Data)
	if err := h.bus.Publish(ctx, evt); err != nil {
		h.logger.Warn("publish revalidation failed", "type", m.event, "error", err)
	}
}

// ListWatchlists returns every watchlist.
func (h *Handler) ListWatchlists(c *gin.Context) {
	respond(c, h.backend.ListWatchlists(c.Request.Context()), http.StatusOK)
}

// GetWatchlist returns one watchlist.
func (h *Handler) GetWatchlist(c *gin.Context) {
	respond(c, h.backend.GetWatchlist(c.Request.Context(), c.Param("id")), http.StatusOK)
}

// CreateWatchlist creates a watchlist.
func (h *Handler) CreateWatchlist(c *gin.Context) {
	var in remote.WatchlistInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond(c, invalidBody[remote.Watchlist](err), http.StatusCreated)
		return
	}
	res := h.backend.CreateWatchlist(c.Request.Context(), in)
	settle(c, h, mutation{
		action:     "create",
		resource:   "watchlist",
		resourceID: res.Data.ID,
		event:      revalidate.TypeWatchlistCreated,
	}, res)
	respond(c, res, http.StatusCreated)
}

// UpdateWatchlist replaces a watchlist's fields.
func (h *Handler) UpdateWatchlist(c *gin.Context) {
	id := c.Param("id")
	var in remote.WatchlistInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond(c, invalidBody[remote.Watchlist](err), http.StatusOK)
		return
	}
	res := h.backend.UpdateWatchlist(c.Request.Context(), id, in)
	settle(c, h, mutation{
		action:     "update",
		resource:   "watchlist",
		resourceID: id,
		event:      revalidate.TypeWatchlistUpdated,
		pathID:     id,
	}, res)
	respond(c, res, http.StatusOK)
}

// DeleteWatchlist removes a watchlist.
func (h *Handler) DeleteWatchlist(c *gin.Context) {
	id := c.Param("id")
	res := h.backend.DeleteWatchlist(c.Request.Context(), id)
	settle(c, h, mutation{
		action:     "delete",
		resource:   "watchlist",
		resourceID: id,
		event:      revalidate.TypeWatchlistDeleted,
	}, res)
	respond(c, res, http.StatusOK)
}

// AddTerm attaches a term to a watchlist.
func (h *Handler) AddTerm(c *gin.Context) {
	id := c.Param("id")
	var in remote.TermInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond(c, invalidBody[remote.WatchlistTerm](err), http.StatusCreated)
		return
	}
	res := h.backend.AddTerm(c.Request.Context(), id, in)
	settle(c, h, mutation{
		action:     "add",
		resource:   "term",
		resourceID: res.Data.ID,
		event:      revalidate.TypeTermAdded,
		pathID:     id,
	}, res)
	respond(c, res, http.StatusCreated)
}

// DeleteTerm detaches a term from a watchlist.
func (h *Handler) DeleteTerm(c *gin.Context) {
	id, termID := c.Param("id"), c.Param("termId")
	res := h.backend.DeleteTerm(c.Request.Context(), id, termID)
	settle(c, h, mutation{
		action:     "delete",
		resource:   "term",
		resourceID: termID,
		event:      revalidate.TypeTermDeleted,
		pathID:     id,
	}, res)
	respond(c, res, http.StatusOK)
}

// ListEvents returns events, optionally filtered by ?severity=.
func (h *Handler) ListEvents(c *gin.Context) {
	sev := remote.Severity(strings.ToUpper(strings.TrimSpace(c.Query("severity"))))
	if sev != "" && !sev.Valid() {
		respond(c, remote.Fail[[]remote.Event](&remote.Error{
			Kind:    remote.KindValidation,
			Message: "La severidad debe ser LOW, MEDIUM, HIGH o CRITICAL",
		}), http.StatusOK)
		return
	}
	res := h.backend.ListEvents(c.Request.Context())
	if sev != "" && res.Success {
		res.Data = FilterEvents(res.Data, sev)
	}
	respond(c, res, http.StatusOK)
}

// SimulateEvent asks the backend to ingest a synthetic event.
func (h *Handler) SimulateEvent(c *gin.Context) {
	var in remote.SimulateEventInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond(c, invalidBody[remote.Event](err), http.StatusCreated)
		return
	}
	res := h.backend.SimulateEvent(c.Request.Context(), in)
	settle(c, h, mutation{
		action:     "simulate",
		resource:   "event",
		resourceID: res.Data.ID,
		event:      revalidate.TypeEventSimulated,
	}, res)
	respond(c, res, http.StatusCreated)
}

// GetEventAnalysis lists analyses for an event.
func (h *Handler) GetEventAnalysis(c *gin.Context) {
	respond(c, h.backend.GetEventAnalysis(c.Request.Context(), c.Param("id")), http.StatusOK)
}

// AnalyzeEvent requests a new analysis.
func (h *Handler) AnalyzeEvent(c *gin.Context) {
	id := c.Param("id")
	res := h.backend.AnalyzeEvent(c.Request.Context(), id)
	settle(c, h, mutation{
		action:     "analyze",
		resource:   "event",
		resourceID: id,
		event:      revalidate.TypeEventAnalyzed,
		pathID:     id,
	}, res)
	respond(c, res, http.StatusCreated)
}

// FilterEvents keeps events of the given severity, preserving order.
func FilterEvents(events []remote.Event, severity remote.Severity) []remote.Event {
	out := make([]remote.Event, 0, len(events))
	for _, e := range events {
		if e.Severity == severity {
			out = append(out, e)
		}
	}
	return out
}
