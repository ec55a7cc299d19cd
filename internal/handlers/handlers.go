// Package handlers provides the dashboard's HTTP handlers. Every /api
// response body is a remote.Result envelope.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oremus-labs/watchdesk/internal/dashboard"
	"github.com/oremus-labs/watchdesk/internal/openapi"
	"github.com/oremus-labs/watchdesk/internal/remote"
	"github.com/oremus-labs/watchdesk/internal/revalidate"
	"github.com/oremus-labs/watchdesk/internal/store"
)

// Backend is the remote client surface the handlers depend on.
type Backend interface {
	dashboard.Backend
	GetWatchlist(ctx context.Context, id string) remote.Result[remote.Watchlist]
	CreateWatchlist(ctx context.Context, in remote.WatchlistInput) remote.Result[remote.Watchlist]
	UpdateWatchlist(ctx context.Context, id string, in remote.WatchlistInput) remote.Result[remote.Watchlist]
	DeleteWatchlist(ctx context.Context, id string) remote.Result[remote.Empty]
	AddTerm(ctx context.Context, watchlistID string, in remote.TermInput) remote.Result[remote.WatchlistTerm]
	DeleteTerm(ctx context.Context, watchlistID, termID string) remote.Result[remote.Empty]
	SimulateEvent(ctx context.Context, in remote.SimulateEventInput) remote.Result[remote.Event]
	GetEventAnalysis(ctx context.Context, eventID string) remote.Result[[]remote.AIAnalysis]
	AnalyzeEvent(ctx context.Context, eventID string) remote.Result[remote.AIAnalysis]
}

// Bus publishes and streams revalidation events.
type Bus interface {
	Publish(ctx context.Context, evt revalidate.Event) error
	Subscribe(ctx context.Context) (<-chan revalidate.Event, func())
}

// ActivityLog persists mutations.
type ActivityLog interface {
	AppendActivity(ctx context.Context, entry *store.Activity) error
	ListActivity(ctx context.Context, limit int) ([]store.Activity, error)
}

// Options configures handler runtime behavior.
type Options struct {
	ActivityLimit int
	Logger        *slog.Logger
	// Heartbeat is the interval between keep-alive comments on /stream.
	Heartbeat time.Duration
}

// Handler encapsulates dependencies for HTTP handlers.
type Handler struct {
	backend  Backend
	bus      Bus
	activity ActivityLog
	logger   *slog.Logger
	opts     Options
}

// New creates a Handler. bus and activity may be nil.
func New(backend Backend, bus Bus, activity ActivityLog, opts Options) *Handler {
	if opts.ActivityLimit <= 0 {
		opts.ActivityLimit = 100
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = 25 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		backend:  backend,
		bus:      bus,
		activity: activity,
		logger:   logger,
		opts:     opts,
	}
}

// Healthz reports that the dashboard process itself is alive.
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// OpenAPISpec serves the dashboard API description as JSON, or as the
// embedded YAML with ?format=yaml.
func (h *Handler) OpenAPISpec(c *gin.Context) {
	if c.Query("format") == "yaml" {
		c.Data(http.StatusOK, "application/yaml", openapi.YAML())
		return
	}
	data, err := openapi.JSON()
	if err != nil {
		h.logger.Error("render openapi document", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "openapi document unavailable"})
		return
	}
	c.Data(http.StatusOK, "application/json", data)
}

// Health proxies the backend health probe and adds the classified state.
func (h *Handler) Health(c *gin.Context) {
	res := h.backend.Health(c.Request.Context())
	body, err := envelopeMap(res)
	if err != nil {
		h.logger.Error("encode health envelope", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	body["state"] = dashboard.ClassifyResult(res)
	c.JSON(statusFor(res.Success, res.Kind, res.Status, http.StatusOK), body)
}

// Summary returns the home view aggregate.
func (h *Handler) Summary(c *gin.Context) {
	respond(c, dashboard.BuildSummary(c.Request.Context(), h.backend), http.StatusOK)
}

// ListActivity returns the newest entries of the activity log.
func (h *Handler) ListActivity(c *gin.Context) {
	limit := h.opts.ActivityLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respond(c, remote.Fail[[]store.Activity](&remote.Error{
				Kind:    remote.KindValidation,
				Message: "El límite debe ser un entero positivo",
			}), http.StatusOK)
			return
		}
		limit = n
	}
	if h.activity == nil {
		respond(c, remote.OK([]store.Activity{}), http.StatusOK)
		return
	}
	entries, err := h.activity.ListActivity(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("list activity", "error", err)
		respond(c, remote.Fail[[]store.Activity](err), http.StatusOK)
		return
	}
	respond(c, remote.OK(entries), http.StatusOK)
}

// respond writes an envelope with the HTTP status it maps to.
func respond[T any](c *gin.Context, res remote.Result[T], okStatus int) {
	c.JSON(statusFor(res.Success, res.Kind, res.Status, okStatus), res)
}

// statusFor maps an envelope onto the dashboard's HTTP status.
func statusFor(success bool, kind remote.Kind, upstream, okStatus int) int {
	if success {
		return okStatus
	}
	switch kind {
	case remote.KindValidation:
		return http.StatusBadRequest
	case remote.KindHTTP:
		if upstream >= 400 && upstream <= 599 {
			return upstream
		}
		return http.StatusBadGateway
	case remote.KindConnectivity, remote.KindMalformed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func envelopeMap[T any](res remote.Result[T]) (map[string]interface{}, error) {
	raw, err := json.Marshal(res)
	if err != nil {
		return nil, err
	}
	var body map[string]interface{}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, err
	}
	return body, nil
}

func requestID(c *gin.Context) string {
	if v, ok := c.Get("requestID"); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return c.GetHeader("X-Request-ID")
}

// invalidBody is the envelope for a request body that is not valid JSON.
func invalidBody[T any](err error) remote.Result[T] {
	return remote.Fail[T](&remote.Error{
		Kind:    remote.KindValidation,
		Message: "Cuerpo de la solicitud inválido",
		Err:     err,
	})
}
