package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"

	"github.com/oremus-labs/watchdesk/internal/remote"
	"github.com/oremus-labs/watchdesk/internal/revalidate"
	"github.com/oremus-labs/watchdesk/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeBackend struct {
	health     remote.Result[remote.HealthStatus]
	watchlists remote.Result[[]remote.Watchlist]
	watchlist  remote.Result[remote.Watchlist]
	empty      remote.Result[remote.Empty]
	term       remote.Result[remote.WatchlistTerm]
	events     remote.Result[[]remote.Event]
	event      remote.Result[remote.Event]
	analyses   remote.Result[[]remote.AIAnalysis]
	analysis   remote.Result[remote.AIAnalysis]

	gotInput remote.WatchlistInput
	gotIDs   []string
}

func (f *fakeBackend) Health(context.Context) remote.Result[remote.HealthStatus] { return f.health }
func (f *fakeBackend) ListWatchlists(context.Context) remote.Result[[]remote.Watchlist] {
	return f.watchlists
}
func (f *fakeBackend) ListEvents(context.Context) remote.Result[[]remote.Event] { return f.events }
func (f *fakeBackend) GetWatchlist(_ context.Context, id string) remote.Result[remote.Watchlist] {
	f.gotIDs = append(f.gotIDs, id)
	return f.watchlist
}
func (f *fakeBackend) CreateWatchlist(_ context.Context, in remote.WatchlistInput) remote.Result[remote.Watchlist] {
	f.gotInput = in
	return f.watchlist
}
func (f *fakeBackend) UpdateWatchlist(_ context.Context, id string, in remote.WatchlistInput) remote.Result[remote.Watchlist] {
	f.gotIDs = append(f.gotIDs, id)
	f.gotInput = in
	return f.watchlist
}
func (f *fakeBackend) DeleteWatchlist(_ context.Context, id string) remote.Result[remote.Empty] {
	f.gotIDs = append(f.gotIDs, id)
	return f.empty
}
func (f *fakeBackend) AddTerm(_ context.Context, id string, _ remote.TermInput) remote.Result[remote.WatchlistTerm] {
	f.gotIDs = append(f.gotIDs, id)
	return f.term
}
func (f *fakeBackend) DeleteTerm(_ context.Context, id, termID string) remote.Result[remote.Empty] {
	f.gotIDs = append(f.gotIDs, id, termID)
	return f.empty
}
func (f *fakeBackend) SimulateEvent(context.Context, remote.SimulateEventInput) remote.Result[remote.Event] {
	return f.event
}
func (f *fakeBackend) GetEventAnalysis(_ context.Context, id string) remote.Result[[]remote.AIAnalysis] {
	f.gotIDs = append(f.gotIDs, id)
	return f.analyses
}
func (f *fakeBackend) AnalyzeEvent(_ context.Context, id string) remote.Result[remote.AIAnalysis] {
	f.gotIDs = append(f.gotIDs, id)
	return f.analysis
}

type fakeBus struct {
	mu        sync.Mutex
	published []revalidate.Event
}

func (f *fakeBus) Publish(_ context.Context, evt revalidate.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, evt)
	return nil
}

func (f *fakeBus) Subscribe(ctx context.Context) (<-chan revalidate.Event, func()) {
	ch := make(chan revalidate.Event)
	return ch, func() {}
}

type fakeActivity struct {
	entries []store.Activity
}

func (f *fakeActivity) AppendActivity(_ context.Context, entry *store.Activity) error {
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeActivity) ListActivity(_ context.Context, limit int) ([]store.Activity, error) {
	if limit < len(f.entries) {
		return f.entries[:limit], nil
	}
	return f.entries, nil
}

func newTestHandler(backend *fakeBackend) (*Handler, *fakeBus, *fakeActivity) {
	bus := &fakeBus{}
	activity := &fakeActivity{}
	return New(backend, bus, activity, Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}), bus, activity
}

func perform(handler gin.HandlerFunc, method, target, body string, params ...gin.Param) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	c.Request = httptest.NewRequest(method, target, reader)
	if body != "" {
		c.Request.Header.Set("Content-Type", "application/json")
	}
	c.Set("requestID", "req-123")
	c.Params = params
	handler(c)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	return body
}

func TestCreateWatchlistPublishesAndRecords(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{watchlist: remote.OK(remote.Watchlist{ID: "w1", Name: "Infra", Terms: []remote.WatchlistTerm{}})}
	handler, bus, activity := newTestHandler(backend)

	w := perform(handler.CreateWatchlist, http.MethodPost, "/api/watchlists", `{"name":"Infra","description":"Servidores"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201 got %d: %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["success"] != true {
		t.Fatalf("unexpected body %v", body)
	}
	if backend.gotInput.Name != "Infra" {
		t.Fatalf("input not forwarded: %+v", backend.gotInput)
	}
	if len(bus.published) != 1 || bus.published[0].Type != revalidate.TypeWatchlistCreated {
		t.Fatalf("unexpected published events %+v", bus.published)
	}
	if diff := cmp.Diff([]string{"/watchlists"}, bus.published[0].Paths); diff != "" {
		t.Fatalf("paths (-want +got):\n%s", diff)
	}
	if len(activity.entries) != 1 {
		t.Fatalf("expected 1 activity entry got %d", len(activity.entries))
	}
	entry := activity.entries[0]
	if entry.Action != "create" || entry.ResourceID != "w1" || !entry.Success || entry.RequestID != "req-123" {
		t.Fatalf("unexpected activity entry %+v", entry)
	}
}

func TestFailedMutationIsRecordedButNotPublished(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{watchlist: remote.Fail[remote.Watchlist](&remote.Error{
		Kind:    remote.KindValidation,
		Message: "El nombre y la descripción son requeridos",
	})}
	handler, bus, activity := newTestHandler(backend)

	w := perform(handler.UpdateWatchlist, http.MethodPut, "/api/watchlists/w1", `{"name":"","description":""}`, gin.Param{Key: "id", Value: "w1"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 got %d", w.Code)
	}
	body := decode(t, w)
	if body["error"] != "El nombre y la descripción son requeridos" || body["kind"] != "validation" {
		t.Fatalf("unexpected body %v", body)
	}
	if _, ok := body["data"]; ok {
		t.Fatalf("failure envelope must not carry data: %v", body)
	}
	if len(bus.published) != 0 {
		t.Fatalf("failed mutation should not publish: %+v", bus.published)
	}
	if len(activity.entries) != 1 || activity.entries[0].Success || activity.entries[0].Metadata["kind"] != "validation" {
		t.Fatalf("unexpected activity %+v", activity.entries)
	}
}

func TestStatusMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *remote.Error
		want int
	}{
		{"upstream not found", &remote.Error{Kind: remote.KindHTTP, Status: 404, Message: "Not Found"}, http.StatusNotFound},
		{"upstream 503", &remote.Error{Kind: remote.KindHTTP, Status: 503, Message: "down"}, http.StatusServiceUnavailable},
		{"connectivity", &remote.Error{Kind: remote.KindConnectivity, Message: remote.ConnectivityMessage}, http.StatusBadGateway},
		{"malformed", &remote.Error{Kind: remote.KindMalformed, Status: 200, Message: "bad"}, http.StatusBadGateway},
		{"unknown", &remote.Error{Kind: remote.KindUnknown, Message: remote.CanceledMessage}, http.StatusInternalServerError},
		{"validation", &remote.Error{Kind: remote.KindValidation, Message: "x"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			backend := &fakeBackend{watchlist: remote.Fail[remote.Watchlist](tt.err)}
			handler, _, _ := newTestHandler(backend)
			w := perform(handler.GetWatchlist, http.MethodGet, "/api/watchlists/w1", "", gin.Param{Key: "id", Value: "w1"})
			if w.Code != tt.want {
				t.Fatalf("expected status %d got %d", tt.want, w.Code)
			}
			if body := decode(t, w); body["error"] != tt.err.Message {
				t.Fatalf("unexpected body %v", body)
			}
		})
	}
}

func TestHealthAddsClassifiedState(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{health: remote.OK(remote.HealthStatus{Status: "healthy"})}
	handler, _, _ := newTestHandler(backend)
	w := perform(handler.Health, http.MethodGet, "/api/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", w.Code)
	}
	if body := decode(t, w); body["state"] != "connected" || body["success"] != true {
		t.Fatalf("unexpected body %v", body)
	}

	backend.health = remote.Fail[remote.HealthStatus](&remote.Error{Kind: remote.KindConnectivity, Message: remote.ConnectivityMessage})
	w = perform(handler.Health, http.MethodGet, "/api/health", "")
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected status 502 got %d", w.Code)
	}
	if body := decode(t, w); body["state"] != "error" || body["error"] != remote.ConnectivityMessage {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestListEventsFiltersBySeverity(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{events: remote.OK([]remote.Event{
		{ID: "e1", Severity: remote.SeverityLow},
		{ID: "e2", Severity: remote.SeverityCritical},
		{ID: "e3", Severity: remote.SeverityCritical},
	})}
	handler, _, _ := newTestHandler(backend)
	w := perform(handler.ListEvents, http.MethodGet, "/api/events?severity=CRITICAL", "")

	var body remote.Result[[]remote.Event]
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Data) != 2 || body.Data[0].ID != "e2" || body.Data[1].ID != "e3" {
		t.Fatalf("unexpected events %+v", body.Data)
	}
}

func TestAnalyzeEventRevalidatesDetailView(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{analysis: remote.OK(remote.AIAnalysis{ID: "a1", EventID: "e9"})}
	handler, bus, _ := newTestHandler(backend)
	w := perform(handler.AnalyzeEvent, http.MethodPost, "/api/events/e9/analyze", "", gin.Param{Key: "id", Value: "e9"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201 got %d", w.Code)
	}
	if len(bus.published) != 1 {
		t.Fatalf("expected 1 event got %d", len(bus.published))
	}
	if diff := cmp.Diff([]string{"/events", "/events/e9"}, bus.published[0].Paths); diff != "" {
		t.Fatalf("paths (-want +got):\n%s", diff)
	}
}

func TestDeleteTermUsesWatchlistPath(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{empty: remote.OK(remote.Empty{})}
	handler, bus, activity := newTestHandler(backend)
	w := perform(handler.DeleteTerm, http.MethodDelete, "/api/watchlists/w1/terms/t1", "",
		gin.Param{Key: "id", Value: "w1"}, gin.Param{Key: "termId", Value: "t1"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", w.Code)
	}
	if diff := cmp.Diff([]string{"w1", "t1"}, backend.gotIDs); diff != "" {
		t.Fatalf("ids (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"/watchlists/w1"}, bus.published[0].Paths); diff != "" {
		t.Fatalf("paths (-want +got):\n%s", diff)
	}
	if activity.entries[0].ResourceID != "t1" || activity.entries[0].Resource != "term" {
		t.Fatalf("unexpected activity %+v", activity.entries[0])
	}
}

func TestInvalidJSONBody(t *testing.T) {
	t.Parallel()

	handler, bus, _ := newTestHandler(&fakeBackend{})
	w := perform(handler.SimulateEvent, http.MethodPost, "/api/events/simulate", `{"title":`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 got %d", w.Code)
	}
	if len(bus.published) != 0 {
		t.Fatalf("unexpected publish")
	}
}

func TestSummary(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{
		watchlists: remote.OK([]remote.Watchlist{{ID: "w1"}}),
		events:     remote.OK([]remote.Event{{ID: "e1", Severity: remote.SeverityHigh}}),
	}
	handler, _, _ := newTestHandler(backend)
	w := perform(handler.Summary, http.MethodGet, "/api/summary", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", w.Code)
	}
	data, _ := decode(t, w)["data"].(map[string]interface{})
	if data["totalWatchlists"] != float64(1) || data["highSeverityEvents"] != float64(1) {
		t.Fatalf("unexpected summary %v", data)
	}
}

func TestListActivity(t *testing.T) {
	t.Parallel()

	handler, _, activity := newTestHandler(&fakeBackend{})
	activity.entries = []store.Activity{{ID: "2", Action: "delete"}, {ID: "1", Action: "create"}}

	w := perform(handler.ListActivity, http.MethodGet, "/api/activity?limit=1", "")
	var body remote.Result[[]store.Activity]
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success || len(body.Data) != 1 || body.Data[0].ID != "2" {
		t.Fatalf("unexpected body %+v", body)
	}

	w = perform(handler.ListActivity, http.MethodGet, "/api/activity?limit=zero", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 got %d", w.Code)
	}
}

func TestListActivityWithoutStore(t *testing.T) {
	t.Parallel()

	handler := New(&fakeBackend{}, nil, nil, Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	w := perform(handler.ListActivity, http.MethodGet, "/api/activity", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", w.Code)
	}
	if body := decode(t, w); body["success"] != true {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestListEventsRejectsUnknownSeverity(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{events: remote.OK([]remote.Event{{ID: "e1", Severity: remote.SeverityLow}})}
	handler, _, _ := newTestHandler(backend)
	w := perform(handler.ListEvents, http.MethodGet, "/api/events?severity=urgent", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 got %d", w.Code)
	}
	if body := decode(t, w); body["kind"] != string(remote.KindValidation) {
		t.Fatalf("unexpected body %v", body)
	}

	w = perform(handler.ListEvents, http.MethodGet, "/api/events?severity=low", "")
	if w.Code != http.StatusOK {
		t.Fatalf("lowercase severity: expected 200 got %d", w.Code)
	}
}

func TestOpenAPISpecFormats(t *testing.T) {
	t.Parallel()

	handler, _, _ := newTestHandler(&fakeBackend{})
	w := perform(handler.OpenAPISpec, http.MethodGet, "/openapi", "")
	if w.Code != http.StatusOK || !json.Valid(w.Body.Bytes()) {
		t.Fatalf("json document: status %d", w.Code)
	}

	w = perform(handler.OpenAPISpec, http.MethodGet, "/openapi?format=yaml", "")
	if w.Code != http.StatusOK {
		t.Fatalf("yaml document: status %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/yaml") {
		t.Fatalf("content type = %q", ct)
	}
	if !strings.HasPrefix(w.Body.String(), "openapi:") {
		t.Fatalf("unexpected yaml body %.40q", w.Body.String())
	}
}
