package dashboard

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/oremus-labs/watchdesk/internal/metrics"
	"github.com/oremus-labs/watchdesk/internal/remote"
	"github.com/oremus-labs/watchdesk/internal/revalidate"
)

// HealthState is the dashboard's view of the backend.
type HealthState string

const (
	StateConnected HealthState = "connected"
	StateError     HealthState = "error"
	StateUnknown   HealthState = "unknown"
)

// DefaultHealthInterval is how often the monitor polls the backend.
const DefaultHealthInterval = 30 * time.Second

// ClassifyHealth maps the backend's status string onto a HealthState.
func ClassifyHealth(status string) HealthState {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "ok", "healthy":
		return StateConnected
	case "error", "unhealthy":
		return StateError
	default:
		return StateUnknown
	}
}

// ClassifyResult classifies a health envelope; any failure is an error state.
func ClassifyResult(res remote.Result[remote.HealthStatus]) HealthState {
	if !res.Success {
		return StateError
	}
	return ClassifyHealth(res.Data.Status)
}

// Publisher receives health transitions.
type Publisher interface {
	Publish(ctx context.Context, evt revalidate.Event) error
}

// Snapshot is the latest probe outcome.
type Snapshot struct {
	State     HealthState          `json:"state"`
	Health    *remote.HealthStatus `json:"health,omitempty"`
	Error     string               `json:"error,omitempty"`
	CheckedAt time.Time            `json:"checkedAt"`
}

// MonitorOptions configure a Monitor.
type MonitorOptions struct {
	Backend   Backend
	Publisher Publisher
	Interval  time.Duration
	Logger    *slog.Logger
}

// Monitor polls backend health and announces state changes.
type Monitor struct {
	backend   Backend
	publisher Publisher
	interval  time.Duration
	logger    *slog.Logger

	mu   sync.RWMutex
	last Snapshot
}

// NewMonitor constructs a monitor. It does not start polling.
func NewMonitor(opts MonitorOptions) *Monitor {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultHealthInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		backend:   opts.Backend,
		publisher: opts.Publisher,
		interval:  interval,
		logger:    logger,
		last:      Snapshot{State: StateUnknown},
	}
}

// Snapshot returns the latest probe outcome.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

// Run probes immediately and then on every tick until ctx ends.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// Check runs a single probe and returns its snapshot.
func (m *Monitor) Check(ctx context.Context) Snapshot {
	res := m.backend.Health(ctx)
	snap := Snapshot{State: ClassifyResult(res), CheckedAt: time.Now().UTC()}
	if res.Success {
		health := res.Data
		snap.Health = &health
	} else {
		snap.Error = res.Error
	}
	if ctx.Err() != nil {
		return snap
	}

	m.mu.Lock()
	prev := m.last
	m.last = snap
	m.mu.Unlock()

	metrics.SetBackendUp(snap.State == StateConnected)
	if prev.State == snap.State {
		return snap
	}

	m.logger.Info("backend health changed", "from", prev.State, "to", snap.State, "error", snap.Error)
	if m.publisher != nil {
		evt := revalidate.Mutation(revalidate.TypeHealthChanged, "", snap)
		if err := m.publisher.Publish(ctx, evt); err != nil {
			m.logger.Warn("publish health change failed", "error", err)
		}
	}
	return snap
}
