package remote

// Severity grades events and analyses.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Severities lists the accepted values in ascending order.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	for _, v := range Severities {
		if s == v {
			return true
		}
	}
	return false
}

// Watchlist is a named collection of monitored terms.
type Watchlist struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	CreatedAt   string          `json:"createdAt,omitempty"`
	UpdatedAt   string          `json:"updatedAt,omitempty"`
	Terms       []WatchlistTerm `json:"terms"`
}

// WatchlistTerm is a single string watched for within a watchlist.
type WatchlistTerm struct {
	ID          string `json:"id"`
	Term        string `json:"term"`
	WatchlistID string `json:"watchlistId,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
	IsActive    *bool  `json:"isActive,omitempty"`
}

// Event is something detected by the monitored system.
type Event struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Severity    Severity `json:"severity"`
	CreatedAt   string   `json:"createdAt,omitempty"`
	UpdatedAt   string   `json:"updatedAt,omitempty"`
}

// AIAnalysis is the AI-generated summary produced for an event.
type AIAnalysis struct {
	ID        string   `json:"id"`
	EventID   string   `json:"eventId"`
	Summary   string   `json:"summary"`
	Severity  Severity `json:"severity"`
	Action    string   `json:"action"`
	CreatedAt string   `json:"createdAt,omitempty"`
}

// HealthStatus mirrors the backend's /health payload.
type HealthStatus struct {
	Status string       `json:"status"`
	Checks HealthChecks `json:"checks"`
}

// HealthChecks reports dependency state as seen by the backend.
type HealthChecks struct {
	Redis string `json:"redis"`
	DB    string `json:"db"`
}

// Empty is the payload of operations that return no body.
type Empty struct{}

// WatchlistInput is the body of create and update watchlist calls.
type WatchlistInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// TermInput is the body of add-term calls.
type TermInput struct {
	Term string `json:"term"`
}

// SimulateEventInput is the body of simulate-event calls.
type SimulateEventInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}
