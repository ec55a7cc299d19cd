// Package graphqlapi serves a read-only GraphQL view over the backend and
// the activity log.
package graphqlapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/handler"

	"github.com/oremus-labs/watchdesk/internal/dashboard"
	"github.com/oremus-labs/watchdesk/internal/remote"
	"github.com/oremus-labs/watchdesk/internal/store"
)

// Backend is the remote client surface the resolvers read from.
type Backend interface {
	dashboard.Backend
	GetWatchlist(ctx context.Context, id string) remote.Result[remote.Watchlist]
	GetEventAnalysis(ctx context.Context, eventID string) remote.Result[[]remote.AIAnalysis]
}

// ActivityReader exposes the activity log.
type ActivityReader interface {
	ListActivity(ctx context.Context, limit int) ([]store.Activity, error)
}

// Config wires the GraphQL schema.
type Config struct {
	Backend  Backend
	Activity ActivityReader
}

// NewHandler returns an http.Handler that serves /graphql requests.
func NewHandler(cfg Config) (http.Handler, error) {
	schema, err := NewSchema(cfg)
	if err != nil {
		return nil, err
	}

	return handler.New(&handler.Config{
		Schema:   schema,
		Pretty:   true,
		GraphiQL: true,
	}), nil
}

// NewSchema builds the schema without the HTTP wrapper.
func NewSchema(cfg Config) (*graphql.Schema, error) {
	if cfg.Backend == nil {
		return nil, errors.New("graphqlapi: backend is required")
	}
	builder := schemaBuilder{cfg: cfg}
	return builder.buildSchema()
}

type schemaBuilder struct {
	cfg Config
}

func (b schemaBuilder) buildSchema() (*graphql.Schema, error) {
	jsonScalar := graphql.NewScalar(graphql.ScalarConfig{
		Name: "JSON",
		Serialize: func(value interface{}) interface{} {
			return value
		},
	})

	severityValues := graphql.EnumValueConfigMap{}
	for _, sev := range remote.Severities {
		severityValues[string(sev)] = &graphql.EnumValueConfig{Value: string(sev)}
	}
	severityEnum := graphql.NewEnum(graphql.EnumConfig{
		Name:   "Severity",
		Values: severityValues,
	})

	termType := graphql.NewObject(graphql.ObjectConfig{
		Name: "WatchlistTerm",
		Fields: graphql.Fields{
			"id":          {Type: graphql.NewNonNull(graphql.ID)},
			"term":        {Type: graphql.NewNonNull(graphql.String)},
			"watchlistId": {Type: graphql.String},
			"isActive":    {Type: graphql.Boolean},
			"createdAt":   {Type: graphql.String},
			"updatedAt":   {Type: graphql.String},
		},
	})

	watchlistType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Watchlist",
		Fields: graphql.Fields{
			"id":          {Type: graphql.NewNonNull(graphql.ID)},
			"name":        {Type: graphql.NewNonNull(graphql.String)},
			"description": {Type: graphql.String},
			"createdAt":   {Type: graphql.String},
			"updatedAt":   {Type: graphql.String},
			"terms":       {Type: graphql.NewList(termType)},
		},
	})

	eventType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Event",
		Fields: graphql.Fields{
			"id":          {Type: graphql.NewNonNull(graphql.ID)},
			"title":       {Type: graphql.NewNonNull(graphql.String)},
			"description": {Type: graphql.String},
			"severity":    {Type: severityEnum},
			"createdAt":   {Type: graphql.String},
			"updatedAt":   {Type: graphql.String},
		},
	})

	analysisType := graphql.NewObject(graphql.ObjectConfig{
		Name: "AIAnalysis",
		Fields: graphql.Fields{
			"id":        {Type: graphql.NewNonNull(graphql.ID)},
			"eventId":   {Type: graphql.String},
			"summary":   {Type: graphql.String},
			"severity":  {Type: severityEnum},
			"action":    {Type: graphql.String},
			"createdAt": {Type: graphql.String},
		},
	})

	healthType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Health",
		Fields: graphql.Fields{
			"status": {Type: graphql.String},
			"state":  {Type: graphql.NewNonNull(graphql.String)},
			"redis":  {Type: graphql.String},
			"db":     {Type: graphql.String},
		},
	})

	summaryErrorsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "SummaryErrors",
		Fields: graphql.Fields{
			"watchlists": {Type: graphql.String},
			"events":     {Type: graphql.String},
		},
	})

	summaryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Summary",
		Fields: graphql.Fields{
			"totalWatchlists":    {Type: graphql.Int},
			"totalEvents":        {Type: graphql.Int},
			"criticalEvents":     {Type: graphql.Int},
			"highSeverityEvents": {Type: graphql.Int},
			"recentEvents":       {Type: graphql.NewList(eventType)},
			"watchlists":         {Type: graphql.NewList(watchlistType)},
			"errors":             {Type: summaryErrorsType},
		},
	})

	activityType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Activity",
		Fields: graphql.Fields{
			"id":         {Type: graphql.NewNonNull(graphql.ID)},
			"action":     {Type: graphql.String},
			"resource":   {Type: graphql.String},
			"resourceId": {Type: graphql.String},
			"success":    {Type: graphql.Boolean},
			"error":      {Type: graphql.String},
			"requestId":  {Type: graphql.String},
			"metadata":   {Type: jsonScalar},
			"createdAt":  {Type: graphql.String},
		},
	})

	queryFields := graphql.Fields{
		"health": {
			Type: healthType,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				res := b.cfg.Backend.Health(p.Context)
				out := map[string]interface{}{"state": string(dashboard.ClassifyResult(res))}
				if res.Success {
					out["status"] = res.Data.Status
					out["redis"] = res.Data.Checks.Redis
					out["db"] = res.Data.Checks.DB
				}
				return out, nil
			},
		},
		"summary": {
			Type: summaryType,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				res := dashboard.BuildSummary(p.Context, b.cfg.Backend)
				if !res.Success {
					return nil, res.Err()
				}
				return mapSummary(res.Data), nil
			},
		},
		"watchlists": {
			Type: graphql.NewList(watchlistType),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				res := b.cfg.Backend.ListWatchlists(p.Context)
				if !res.Success {
					return nil, res.Err()
				}
				return mapWatchlists(res.Data), nil
			},
		},
		"watchlist": {
			Type: watchlistType,
			Args: graphql.FieldConfigArgument{
				"id": {Type: graphql.NewNonNull(graphql.ID)},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				id, _ := p.Args["id"].(string)
				res := b.cfg.Backend.GetWatchlist(p.Context, id)
				if !res.Success {
					return nil, res.Err()
				}
				return mapWatchlist(res.Data), nil
			},
		},
		"events": {
			Type: graphql.NewList(eventType),
			Args: graphql.FieldConfigArgument{
				"severity": {Type: severityEnum},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				res := b.cfg.Backend.ListEvents(p.Context)
				if !res.Success {
					return nil, res.Err()
				}
				events := res.Data
				if sev, ok := p.Args["severity"].(string); ok && sev != "" {
					filtered := events[:0:0]
					for _, e := range events {
						if string(e.Severity) == sev {
							filtered = append(filtered, e)
						}
					}
					events = filtered
				}
				return mapEvents(events), nil
			},
		},
		"analysis": {
			Type: graphql.NewList(analysisType),
			Args: graphql.FieldConfigArgument{
				"eventId": {Type: graphql.NewNonNull(graphql.ID)},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				id, _ := p.Args["eventId"].(string)
				res := b.cfg.Backend.GetEventAnalysis(p.Context, id)
				if !res.Success {
					return nil, res.Err()
				}
				return mapAnalyses(res.Data), nil
			},
		},
		"activity": {
			Type: graphql.NewList(activityType),
			Args: graphql.FieldConfigArgument{
				"limit": {Type: graphql.Int},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				if b.cfg.Activity == nil {
					return []interface{}{}, nil
				}
				limit := 25
				if l, ok := p.Args["limit"].(int); ok && l > 0 {
					limit = l
				}
				entries, err := b.cfg.Activity.ListActivity(p.Context, limit)
				if err != nil {
					return nil, err
				}
				return mapActivity(entries), nil
			},
		},
	}

	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query: graphql.NewObject(graphql.ObjectConfig{
			Name:   "Query",
			Fields: queryFields,
		}),
	})
	if err != nil {
		return nil, err
	}
	return &schema, nil
}

func mapWatchlists(items []remote.Watchlist) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(items))
	for _, w := range items {
		out = append(out, mapWatchlist(w))
	}
	return out
}

func mapWatchlist(w remote.Watchlist) map[string]interface{} {
	terms := make([]map[string]interface{}, 0, len(w.Terms))
	for _, t := range w.Terms {
		term := map[string]interface{}{
			"id":          t.ID,
			"term":        t.Term,
			"watchlistId": t.WatchlistID,
			"createdAt":   t.CreatedAt,
			"updatedAt":   t.UpdatedAt,
		}
		if t.IsActive != nil {
			term["isActive"] = *t.IsActive
		}
		terms = append(terms, term)
	}
	return map[string]interface{}{
		"id":          w.ID,
		"name":        w.Name,
		"description": w.Description,
		"createdAt":   w.CreatedAt,
		"updatedAt":   w.UpdatedAt,
		"terms":       terms,
	}
}

func mapEvents(items []remote.Event) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(items))
	for _, e := range items {
		out = append(out, map[string]interface{}{
			"id":          e.ID,
			"title":       e.Title,
			"description": e.Description,
			"severity":    string(e.Severity),
			"createdAt":   e.CreatedAt,
			"updatedAt":   e.UpdatedAt,
		})
	}
	return out
}

func mapAnalyses(items []remote.AIAnalysis) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(items))
	for _, a := range items {
		out = append(out, map[string]interface{}{
			"id":        a.ID,
			"eventId":   a.EventID,
			"summary":   a.Summary,
			"severity":  string(a.Severity),
			"action":    a.Action,
			"createdAt": a.CreatedAt,
		})
	}
	return out
}

func mapSummary(s dashboard.Summary) map[string]interface{} {
	return map[string]interface{}{
		"totalWatchlists":    s.TotalWatchlists,
		"totalEvents":        s.TotalEvents,
		"criticalEvents":     s.CriticalEvents,
		"highSeverityEvents": s.HighSeverityEvents,
		"recentEvents":       mapEvents(s.RecentEvents),
		"watchlists":         mapWatchlists(s.Watchlists),
		"errors": map[string]interface{}{
			"watchlists": s.Errors.Watchlists,
			"events":     s.Errors.Events,
		},
	}
}

func mapActivity(entries []store.Activity) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(entries))
	for _, a := range entries {
		out = append(out, map[string]interface{}{
			"id":         a.ID,
			"action":     a.Action,
			"resource":   a.Resource,
			"resourceId": a.ResourceID,
			"success":    a.Success,
			"error":      a.Error,
			"requestId":  a.RequestID,
			"metadata":   a.Metadata,
			"createdAt":  a.CreatedAt.Format(time.RFC3339),
		})
	}
	return out
}
