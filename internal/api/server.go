package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oremus-labs/watchdesk/internal/handlers"
)

// Options configures the HTTP server wiring.
type Options struct {
	APIToken       string
	GraphQLHandler http.Handler
	Logger         *slog.Logger
}

// Server wraps the Gin engine and associated configuration.
type Server struct {
	engine *gin.Engine
	logger *slog.Logger
}

// NewServer constructs a Server with all HTTP routes configured.
func NewServer(handler *handlers.Handler, opts Options) *Server {
	gin.SetMode(gin.ReleaseMode)
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestIDMiddleware(), metricsMiddleware(), requestLogger(logger))

	// Health + meta
	engine.GET("/healthz", handler.Healthz)
	engine.GET("/openapi", handler.OpenAPISpec)
	engine.GET("/stream", handler.StreamEvents)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if opts.GraphQLHandler != nil {
		engine.GET("/graphql", gin.WrapH(opts.GraphQLHandler))
		engine.POST("/graphql", gin.WrapH(opts.GraphQLHandler))
	}

	apiGroup := engine.Group("/api")
	apiGroup.GET("/summary", handler.Summary)
	apiGroup.GET("/health", handler.Health)
	apiGroup.GET("/activity", handler.ListActivity)
	apiGroup.GET("/watchlists", handler.ListWatchlists)
	apiGroup.GET("/watchlists/:id", handler.GetWatchlist)
	apiGroup.GET("/events", handler.ListEvents)
	apiGroup.GET("/events/:id/analysis", handler.GetEventAnalysis)

	protected := apiGroup.Group("/")
	protected.Use(authMiddleware(opts.APIToken))

	protected.POST("/watchlists", handler.CreateWatchlist)
	protected.PUT("/watchlists/:id", handler.UpdateWatchlist)
	protected.DELETE("/watchlists/:id", handler.DeleteWatchlist)
	protected.POST("/watchlists/:id/terms", handler.AddTerm)
	protected.DELETE("/watchlists/:id/terms/:termId", handler.DeleteTerm)
	protected.POST("/events/simulate", handler.SimulateEvent)
	protected.POST("/events/:id/analyze", handler.AnalyzeEvent)

	return &Server{engine: engine, logger: logger}
}

// Engine exposes the underlying Gin engine for advanced use (testing, etc.).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Start launches the HTTP server on the provided address. Serve errors are
// reported on the returned channel.
func (s *Server) Start(addr string) (*http.Server, <-chan error) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server failed", "addr", addr, "error", err)
			errCh <- err
		}
		close(errCh)
	}()
	return srv, errCh
}

// Shutdown drains the server within the given timeout.
func Shutdown(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
