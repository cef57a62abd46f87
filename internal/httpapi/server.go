// Package httpapi is the thin HTTP invocation boundary for §6's
// RunAnalysis entry point: a single POST endpoint that accepts a run
// request, wires it into pkg/analysis, and returns the resulting report
// measures. It carries no business logic of its own.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// Config configures the HTTP server.
type Config struct {
	Port   string
	Logger zerolog.Logger
}

// Server wraps the chi router and underlying http.Server.
type Server struct {
	httpServer *http.Server
	logger     zerolog.Logger
}

// New builds a Server with the standard middleware stack (recovery,
// request logging, CORS) and the analysis routes registered.
func New(cfg Config) *Server {
	logger := cfg.Logger.With().Str("component", "httpapi").Logger()
	h := &analysisHandler{logger: logger}

	r := chi.NewRouter()
	r.Use(recoveryMiddleware(logger))
	r.Use(requestLogMiddleware(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", h.handleHealth)
	r.Route("/api/analysis", func(r chi.Router) {
		r.Post("/run", h.handleRun)
	})

	return &Server{
		httpServer: &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      r,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// Start blocks serving HTTP until the listener is closed or errors.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("starting http server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
