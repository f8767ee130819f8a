// Package web is the JSON API the telewall UI collaborators talk to:
// browsing and editing the block list, reading the call history and
// watching or refusing the active call.
package web

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/synox/telewall/internal/callstate"
	"github.com/synox/telewall/internal/database"
	"github.com/synox/telewall/internal/web/middleware"
)

// Server holds HTTP handler dependencies and the chi router.
type Server struct {
	router      *chi.Mux
	blocklist   database.Blocklist
	history     database.CallHistory
	settings    database.Settings
	broadcaster *callstate.Broadcaster
	logger      *slog.Logger
}

// NewServer creates the HTTP handler with all routes mounted.
func NewServer(blocklist database.Blocklist, history database.CallHistory,
	settings database.Settings, bc *callstate.Broadcaster, logger *slog.Logger) *Server {

	s := &Server{
		router:      chi.NewRouter(),
		blocklist:   blocklist,
		history:     history,
		settings:    settings,
		broadcaster: bc,
		logger:      logger.With("subsystem", "web"),
	}

	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes configures all middleware and mounts all route groups.
func (s *Server) routes() {
	r := s.router

	// Global middleware stack.
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.StructuredLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RateLimit(middleware.NewIPRateLimiter(middleware.DefaultRateLimitConfig())))

	r.Route("/api/v1", func(r chi.Router) {
		// Unauthenticated routes.
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Route("/blocked-callers", func(r chi.Router) {
				r.Get("/", s.handleListBlockedCallers)
				r.Post("/", s.handleBlockCaller)
				r.Route("/{number}", func(r chi.Router) {
					r.Get("/", s.handleGetBlockedCaller)
					r.Delete("/", s.handleUnblockCaller)
				})
			})

			r.Get("/call-history", s.handleListCallHistory)

			r.Route("/line", func(r chi.Router) {
				r.Get("/", s.handleLineState)
				r.Post("/refuse", s.handleLineRefuse)
			})

			r.Put("/admin/password", s.handleSetPassword)
		})
	})

	s.logger.Info("api routes mounted")
}

// handleHealth returns basic health status. Unauthenticated.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
