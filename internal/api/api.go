// Package api is the coordinator's HTTP transport: chi routing, bearer
// auth middleware, and handlers for the eight endpoints of spec.md §6.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/cametumbling/badge-crawler/internal/authn"
	"github.com/cametumbling/badge-crawler/internal/badge"
	"github.com/cametumbling/badge-crawler/internal/ingest"
	"github.com/cametumbling/badge-crawler/internal/projection"
	"github.com/cametumbling/badge-crawler/internal/queue"
	"github.com/cametumbling/badge-crawler/internal/store"
)

// Server holds the collaborators every handler needs and builds the
// router that serves them.
type Server struct {
	db     store.Adapter
	auth   *authn.Authenticator
	queue  *queue.Engine
	ingest *ingest.Pipeline
	proj   *projection.Builder
	badges *badge.Store
	log    *zap.Logger
}

// New builds a Server. badges may be nil only in tests that don't exercise
// the badge endpoints.
func New(db store.Adapter, auth *authn.Authenticator, q *queue.Engine, badges *badge.Store, log *zap.Logger) *Server {
	return &Server{
		db:     db,
		auth:   auth,
		queue:  q,
		ingest: ingest.New(db, q, auth),
		proj:   projection.New(db),
		badges: badges,
		log:    log,
	}
}

// Handler returns the configured http.Handler, suitable for ListenAndServe
// or httptest.NewServer.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/statistics", s.handleStatistics)
	r.Get("/badge/{sha256}", s.handleGetBadge)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAnyKey)
		r.Get("/work", s.handleGetWork)
		r.Post("/work", s.handlePostWork)
		r.Post("/badge/{sha256}", s.handlePostBadge)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireAdmin)
		r.Post("/create_account", s.handleCreateAccount)
		r.Post("/submit", s.handleSubmit)
		r.Get("/graph", s.handleGraph)
	})

	return r
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}
