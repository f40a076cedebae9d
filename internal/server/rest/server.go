// Package rest exposes the link directory over HTTP.
package rest

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/taglink/internal/logging"
	"github.com/dmitrijs2005/taglink/internal/ratelimit"
	"github.com/dmitrijs2005/taglink/internal/server/models"
	"github.com/dmitrijs2005/taglink/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const shutdownTimeout = 10 * time.Second

// LinkService is the link lookup and mutation API used by the handlers.
type LinkService interface {
	Lookup(ctx context.Context, raw string) ([]*models.Link, error)
	LookupBatch(ctx context.Context, raws []string) (*services.BatchResult, error)
	Create(ctx context.Context, actor, tag string, discordID int64) (*models.Link, error)
	Delete(ctx context.Context, actor, tag string) (*models.Link, error)
}

// SessionService issues and checks bearer tokens.
type SessionService interface {
	Login(ctx context.Context, username, password string) (*services.Session, error)
	Authenticate(token string) (string, error)
}

// AuditService exports the audit log.
type AuditService interface {
	Archive(ctx context.Context, since time.Time) (*services.Archive, error)
}

// Pinger reports database reachability. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Server struct {
	address  string
	router   chi.Router
	links    LinkService
	sessions SessionService
	audit    AuditService
	db       Pinger
	limiter  *ratelimit.KeyedRateLimiter
	validate *Validator
	logger   logging.Logger
}

func NewServer(address string, l logging.Logger, db Pinger, ls LinkService, ss SessionService,
	as AuditService, limiter *ratelimit.KeyedRateLimiter) *Server {

	s := &Server{
		address:  address,
		router:   chi.NewRouter(),
		links:    ls,
		sessions: ss,
		audit:    as,
		db:       db,
		limiter:  limiter,
		validate: NewValidator(),
		logger:   l.With("module", "http_server"),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.With(s.rateLimit).Post("/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Route("/links", func(r chi.Router) {
			r.Post("/", s.handleCreateLink)
			r.Get("/{tag}", s.handleLookup)
			r.Delete("/{tag}", s.handleDeleteLink)
		})

		r.Get("/batch", s.handleBatch)
		r.Post("/batch", s.handleBatch)

		r.Post("/audit/archive", s.handleArchive)
	})
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {

	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
