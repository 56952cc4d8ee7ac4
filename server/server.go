package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fitdash/data"
	"github.com/fitdash/fitbit"
	"github.com/fitdash/session"
)

// Authenticator runs the browser authorization flow.
type Authenticator interface {
	Authenticate(ctx context.Context, clientID, clientSecret string) (fitbit.TokenPair, error)
	InProgress() bool
}

// ClientFactory builds the API client for a freshly authorized session.
// onRefresh receives rotated tokens.
type ClientFactory func(creds session.Credentials, tokens fitbit.TokenPair, onRefresh func(fitbit.TokenPair)) data.API

// DataSource is a Fetcher whose memoized responses can be dropped per client.
type DataSource interface {
	Fetcher
	Forget(clientID string)
}

type Options struct {
	Auth      Authenticator
	NewClient ClientFactory
	Data      DataSource
	Sessions  *session.Store
	// Defaults prefill the credential form of new sessions.
	Defaults       session.Credentials
	MetricsEnabled bool
	Now            func() time.Time
}

type Server struct {
	auth      Authenticator
	newClient ClientFactory
	data      DataSource
	sessions  *session.Store
	defaults  session.Credentials
	validate  *validator.Validate
	now       func() time.Time
	router    chi.Router
}

func New(opts Options) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Server{
		auth:      opts.Auth,
		newClient: opts.NewClient,
		data:      opts.Data,
		sessions:  opts.Sessions,
		defaults:  opts.Defaults,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		now:       opts.Now,
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(loggingMiddleware)
	r.Use(chimiddleware.Recoverer)

	r.Get("/", s.indexHandler)
	r.Post("/auth", s.authHandler)
	r.Post("/date", s.dateHandler)
	r.Post("/logout", s.logoutHandler)
	r.Get("/healthz", healthHandler)
	r.NotFound(notFoundHandler)
	if opts.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	s.router = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}
