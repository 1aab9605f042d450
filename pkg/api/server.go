// Package api assembles the HTTP surface of the SSO bridge: provider
// registration, SP metadata publishing, login initiation, and the assertion
// consumer callback.
package api

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/loamlabs/ssobridge/pkg/httputil"
	"github.com/loamlabs/ssobridge/pkg/observability"
	"github.com/loamlabs/ssobridge/pkg/provision"
	"github.com/loamlabs/ssobridge/pkg/saml"
)

// Config wires the server's collaborators.
type Config struct {
	DB     *sql.DB
	Logger *observability.Logger

	// AdminToken guards the registration surface when non-empty.
	AdminToken string

	// SP carries configuration-time SAML toolkit dependencies.
	SP saml.SPOptions

	// Provision carries the provisioner's collaborator hooks.
	Provision provision.Options

	// Registry is the Prometheus registry metrics are registered on. A
	// private registry is created when nil.
	Registry *prometheus.Registry
}

// Server handles the SSO HTTP surface.
type Server struct {
	router      *mux.Router
	logger      *observability.Logger
	metrics     *observability.Metrics
	registry    *saml.Registry
	flow        *saml.Flow
	provisioner *provision.Provisioner
	sessions    *provision.SessionStore
	adminToken  string
}

// NewServer creates the server and registers its routes.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	promRegistry := cfg.Registry
	if promRegistry == nil {
		promRegistry = prometheus.NewRegistry()
	}

	registry := saml.NewRegistry(cfg.DB, logger)
	s := &Server{
		router:      mux.NewRouter(),
		logger:      logger,
		metrics:     observability.NewMetrics(promRegistry),
		registry:    registry,
		flow:        saml.NewFlow(registry, cfg.SP, logger),
		provisioner: provision.NewProvisioner(cfg.DB, cfg.Provision, logger),
		sessions:    provision.NewSessionStore(cfg.DB, logger),
		adminToken:  cfg.AdminToken,
	}
	s.routes(promRegistry)
	return s
}

func (s *Server) routes(promRegistry *prometheus.Registry) {
	s.router.Use(httputil.RecoveryMiddleware(s.logger))
	s.router.Use(httputil.LoggingMiddleware(s.logger))
	s.router.Use(s.metrics.HTTPMiddleware)

	s.router.HandleFunc("/sso/saml2/sp/metadata", s.handleMetadata).Methods(http.MethodGet)
	s.router.HandleFunc("/sso/saml2/register", s.requireAdmin(s.handleRegister)).Methods(http.MethodPost)
	s.router.HandleFunc("/sso/saml2/providers", s.requireAdmin(s.handleListProviders)).Methods(http.MethodGet)
	s.router.HandleFunc("/sso/saml2/sign-in", s.handleSignIn).Methods(http.MethodPost)
	s.router.HandleFunc("/sso/saml2/callback/{providerId}", s.handleCallback).Methods(http.MethodPost)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", observability.MetricsHandler(promRegistry)).Methods(http.MethodGet)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Sessions exposes the session store for host-application session checks.
func (s *Server) Sessions() *provision.SessionStore {
	return s.sessions
}

// CleanupSessions removes expired sessions and records the count. It is
// scheduled periodically from the server process.
func (s *Server) CleanupSessions(ctx context.Context) (int64, error) {
	deleted, err := s.sessions.CleanupExpired(ctx)
	if err == nil && deleted > 0 {
		s.metrics.SessionsCleaned.Add(float64(deleted))
	}
	return deleted, err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, map[string]string{"status": "ok"})
}

// requireAdmin guards the registration surface with a static bearer token.
// Session/cookie authentication for end users is the host application's
// concern.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.adminToken != "" && r.Header.Get("Authorization") != "Bearer "+s.adminToken {
			httputil.WriteUnauthorized(w, "invalid or missing admin token")
			return
		}
		next(w, r)
	}
}
