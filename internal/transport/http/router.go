// Package http assembles the service router: middleware stack, public
// authentication and operational routes, and the authenticated API surface.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"roster/internal/platform/health"
	"roster/internal/platform/middleware"
)

// AdminRoleName guards the mutating branch routes.
const AdminRoleName = "Admin"

// Handlers carries the per-domain handlers the router mounts.
type Handlers struct {
	Identity interface {
		Register(chi.Router)
		RegisterAuth(chi.Router)
	}
	Profile interface{ Register(chi.Router) }
	Branch interface {
		Register(chi.Router)
		RegisterAdmin(chi.Router)
	}
	Role   interface{ Register(chi.Router) }
	Health *health.Handler
}

// Config carries the router dependencies that are not handlers.
type Config struct {
	TokenValidator    middleware.TokenValidator
	RevocationChecker middleware.TokenRevocationChecker
	RequestTimeout    time.Duration
	Logger            *slog.Logger
}

// New builds the chi router. The authenticated group sits behind the JWT
// guard with revocation checking; branch mutations additionally require the
// admin role.
func New(handlers Handlers, cfg Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	// Public surface: authentication and operational endpoints.
	r.Group(func(public chi.Router) {
		public.Use(middleware.ContentTypeJSON)
		handlers.Identity.RegisterAuth(public)
	})
	if handlers.Health != nil {
		r.Method(http.MethodGet, "/healthz", handlers.Health)
	}
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Authenticated API surface.
	r.Group(func(api chi.Router) {
		api.Use(middleware.RequireAuth(cfg.TokenValidator, cfg.RevocationChecker, cfg.Logger))
		api.Use(middleware.ContentTypeJSON)

		handlers.Identity.Register(api)
		handlers.Profile.Register(api)
		handlers.Branch.Register(api)
		handlers.Role.Register(api)

		api.Group(func(admin chi.Router) {
			admin.Use(middleware.RequireRole(cfg.Logger, AdminRoleName))
			handlers.Branch.RegisterAdmin(admin)
		})
	})

	return r
}
