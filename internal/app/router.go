package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-bo/meridian/internal/authz"
	"github.com/meridian-bo/meridian/internal/observability"
	"github.com/meridian-bo/meridian/internal/rbac"
	"github.com/meridian-bo/meridian/internal/user"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger      *slog.Logger
	Config      *Config
	Pipeline    *authz.Pipeline
	Metrics     *observability.Metrics
	UserHandler *user.Handler
	RBACHandler *rbac.Handler
}

// NewRouter assembles the mux: ambient middleware first, then every route
// mounted behind its authorization guard.
func NewRouter(p RouterParams) chi.Router {
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{Logger: p.Logger, Config: p.Config}) {
		r.Use(mw)
	}
	if p.Metrics != nil {
		r.Use(p.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", p.Metrics.Handler())
	}

	health := authz.Route{Method: http.MethodGet, Pattern: "/healthz", Skip: true}
	r.With(p.Pipeline.Guard(health)).Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	p.UserHandler.MountRoutes(r, p.Pipeline.Guard)
	p.RBACHandler.MountRoutes(r, func(spec rbac.RouteSpec) func(http.Handler) http.Handler {
		return p.Pipeline.Guard(RouteFromSpec(spec))
	})

	return r
}

// RouteFromSpec converts a handler-local route declaration into the
// pipeline's route type.
func RouteFromSpec(spec rbac.RouteSpec) authz.Route {
	return authz.Route{
		Method:      spec.Method,
		Pattern:     spec.Pattern,
		Identity:    spec.Identity,
		Description: spec.Description,
		Skip:        spec.Skip,
	}
}

// Registry builds the declared-permission registry from the mounted
// handlers. It must cover every guarded route so permission sync can
// provision their identities before traffic is accepted.
func Registry(userHandler *user.Handler, rbacHandler *rbac.Handler) *authz.Registry {
	rbacModule := authz.Module{Name: "Permission Management", Identity: "permission"}
	for _, spec := range rbacHandler.Routes() {
		rbacModule.Routes = append(rbacModule.Routes, RouteFromSpec(spec))
	}
	return authz.NewRegistry(userHandler.Module(), rbacModule)
}
