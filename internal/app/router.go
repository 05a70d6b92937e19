package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/autosales/internal/auth"
	"github.com/odyssey-erp/autosales/internal/customers"
	"github.com/odyssey-erp/autosales/internal/observability"
	"github.com/odyssey-erp/autosales/internal/platform/httpx"
	"github.com/odyssey-erp/autosales/internal/ratelimit"
	"github.com/odyssey-erp/autosales/internal/rbac"
	"github.com/odyssey-erp/autosales/internal/sales"
	"github.com/odyssey-erp/autosales/internal/vehicles"
	"github.com/odyssey-erp/autosales/jobs"
)

// RouterParams groups dependencies for building the HTTP router. Nil
// handlers are skipped, as are groups not listed in APP_SERVICES.
type RouterParams struct {
	Logger   *slog.Logger
	Config   *Config
	Metrics  *observability.Metrics
	RBAC     rbac.Middleware
	RateGate *ratelimit.Middleware
	Authn    *auth.Middleware

	AuthHandler      *auth.Handler
	VehiclesHandler  *vehicles.Handler
	CustomersHandler *customers.Handler
	SalesHandler     *sales.Handler
	RateLimitHandler *ratelimit.Handler
	RolesHandler     *rbac.RolesHandler
	JobHandler       *jobs.Handler
}

// NewRouter constructs the chi.Router with the autosales defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	serves := params.Config.Serves
	r.Group(func(r chi.Router) {
		if params.RateGate != nil {
			r.Use(params.RateGate.Handler)
		}

		if params.AuthHandler != nil && serves(ServiceAuth) {
			r.Route("/auth", params.AuthHandler.MountRoutes)
		}

		r.Group(func(r chi.Router) {
			if params.Authn != nil {
				r.Use(params.Authn.Authenticate)
			}
			if params.VehiclesHandler != nil && serves(ServiceVehicles) {
				r.Route("/vehicles", params.VehiclesHandler.MountRoutes)
			}
			if params.CustomersHandler != nil && serves(ServiceCustomers) {
				r.Route("/customers", params.CustomersHandler.MountRoutes)
			}
			if params.SalesHandler != nil && serves(ServiceSales) {
				r.Route("/sales", params.SalesHandler.MountRoutes)
			}
			if serves(ServiceAdmin) {
				r.Route("/admin", func(r chi.Router) {
					r.Use(params.RBAC.RequireAnyRole(params.Config.RoleSets().Admin...))
					if params.RateLimitHandler != nil {
						r.Route("/ratelimit", params.RateLimitHandler.MountRoutes)
					}
					if params.RolesHandler != nil {
						r.Route("/roles", params.RolesHandler.MountRoutes)
					}
					if params.JobHandler != nil {
						r.Route("/jobs", params.JobHandler.MountRoutes)
					}
				})
			}
		})
	})

	return r
}
