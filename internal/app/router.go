package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/leasedesk/leasedesk/internal/agreements"
	"github.com/leasedesk/leasedesk/internal/auth"
	"github.com/leasedesk/leasedesk/internal/customers"
	"github.com/leasedesk/leasedesk/internal/observability"
	"github.com/leasedesk/leasedesk/internal/properties"
	"github.com/leasedesk/leasedesk/internal/rbac"
	"github.com/leasedesk/leasedesk/internal/shared"
	"github.com/leasedesk/leasedesk/internal/societies"
	"github.com/leasedesk/leasedesk/internal/templates"
	"github.com/leasedesk/leasedesk/internal/users"
	"github.com/leasedesk/leasedesk/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	SessionManager    *shared.SessionManager
	CSRFManager       *shared.CSRFManager
	AuthService       *auth.Service
	AuthHandler       *auth.Handler
	UsersHandler      *users.Handler
	CustomersHandler  *customers.Handler
	SocietiesHandler  *societies.Handler
	PropertiesHandler *properties.Handler
	TemplatesHandler  *templates.Handler
	AgreementsHandler *agreements.Handler
	RBACHandler       *rbac.Handler
	JobHandler        *jobs.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with Leasedesk defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	// One permission lookup per request no matter how many guards run.
	r.Use(rbac.Middleware())
	r.Use(auth.IdentityMiddleware(params.AuthService, params.Logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	r.Route("/users", params.UsersHandler.MountRoutes)
	r.Route("/customers", params.CustomersHandler.MountRoutes)
	r.Route("/societies", params.SocietiesHandler.MountRoutes)
	r.Route("/properties", params.PropertiesHandler.MountRoutes)
	r.Route("/templates", params.TemplatesHandler.MountRoutes)
	r.Route("/agreements", params.AgreementsHandler.MountRoutes)
	r.Route("/roles", params.RBACHandler.MountRoutes)
	r.Route("/permissions", params.RBACHandler.MountPermissionRoutes)
	r.Route("/portal", func(r chi.Router) {
		params.CustomersHandler.MountPortalRoutes(r)
		params.AgreementsHandler.MountPortalRoutes(r)
	})
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
