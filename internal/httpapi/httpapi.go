// Package httpapi implements the request surface (§6): a chi router wiring
// bearer authentication, CORS, rate limiting, and JSON Schema validation in
// front of the Dispatch Engine, Lifecycle Manager, and Admin Facade.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"treewatch/internal/admin"
	"treewatch/internal/dispatch"
	"treewatch/internal/enum"
	"treewatch/internal/identity"
	"treewatch/internal/lifecycle"
	"treewatch/internal/pushbus"
	"treewatch/internal/store"
)

// Config wires the components a router needs.
type Config struct {
	Identity            identity.Service
	Dispatch            *dispatch.Engine
	Lifecycle           *lifecycle.Manager
	Admin               *admin.Facade
	Alerts              store.AlertStore
	Volunteers          store.VolunteerStore
	Push                *pushbus.PushBus
	AllowedClientOrigin string
}

// NewRouter builds the full request surface, following the teacher's
// cmd/server middleware stack (Logger, Recoverer, RequestID, cors.Handler)
// with a bearer-auth layer and per-client-IP rate limiting added on top.
func NewRouter(cfg Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.AllowedClientOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if cfg.Push != nil {
		r.Get("/ws", cfg.Push.ServeHTTP)
	}

	h := &handlers{admin: cfg.Admin, dispatch: cfg.Dispatch, lifecycle: cfg.Lifecycle, alerts: cfg.Alerts, volunteers: cfg.Volunteers}
	auth := authMiddleware{identity: cfg.Identity}

	r.Group(func(r chi.Router) {
		r.Use(auth.authenticate)

		r.With(httprate.LimitByIP(30, time.Minute), auth.requireRole(enum.RoleAdmin)).Post("/alerts", h.createAlert)
		r.With(auth.requireRole(enum.RoleAdmin)).Get("/alerts", h.listAlerts)
		r.Get("/alerts/{id}", h.getAlert)

		r.With(httprate.LimitByIP(60, time.Minute)).Group(func(r chi.Router) {
			r.Use(auth.requireRole(enum.RoleVolunteer))
			r.Put("/alerts/{id}/accept", h.acceptAlert)
			r.Put("/alerts/{id}/start", h.startAlert)
			r.Put("/alerts/{id}/resolve", h.resolveAlert)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.requireRole(enum.RoleAdmin))
			r.Put("/alerts/{id}/cancel", h.cancelAlert)
			r.Post("/weather-check", h.triggerWeatherCheck)
			r.Post("/calendar-check", h.triggerCalendarCheck)
			r.Get("/stats", h.stats)
		})
	})

	return r
}
