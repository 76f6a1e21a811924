package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/hackgods/appointment-booking/internal/appointment"
	"github.com/hackgods/appointment-booking/internal/catalog"
	"github.com/hackgods/appointment-booking/internal/metrics"
	"github.com/hackgods/appointment-booking/internal/settings"
	"github.com/hackgods/appointment-booking/pkg/logging"
)

type RouterConfig struct {
	Appointments *appointment.Service
	Catalog      *catalog.Catalog
	Settings     *settings.Service
	PgPool       Pinger
	Redis        *redis.Client
	Logger       *logging.Logger
	Metrics      *metrics.SchedulingMetrics
	// MetricsHandler serves /metrics; promhttp.Handler() when nil.
	MetricsHandler http.Handler
	AdminSecret    string
	RateLimit      int
	Env            string
	Version        string
}

func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	metricsHandler := cfg.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	var limiter *RateLimiter
	if cfg.Redis != nil {
		limiter = NewRateLimiter(cfg.Redis, cfg.RateLimit, time.Minute, "rl:public")
	}

	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger, cfg.Metrics))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	// Public catalog and booking endpoints
	r.Get("/services", listServicesHandler(cfg.Catalog, logger))
	r.Get("/services/{id}", getServiceHandler(cfg.Catalog, logger))
	r.Get("/appointments/slots", availableSlotsHandler(cfg.Appointments, logger))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Appointments, logger))
	r.Group(func(r chi.Router) {
		r.Use(limiter.Middleware(logger))
		r.Post("/appointments", createAppointmentHandler(cfg.Appointments, logger))
		r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Appointments, logger))
	})

	// Administrator endpoints
	r.Route("/admin", func(r chi.Router) {
		r.Use(AdminJWT(cfg.AdminSecret))

		r.Post("/services", createServiceHandler(cfg.Catalog, logger))
		r.Patch("/services/{id}", updateServiceHandler(cfg.Catalog, logger))
		r.Delete("/services/{id}", deleteServiceHandler(cfg.Catalog, logger))

		r.Get("/appointments", listAppointmentsHandler(cfg.Appointments, logger))
		r.Get("/appointments/range", appointmentsByRangeHandler(cfg.Appointments, logger))
		r.Patch("/appointments/{id}/status", updateStatusHandler(cfg.Appointments, logger))

		r.Get("/blocked-slots", listBlockedHandler(cfg.Appointments, logger))
		r.Post("/blocked-slots", createBlockedHandler(cfg.Appointments, logger))
		r.Delete("/blocked-slots/{id}", deleteBlockedHandler(cfg.Appointments, logger))

		r.Get("/settings", listSettingsHandler(cfg.Settings, logger))
		r.Put("/settings/{key}", updateSettingHandler(cfg.Settings, logger))
	})

	return r
}
