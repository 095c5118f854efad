package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/dental-scheduling/internal/schedule"
)

type RouterConfig struct {
	Service *schedule.Service
	Logger  zerolog.Logger
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health and metrics stay outside the auth boundary
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware)

		// Commands: everything that changes a calendar goes through the
		// orchestrator behind these routes.
		r.Post("/appointments", createAppointmentHandler(cfg.Service))
		r.Post("/appointments/{id}/reschedule", rescheduleAppointmentHandler(cfg.Service))
		r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Service))
		r.Post("/appointments/{id}/complete", completeAppointmentHandler(cfg.Service))
		r.Post("/appointments/{id}/no-show", noShowAppointmentHandler(cfg.Service))
		r.Post("/blocked-periods", blockPeriodHandler(cfg.Service))
		r.Delete("/blocked-periods/{id}", unblockPeriodHandler(cfg.Service))

		// Queries: read-only projections
		r.Get("/appointments", listAppointmentsHandler(cfg.Service))
		r.Get("/dentists/{id}/availability", availabilityHandler(cfg.Service))
		r.Get("/dentists/{id}/week", weekScheduleHandler(cfg.Service))
		r.Get("/dentists/{id}/day", dayScheduleHandler(cfg.Service))
	})

	return r
}
