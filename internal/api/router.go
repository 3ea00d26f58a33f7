package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/deepencare/homecare-scheduler/internal/scheduling"
)

type RouterConfig struct {
	Service *scheduling.Service
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Env     string
	Version string
	Logger  zerolog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Post("/plans/generate", generatePlanHandler(cfg.Service))
	r.Get("/plans/{id}", getPlanHandler(cfg.Service))
	r.Post("/plans/{id}/confirm", confirmPlanHandler(cfg.Service))

	r.Post("/availability/check", checkAvailabilityHandler(cfg.Service))
	r.Post("/appointments/validate", validateAppointmentHandler(cfg.Service))
	r.Get("/staff/{id}/suggestions", suggestionsHandler(cfg.Service))

	return r
}
