package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/telecare/slot-booking/internal/booking"
	"github.com/telecare/slot-booking/internal/directory"
)

// PhysicianSearcher is the slice of the directory the listing endpoint
// needs.
type PhysicianSearcher interface {
	Search(ctx context.Context, f directory.SearchFilter) ([]directory.Physician, error)
}

type RouterConfig struct {
	Registry  *booking.SlotRegistry
	Engine    *booking.Engine
	Ledger    *booking.AppointmentLedger
	Directory PhysicianSearcher
	Clock     booking.Clock
	PgPool    *pgxpool.Pool
	Redis     *redis.Client
	Log       zerolog.Logger
	Env       string
	Version   string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))

	// Health and metrics
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	h := &handlers{
		registry:  cfg.Registry,
		engine:    cfg.Engine,
		ledger:    cfg.Ledger,
		directory: cfg.Directory,
		clock:     cfg.Clock,
	}

	// Physician directory and availability
	r.Get("/physicians", h.searchPhysicians)
	r.Post("/physicians/{id}/slots", h.publishSlot)
	r.Get("/physicians/{id}/slots", h.listSlots)
	r.Get("/physicians/{id}/appointments", h.listPhysicianAppointments)

	// Booking and appointments
	r.Post("/bookings", h.book)
	r.Get("/appointments", h.listPatientAppointments)
	r.Get("/appointments/{id}", h.getAppointment)
	r.Post("/appointments/{id}/cancel", h.cancelAppointment)
	r.Post("/appointments/{id}/complete", h.completeAppointment)
	r.Post("/appointments/{id}/messages", h.appendMessage)
	r.Get("/appointments/{id}/messages", h.listMessages)

	return r
}
