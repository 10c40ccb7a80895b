package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/steveluke1457/Mr-Bot/internal/middleware"
	"github.com/steveluke1457/Mr-Bot/pkg/logger"
)

// RouterConfig holds the admin API settings.
type RouterConfig struct {
	JWTSecret         string
	AllowedOrigins    []string
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// Handlers groups the handlers mounted by NewRouter.
type Handlers struct {
	Health    *HealthHandler
	Tickets   *TicketHandler
	Scheduled *ScheduledHandler
}

// NewRouter builds the admin API router.
func NewRouter(cfg RouterConfig, h Handlers, log *logger.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Health endpoints (no auth required)
	r.Get("/health", h.Health.Health)
	r.Get("/ready", h.Health.Ready)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Route("/tickets", func(r chi.Router) {
			r.Get("/", h.Tickets.List)
			r.Route("/{channelID}", func(r chi.Router) {
				r.Get("/", h.Tickets.Get)
				r.With(middleware.RequireScope(middleware.ScopeTicketsClose)).Delete("/", h.Tickets.Close)
			})
		})
		r.Get("/events", h.Tickets.Events)
		r.Get("/scheduled", h.Scheduled.List)
	})

	return r
}
