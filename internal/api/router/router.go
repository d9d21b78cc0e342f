package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/autorespond/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/autorespond/internal/http/middleware"
	"github.com/wolfman30/autorespond/internal/messaging"
	"github.com/wolfman30/autorespond/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger           *logging.Logger
	MessagingHandler *messaging.Handler
	HealthHandler    http.Handler
	MetricsHandler   http.Handler

	// Webhook rate limit per client IP; a non-positive rate disables it.
	WebhookRatePerSecond float64
	WebhookBurst         int

	// Operator endpoints (optional). Mounted only when AdminAuthSecret is set.
	AdminAuthSecret    string
	AdminBooking       *handlers.AdminBookingHandler
	AdminConversations *handlers.AdminConversationsHandler
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))

	health := cfg.HealthHandler
	if health == nil {
		health = handlers.NewHealthHandler(nil)
	}

	r.Group(func(public chi.Router) {
		public.Method(http.MethodGet, "/health", health)
		if cfg.MetricsHandler != nil {
			public.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
		}
	})

	r.Route("/webhooks", func(r chi.Router) {
		r.Use(httpmiddleware.RateLimit(cfg.WebhookRatePerSecond, cfg.WebhookBurst))
		r.Post("/twilio/sms", cfg.MessagingHandler.TwilioWebhook)
		r.Post("/email/inbound", cfg.MessagingHandler.EmailWebhook)
	})

	if cfg.AdminAuthSecret != "" {
		r.Route("/admin", func(r chi.Router) {
			r.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			if cfg.AdminBooking != nil {
				r.Get("/booking/{address}", cfg.AdminBooking.GetState)
				r.Delete("/booking/{address}", cfg.AdminBooking.Reset)
			}
			if cfg.AdminConversations != nil {
				r.Get("/clients/{clientID}/conversations", cfg.AdminConversations.List)
			}
		})
	}

	return r
}
