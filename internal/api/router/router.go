package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/agbona24/Cusomer-care-support-agent/internal/http/handlers"
	httpmiddleware "github.com/agbona24/Cusomer-care-support-agent/internal/http/middleware"
	"github.com/agbona24/Cusomer-care-support-agent/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger       *logging.Logger
	Voice        *handlers.TwilioVoiceHandler
	Appointments *handlers.AppointmentsHandler
	Patients     *handlers.PatientsHandler
	Calls        *handlers.CallsHandler
	Dashboard    *handlers.DashboardHandler

	// AdminAuthSecret protects /api/* when set. Empty leaves the API open,
	// which is only acceptable for local development.
	AdminAuthSecret    string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// WebhookRatePerSecond caps Twilio webhook traffic per client IP.
	// Zero disables rate limiting.
	WebhookRatePerSecond float64
	WebhookBurst         int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints (webhooks, health checks)
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.Voice != nil {
			public.Route("/webhooks/twilio", func(r chi.Router) {
				if cfg.WebhookRatePerSecond > 0 {
					r.Use(httpmiddleware.RateLimit(cfg.WebhookRatePerSecond, cfg.WebhookBurst))
				}
				r.Post("/voice", cfg.Voice.HandleVoice)
				r.Post("/process", cfg.Voice.HandleProcess)
				r.Post("/status", cfg.Voice.HandleStatus)
			})
		}
	})

	// Dashboard API (protected by JWT when a secret is configured)
	r.Route("/api", func(api chi.Router) {
		if cfg.AdminAuthSecret != "" {
			api.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
		}
		if cfg.Appointments != nil {
			api.Route("/appointments", func(r chi.Router) {
				r.Get("/", cfg.Appointments.List)
				r.Post("/", cfg.Appointments.Create)
				r.Get("/{id}", cfg.Appointments.Get)
				r.Patch("/{id}", cfg.Appointments.Reschedule)
				r.Delete("/{id}", cfg.Appointments.Cancel)
			})
		}
		if cfg.Patients != nil {
			api.Get("/patients", cfg.Patients.List)
		}
		if cfg.Calls != nil {
			api.Get("/calls", cfg.Calls.List)
			api.Post("/calls/outbound", cfg.Calls.Outbound)
		}
		if cfg.Dashboard != nil {
			api.Get("/dashboard", cfg.Dashboard.Overview)
		}
	})

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
