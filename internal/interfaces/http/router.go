// Package http wires the handlers and middleware into the API route tree
// and hosts the server lifecycle.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/trialsync/trialsync/internal/infrastructure/monitoring/logging"
	"github.com/trialsync/trialsync/internal/infrastructure/monitoring/prometheus"
	"github.com/trialsync/trialsync/internal/interfaces/http/handlers"
	"github.com/trialsync/trialsync/internal/interfaces/http/middleware"
)

// RouterConfig aggregates everything the route tree needs.  Nil handlers
// leave their routes unmounted; nil middleware inputs disable that layer.
type RouterConfig struct {
	MatchHandler   *handlers.MatchHandler
	PatientHandler *handlers.PatientHandler
	TrialHandler   *handlers.TrialHandler
	IntakeHandler  *handlers.IntakeHandler
	HealthHandler  *handlers.HealthHandler

	CORSOrigins  []string
	RateLimitRPS int

	Logger  logging.Logger
	Metrics *prometheus.Metrics
}

// NewRouter builds the complete route tree.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.RequestLogging(cfg.Logger, cfg.Metrics))
	r.Use(middleware.RateLimit(middleware.NewRateLimiter(cfg.RateLimitRPS)))

	if cfg.HealthHandler != nil {
		r.Get("/healthz", cfg.HealthHandler.Liveness)
		r.Get("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler())
	}

	r.Route("/api/v1", func(api chi.Router) {
		registerMatchRoutes(api, cfg.MatchHandler)
		registerPatientRoutes(api, cfg.PatientHandler)
		registerTrialRoutes(api, cfg.TrialHandler)
		registerIntakeRoutes(api, cfg.IntakeHandler)
	})

	return r
}

func registerMatchRoutes(r chi.Router, h *handlers.MatchHandler) {
	if h == nil {
		return
	}
	r.Route("/match", func(mr chi.Router) {
		mr.Post("/all", h.MatchAll)
		mr.Post("/patients/{patientID}", h.MatchPatient)
		mr.Post("/patients/{patientID}/future", h.MatchFuture)
		mr.Post("/trials/{trialID}", h.MatchTrial)
	})
}

func registerPatientRoutes(r chi.Router, h *handlers.PatientHandler) {
	if h == nil {
		return
	}
	r.Route("/patients", func(pr chi.Router) {
		pr.Get("/", h.List)
		pr.Get("/{patientID}", h.Get)
	})
}

func registerTrialRoutes(r chi.Router, h *handlers.TrialHandler) {
	if h == nil {
		return
	}
	r.Route("/trials", func(tr chi.Router) {
		tr.Get("/", h.List)
		tr.Post("/sync", h.Sync)
		tr.Get("/search", h.Search)
		tr.Get("/{trialID}", h.Get)
	})
}

func registerIntakeRoutes(r chi.Router, h *handlers.IntakeHandler) {
	if h == nil {
		return
	}
	r.Post("/intake/transcripts", h.ProcessTranscript)
}
