package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/QuaichGo/internal/domain"
	"github.com/utafrali/QuaichGo/pkg/health"
	"github.com/utafrali/QuaichGo/pkg/middleware"
)

const serviceName = "quaich"

// Services groups the use cases the HTTP layer exposes.
type Services struct {
	Meetings MeetingService
	Whiskies WhiskyService
	Votes    VoteService
	Members  MemberService
	Results  ResultsService
}

// RouterConfig holds the knobs of the HTTP layer.
type RouterConfig struct {
	VoteRatePerSecond float64
	VoteRateBurst     int
}

// NewRouter creates a chi router with all quaich routes registered.
func NewRouter(
	svc Services,
	validateToken middleware.TokenValidator,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.PrometheusMetrics(serviceName))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	meetings := NewMeetingHandler(svc.Meetings, svc.Whiskies, logger)
	whiskies := NewWhiskyHandler(svc.Whiskies, logger)
	votes := NewVoteHandler(svc.Votes, logger)
	members := NewMemberHandler(svc.Members, logger)
	results := NewResultsHandler(svc.Results, logger)

	admin := middleware.RequireRole(domain.RoleAdmin)
	voteLimit := middleware.RateLimit(cfg.VoteRatePerSecond, cfg.VoteRateBurst, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(validateToken))
		r.Use(middleware.RequestLogger(logger))

		r.Route("/meetings", func(r chi.Router) {
			r.Get("/", meetings.List)
			r.With(admin).Post("/", meetings.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", meetings.Get)
				r.With(admin).Put("/", meetings.Update)
				r.With(admin).Post("/close", meetings.Close)
				r.Get("/results", results.GetMeetingResults)
				r.Get("/whiskies", meetings.ListWhiskies)
				r.With(admin).Post("/whiskies", whiskies.Create)
			})
		})

		r.Route("/whiskies/{id}", func(r chi.Router) {
			r.With(admin).Put("/", whiskies.Update)
			r.With(admin).Delete("/", whiskies.Delete)
			r.Get("/aggregate", results.GetWhiskyAggregate)

			r.Group(func(r chi.Router) {
				r.Use(voteLimit)
				r.Post("/votes", votes.Cast)
				r.Put("/votes/me", votes.Update)
			})
		})

		r.Route("/members", func(r chi.Router) {
			r.Get("/", members.List)
			r.Get("/{id}", members.Get)
			r.With(admin).Post("/", members.Create)
			r.With(admin).Put("/{id}", members.Update)
			r.With(admin).Delete("/{id}", members.Delete)
		})
	})

	return r
}
