package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/samia-tarot/samia-tarot-backend/api/controllers"
	ordercontrollers "github.com/samia-tarot/samia-tarot-backend/api/controllers/orders"
	"github.com/samia-tarot/samia-tarot-backend/api/middleware"
	"github.com/samia-tarot/samia-tarot-backend/internal/audit"
	"github.com/samia-tarot/samia-tarot-backend/internal/notifications"
	"github.com/samia-tarot/samia-tarot-backend/internal/orders"
	"github.com/samia-tarot/samia-tarot-backend/pkg/config"
	"github.com/samia-tarot/samia-tarot-backend/pkg/logger"
	"github.com/samia-tarot/samia-tarot-backend/pkg/redis"
)

type RouterParams struct {
	Config               *config.Config
	Logger               *logger.Logger
	IdempotencyStore     redis.IdempotencyStore
	RateLimitStore       middleware.RateLimitStore
	HealthChecks         map[string]controllers.Pinger
	MetricsGatherer      prometheus.Gatherer
	OrdersService        orders.Service
	AuditService         audit.Service
	NotificationsService notifications.Service
}

func NewRouter(p RouterParams) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(p.Logger),
		middleware.RequestID(p.Logger),
		middleware.Logging(p.Logger),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(p.Config))
		r.Get("/ready", controllers.HealthReady(p.Config, p.Logger, p.HealthChecks))
	})

	if p.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.MetricsGatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(p.Config.JWT, p.Logger))
		if p.RateLimitStore != nil {
			policy := middleware.NewTransitionRateLimitPolicy(
				p.Config.RateLimit.Window,
				p.Config.RateLimit.TransitionsPerWindow,
			)
			r.Use(middleware.TransitionRateLimit(policy, p.RateLimitStore, p.Logger))
		}
		if p.IdempotencyStore != nil {
			r.Use(middleware.Idempotency(p.IdempotencyStore, p.Logger))
		}

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", ordercontrollers.Create(p.OrdersService, p.Logger))
			r.Get("/", ordercontrollers.List(p.OrdersService, p.Logger))
			r.Get("/{orderID}", ordercontrollers.Detail(p.OrdersService, p.Logger))
			r.With(middleware.RequireStaff(p.Logger)).Get("/{orderID}/audit", ordercontrollers.AuditTrail(p.AuditService, p.Logger))
			r.Post("/{orderID}/assign", ordercontrollers.Assign(p.OrdersService, p.Logger))
			r.Post("/{orderID}/submit-output", ordercontrollers.SubmitOutput(p.OrdersService, p.Logger))
			r.Post("/{orderID}/approve", ordercontrollers.Approve(p.OrdersService, p.Logger))
			r.Post("/{orderID}/reject", ordercontrollers.Reject(p.OrdersService, p.Logger))
			r.Post("/{orderID}/deliver", ordercontrollers.Deliver(p.OrdersService, p.Logger))
			r.Post("/{orderID}/cancel", ordercontrollers.Cancel(p.OrdersService, p.Logger))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(p.NotificationsService, p.Logger))
			r.Post("/{notificationID}/read", controllers.MarkNotificationRead(p.NotificationsService, p.Logger))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(p.NotificationsService, p.Logger))
		})
	})

	return r
}
