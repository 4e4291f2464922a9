// Package insights предоставляет маршруты основного приложения.
package insights

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/bookinsights/insights-backend/internal/config"
	"github.com/bookinsights/insights-backend/internal/http/handlers/admin/insightcreate"
	"github.com/bookinsights/insights-backend/internal/http/handlers/admin/liveclasscreate"
	"github.com/bookinsights/insights-backend/internal/http/handlers/admin/subscribers"
	"github.com/bookinsights/insights-backend/internal/http/handlers/auth/login"
	"github.com/bookinsights/insights-backend/internal/http/handlers/auth/register"
	"github.com/bookinsights/insights-backend/internal/http/handlers/billing/cancel"
	"github.com/bookinsights/insights-backend/internal/http/handlers/billing/checkout"
	"github.com/bookinsights/insights-backend/internal/http/handlers/billing/webhook"
	"github.com/bookinsights/insights-backend/internal/http/handlers/health"
	"github.com/bookinsights/insights-backend/internal/http/handlers/insights/list"
	"github.com/bookinsights/insights-backend/internal/http/handlers/insights/read"
	"github.com/bookinsights/insights-backend/internal/http/handlers/jobs/dailydigest"
	"github.com/bookinsights/insights-backend/internal/http/handlers/jobs/livereminders"
	classlist "github.com/bookinsights/insights-backend/internal/http/handlers/liveclasses/list"
	"github.com/bookinsights/insights-backend/internal/http/handlers/user/preferences"
	"github.com/bookinsights/insights-backend/internal/http/middlewarectx"
	"github.com/bookinsights/insights-backend/internal/lib/jwt"
	accessservice "github.com/bookinsights/insights-backend/internal/services/access"
	authservice "github.com/bookinsights/insights-backend/internal/services/auth"
	billingservice "github.com/bookinsights/insights-backend/internal/services/billing"
	contentservice "github.com/bookinsights/insights-backend/internal/services/content"
	jobsservice "github.com/bookinsights/insights-backend/internal/services/jobs"
	"github.com/bookinsights/insights-backend/internal/services/reconciler"
)

// Services зависимости HTTP-слоя.
type Services struct {
	Auth        *authservice.Service
	Access      *accessservice.Service
	Content     *contentservice.Service
	Billing     *billingservice.Service
	Reconciler  *reconciler.Service
	Jobs        *jobsservice.Service
	Subscribers subscribers.Service
	JWTMaker    jwt.Maker
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, s *Services, cfg *config.Config) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/register", register.New(logger, s.Auth).ServeHTTP)
		r.Post("/login", login.New(logger, s.Auth).ServeHTTP)
		r.Get("/insights", list.New(logger, s.Content).ServeHTTP)

		// Webhook платежного шлюза (без аутентификации, подпись в заголовке)
		r.Post("/webhooks/razorpay", webhook.New(logger, s.Reconciler, cfg.Razorpay.WebhookSecret).ServeHTTP)

		// Задачи по расписанию, защищены секретом планировщика
		r.Get("/jobs/daily-digest", dailydigest.New(logger, s.Jobs, cfg.CronSecret).ServeHTTP)
		r.Get("/jobs/live-reminders", livereminders.New(logger, s.Jobs, cfg.CronSecret).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(s.JWTMaker, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Get("/insights/{slug}", read.New(logger, s.Content, s.Access).ServeHTTP)
			r.Get("/live-classes", classlist.New(logger, s.Content, s.Access).ServeHTTP)
			r.Post("/billing/checkout", checkout.New(logger, s.Billing).ServeHTTP)
			r.Post("/billing/cancel", cancel.New(logger, s.Billing).ServeHTTP)
			r.Post("/user/preferences", preferences.New(logger, s.Auth).ServeHTTP)

			// Группа администратора
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.AdminMiddleware(logger))
				r.Post("/admin/insights", insightcreate.New(logger, s.Content).ServeHTTP)
				r.Post("/admin/live-classes", liveclasscreate.New(logger, s.Content).ServeHTTP)
				r.Get("/admin/subscribers", subscribers.NewList(logger, s.Subscribers).ServeHTTP)
				r.Get("/admin/subscribers/export", subscribers.NewExport(logger, s.Subscribers).ServeHTTP)
			})
		})
	})

	r.Get("/health", health.New(logger).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
