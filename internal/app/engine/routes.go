package engine

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/storage-quota-engine/internal/http/handlers/storage/health"
	"github.com/magabrotheeeer/storage-quota-engine/internal/http/handlers/storage/status"
	webhooksubscription "github.com/magabrotheeeer/storage-quota-engine/internal/http/handlers/webhook/subscription"
	"github.com/magabrotheeeer/storage-quota-engine/internal/http/middlewarectx"
	grantservice "github.com/magabrotheeeer/storage-quota-engine/internal/services/grant"
	quotaservice "github.com/magabrotheeeer/storage-quota-engine/internal/services/quota"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger,
	quotaService *quotaservice.QuotaService, grantService *grantservice.GrantService,
	webhookSecret string) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Get("/storage/status/{uid}", status.New(logger, quotaService).ServeHTTP)
		})

		// Webhook endpoint биллинга (подпись вместо аутентификации)
		r.Post("/webhooks/subscription", webhooksubscription.New(logger, grantService, webhookSecret).ServeHTTP)
	})

	r.Get("/health", health.New(logger).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
