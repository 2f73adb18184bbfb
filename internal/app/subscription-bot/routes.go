// Package subscriptionbot собирает приложение бота: хранилище, кеш,
// клиент Telegram, сервисы и HTTP-сервер вебхука и административного API.
package subscriptionbot

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/ar2em/subscription-bot/internal/config"
	"github.com/ar2em/subscription-bot/internal/http/handlers/admin/broadcast"
	"github.com/ar2em/subscription-bot/internal/http/handlers/admin/cancellations"
	"github.com/ar2em/subscription-bot/internal/http/handlers/admin/export"
	"github.com/ar2em/subscription-bot/internal/http/handlers/admin/grant"
	"github.com/ar2em/subscription-bot/internal/http/handlers/admin/login"
	"github.com/ar2em/subscription-bot/internal/http/handlers/admin/message"
	"github.com/ar2em/subscription-bot/internal/http/handlers/admin/revoke"
	"github.com/ar2em/subscription-bot/internal/http/handlers/admin/stats"
	"github.com/ar2em/subscription-bot/internal/http/handlers/admin/users"
	"github.com/ar2em/subscription-bot/internal/http/handlers/payment/webhook"
	"github.com/ar2em/subscription-bot/internal/http/middlewarectx"
	"github.com/ar2em/subscription-bot/internal/lib/jwt"
	"github.com/ar2em/subscription-bot/internal/paymentgateway"
	broadcastservice "github.com/ar2em/subscription-bot/internal/services/broadcast"
	enforcerservice "github.com/ar2em/subscription-bot/internal/services/enforcer"
	paymentservice "github.com/ar2em/subscription-bot/internal/services/payment"
	subscriptionservice "github.com/ar2em/subscription-bot/internal/services/subscription"
)

// RegisterRoutes регистрирует все маршруты приложения: вебхук платёжного
// провайдера (без аутентификации) и административный API за JWT.
func RegisterRoutes(r chi.Router, logger *slog.Logger, cfg *config.Config, maker jwt.Maker,
	gateway paymentgateway.Gateway,
	paymentService *paymentservice.Service,
	subscriptionService *subscriptionservice.Service,
	enforcerService *enforcerservice.Service,
	broadcastService *broadcastservice.Service) {
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	// Вебхук подписан HMAC-подписью провайдера, JWT здесь не нужен.
	r.Post(cfg.WebhookPath, webhook.New(logger, gateway, paymentService).ServeHTTP)

	r.Route("/admin", func(r chi.Router) {
		r.Post("/login", login.New(logger, maker, cfg.AdminIDs, cfg.Admin.KeyHash).ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(maker, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Get("/stats", stats.New(logger, subscriptionService).ServeHTTP)
			r.Get("/users", users.New(logger, subscriptionService).ServeHTTP)
			r.Get("/cancellations", cancellations.New(logger, subscriptionService).ServeHTTP)
			r.Get("/export", export.New(logger, subscriptionService).ServeHTTP)
			r.Post("/grant", grant.New(logger, paymentService).ServeHTTP)
			r.Post("/revoke", revoke.New(logger, enforcerService).ServeHTTP)
			r.Post("/broadcast", broadcast.New(logger, broadcastService).ServeHTTP)
			r.Post("/message", message.New(logger, broadcastService).ServeHTTP)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
