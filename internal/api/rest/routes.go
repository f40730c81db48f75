package rest

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/realify/realify-backend/internal/api/rest/handlers"
	restmiddleware "github.com/realify/realify-backend/internal/api/rest/middleware"
	"github.com/realify/realify-backend/internal/middleware"
	"github.com/realify/realify-backend/pkg/logger"
)

// Handlers собирает обработчики для маршрутизатора
type Handlers struct {
	Auth         *middleware.JWTMiddleware
	Webhook      *handlers.WebhookHandler
	Generation   *handlers.GenerationHandler
	Billing      *handlers.BillingHandler
	Subscription *handlers.SubscriptionHandler
	Gallery      *handlers.GalleryHandler
	Media        *handlers.MediaHandler
}

// SetupRouter настраивает маршрутизатор Gin с маршрутами и middleware
func SetupRouter(log *logger.Logger, registry *prometheus.Registry, h Handlers) *gin.Engine {
	r := gin.New()

	// Подключение middleware
	r.Use(restmiddleware.LoggerMiddleware(log))
	r.Use(gin.Recovery())

	// Endpoint для проверки работоспособности сервиса
	r.GET("/health", handlers.HealthCheck)

	// Prometheus метрики
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// Публичная выдача сохраненных изображений
	r.GET("/media/:id", h.Media.Serve)

	// Вебхуки на корневом уровне роутера
	webhooks := r.Group("/webhooks")
	{
		webhooks.POST("/stripe", h.Webhook.HandleStripeWebhook)
	}

	v1 := r.Group("/api/v1")
	{
		// Генерации
		generate := v1.Group("/generate", h.Auth.RequireAuth())
		{
			generate.POST("/ideogram", h.Generation.GenerateIdeogram)
			generate.POST("/gpt", h.Generation.GenerateGPT)
		}

		// Загрузка референсов
		v1.POST("/upload", h.Auth.RequireAuth(), h.Media.Upload)

		// Галерея отдает пустой список без аутентификации
		v1.GET("/gallery", h.Auth.OptionalAuth(), h.Gallery.List)

		// Состояние подписки
		subscription := v1.Group("/subscription")
		{
			subscription.GET("/status", h.Auth.OptionalAuth(), h.Subscription.Status)
			subscription.GET("/summary", h.Auth.RequireAuth(), h.Subscription.Summary)
		}

		// Биллинг
		billing := v1.Group("/billing", h.Auth.RequireAuth())
		{
			billing.POST("/checkout", h.Billing.Checkout)
			billing.POST("/credits-checkout", h.Billing.CreditsCheckout)
			billing.POST("/portal", h.Billing.Portal)
		}
	}

	return r
}
