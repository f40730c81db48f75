package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/realify/realify-backend/config"
	"github.com/realify/realify-backend/internal/api/rest"
	"github.com/realify/realify-backend/internal/api/rest/handlers"
	"github.com/realify/realify-backend/internal/db"
	"github.com/realify/realify-backend/internal/integration/replicate"
	stripegw "github.com/realify/realify-backend/internal/integration/stripe"
	"github.com/realify/realify-backend/internal/kafka"
	"github.com/realify/realify-backend/internal/metrics"
	"github.com/realify/realify-backend/internal/middleware"
	"github.com/realify/realify-backend/internal/repository"
	"github.com/realify/realify-backend/internal/service"
	"github.com/realify/realify-backend/pkg/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := initLogger()
	log.Infow("Realify backend starting up...")

	// .env нужен только для локальной разработки
	if err := godotenv.Load(); err != nil {
		log.Debugw("No .env file loaded", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalw("Failed to load configuration", "error", err)
	}

	if os.Getenv("APP_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Подключаемся к базе данных
	dbClient, err := db.NewClient(ctx, cfg.Database.GetDSN(), log)
	if err != nil {
		log.Fatalw("Failed to connect to database", "error", err)
	}
	defer dbClient.Close()

	// Инициализируем Redis кеш, без него работаем напрямую с базой
	var redisCache *repository.RedisCacheRepository
	if cfg.Redis.Enabled {
		redisCache, err = repository.NewRedisCacheRepository(
			cfg.Redis.Addr,
			cfg.Redis.Password,
			cfg.Redis.DB,
			log,
		)
		if err != nil {
			log.Warnw("Failed to initialize Redis cache, continuing without caching", "error", err)
			redisCache = nil
		} else {
			defer func() {
				if err := redisCache.Close(); err != nil {
					log.Errorw("Error closing Redis connection", "error", err)
				}
			}()
		}
	}

	// Репозитории
	var ledgerRepo repository.LedgerRepository = repository.NewPostgresLedgerRepository(dbClient.Pool(), log)
	if redisCache != nil {
		ledgerRepo = repository.NewCachedLedgerRepository(ledgerRepo, redisCache, log)
		log.Infow("Using cached ledger repository")
	}
	eventRepo := repository.NewPostgresEventRepository(dbClient.Pool(), log)
	historyRepo := repository.NewPostgresHistoryRepository(dbClient.Pool(), log)
	mediaRepo := repository.NewPostgresMediaRepository(dbClient.Pool(), log)

	// Kafka producer, события использования не критичны для основного флоу
	var producer kafka.Producer
	if cfg.Kafka.Enabled {
		producer, err = kafka.NewKafkaProducer(cfg.Kafka.Brokers, log)
		if err != nil {
			log.Warnw("Failed to initialize Kafka producer, continuing without event publishing", "error", err)
			producer = nil
		} else {
			defer func() {
				if err := producer.Close(); err != nil {
					log.Errorw("Error closing Kafka producer", "error", err)
				}
			}()
		}
	}

	// Метрики
	registry := prometheus.NewRegistry()
	usageMetrics := metrics.NewUsageMetrics(registry, log)

	// Внешние интеграции
	stripeGateway := stripegw.NewGateway(cfg.Stripe.APIKey, log)
	webhookVerifier := stripegw.NewWebhookVerifier(cfg.Stripe.WebhookSecret, log)

	runner, err := replicate.NewRunner(cfg.Replicate.APIToken, log)
	if err != nil {
		log.Fatalw("Failed to initialize Replicate client", "error", err)
	}

	// Сервисы
	ledgerService := service.NewLedgerService(ledgerRepo, producer, usageMetrics, log)
	mediaService := service.NewMediaService(mediaRepo, log)
	generationService := service.NewGenerationService(runner, ledgerService, historyRepo, mediaService, usageMetrics, log)
	billingService := service.NewBillingService(stripeGateway, &cfg.Stripe, log)
	webhookService := service.NewWebhookService(eventRepo, ledgerService, &cfg.Stripe, usageMetrics, log)

	// Аутентификация
	validator := &middleware.DefaultTokenValidator{
		Secret: []byte(cfg.Auth.JWTSecret),
	}
	authMiddleware := middleware.NewJWTMiddleware(log, validator)

	// HTTP сервер
	router := rest.SetupRouter(log, registry, rest.Handlers{
		Auth:         authMiddleware,
		Webhook:      handlers.NewWebhookHandler(webhookVerifier, webhookService, log),
		Generation:   handlers.NewGenerationHandler(generationService, log),
		Billing:      handlers.NewBillingHandler(billingService, ledgerService, log),
		Subscription: handlers.NewSubscriptionHandler(ledgerService, log),
		Gallery:      handlers.NewGalleryHandler(generationService, log),
		Media:        handlers.NewMediaHandler(mediaService, log),
	})

	server := rest.NewServer(router, cfg, log)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalw("Failed to start HTTP server", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Infow("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("HTTP server shutdown error", "error", err)
	}

	log.Infow("Cleanup finished. Goodbye!")
}

// initLogger инициализирует новый логгер
func initLogger() *logger.Logger {
	logLevel := logger.INFO
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = logger.DEBUG
	}
	return logger.New(logLevel)
}
