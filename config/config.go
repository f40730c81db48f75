package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/realify/realify-backend/internal/domain"
)

// Config конфигурация приложения
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Stripe    StripeConfig
	Replicate ReplicateConfig
	Auth      AuthConfig
	Logging   LoggingConfig
}

// ServerConfig настройки HTTP-сервера
type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// GetDSN возвращает строку подключения к базе данных
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

// RedisConfig настройки Redis
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// KafkaConfig настройки Kafka
type KafkaConfig struct {
	Enabled bool
	Brokers []string
}

// StripeConfig ключи и прайсы Stripe
type StripeConfig struct {
	APIKey        string
	WebhookSecret string

	PriceStarter string
	PriceCreator string
	PricePro     string

	PriceCreditsSmall  string
	PriceCreditsMedium string
	PriceCreditsLarge  string

	SiteURL string
}

// PlanPrice возвращает Stripe price id для тарифного плана
func (c *StripeConfig) PlanPrice(plan domain.Plan) (string, bool) {
	switch plan {
	case domain.PlanStarter:
		return c.PriceStarter, c.PriceStarter != ""
	case domain.PlanCreator:
		return c.PriceCreator, c.PriceCreator != ""
	case domain.PlanPro:
		return c.PricePro, c.PricePro != ""
	}
	return "", false
}

// BundlePrice возвращает Stripe price id для пакета юнитов
func (c *StripeConfig) BundlePrice(bundle domain.Bundle) (string, bool) {
	switch bundle {
	case domain.BundleSmall:
		return c.PriceCreditsSmall, c.PriceCreditsSmall != ""
	case domain.BundleMedium:
		return c.PriceCreditsMedium, c.PriceCreditsMedium != ""
	case domain.BundleLarge:
		return c.PriceCreditsLarge, c.PriceCreditsLarge != ""
	}
	return "", false
}

// PriceToPlan сопоставляет Stripe price id тарифному плану
func (c *StripeConfig) PriceToPlan(priceID string) (domain.Plan, bool) {
	switch priceID {
	case "":
		return "", false
	case c.PriceStarter:
		return domain.PlanStarter, true
	case c.PriceCreator:
		return domain.PlanCreator, true
	case c.PricePro:
		return domain.PlanPro, true
	}
	return "", false
}

// ReplicateConfig настройки провайдера генерации
type ReplicateConfig struct {
	APIToken string
}

// AuthConfig настройки аутентификации
type AuthConfig struct {
	JWTSecret string
}

// LoggingConfig настройки логирования
type LoggingConfig struct {
	Level string
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     time.Duration(getEnvAsInt("SERVER_READ_TIMEOUT", 15)) * time.Second,
			WriteTimeout:    time.Duration(getEnvAsInt("SERVER_WRITE_TIMEOUT", 60)) * time.Second,
			ShutdownTimeout: time.Duration(getEnvAsInt("SERVER_SHUTDOWN_TIMEOUT", 10)) * time.Second,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Database: getEnv("DB_NAME", "realify"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Enabled: getEnvAsBool("KAFKA_ENABLED", false),
			Brokers: strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		},
		Stripe: StripeConfig{
			APIKey:             getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret:      getEnv("STRIPE_WEBHOOK_SECRET", ""),
			PriceStarter:       getEnv("STRIPE_PRICE_STARTER", ""),
			PriceCreator:       getEnv("STRIPE_PRICE_CREATOR", ""),
			PricePro:           getEnv("STRIPE_PRICE_PRO", ""),
			PriceCreditsSmall:  getEnv("STRIPE_PRICE_CREDITS_SMALL", ""),
			PriceCreditsMedium: getEnv("STRIPE_PRICE_CREDITS_MEDIUM", ""),
			PriceCreditsLarge:  getEnv("STRIPE_PRICE_CREDITS_LARGE", ""),
			SiteURL:            getEnv("SITE_URL", "http://localhost:3000"),
		},
		Replicate: ReplicateConfig{
			APIToken: getEnv("REPLICATE_API_TOKEN", ""),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if cfg.Stripe.APIKey == "" {
		return nil, fmt.Errorf("STRIPE_SECRET_KEY is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

// getEnv возвращает значение переменной окружения или значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt возвращает значение переменной окружения как int
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool возвращает значение переменной окружения как bool
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
