package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/realify/realify-backend/internal/domain"
	"github.com/realify/realify-backend/pkg/logger"
)

const (
	// Префикс ключей строк реестра юнитов
	ledgerKeyPrefix = "ledger:"

	// TTL для кэша
	defaultCacheTTL = 15 * time.Minute
)

// RedisCacheRepository реализует кеширование строк реестра с использованием Redis
type RedisCacheRepository struct {
	client *redis.Client
	log    *logger.Logger
}

// NewRedisCacheRepository создает новый экземпляр Redis репозитория
func NewRedisCacheRepository(redisAddr, redisPassword string, redisDB int, log *logger.Logger) (*RedisCacheRepository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       redisDB,
	})

	// Проверяем соединение с Redis
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Errorw("Failed to connect to Redis", "error", err)
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Infow("Connected to Redis successfully", "addr", redisAddr)
	return &RedisCacheRepository{
		client: client,
		log:    log,
	}, nil
}

// Close закрывает соединение с Redis
func (r *RedisCacheRepository) Close() error {
	return r.client.Close()
}

// CacheLedger кеширует строку реестра в Redis
func (r *RedisCacheRepository) CacheLedger(ctx context.Context, sub *domain.Subscription) error {
	key := fmt.Sprintf("%s%s", ledgerKeyPrefix, sub.UserID)

	data, err := json.Marshal(sub)
	if err != nil {
		r.log.Errorw("Failed to marshal ledger row for caching", "error", err, "userID", sub.UserID)
		return fmt.Errorf("failed to marshal ledger row: %w", err)
	}

	if err := r.client.Set(ctx, key, data, defaultCacheTTL).Err(); err != nil {
		r.log.Errorw("Failed to cache ledger row in Redis", "error", err, "userID", sub.UserID)
		return fmt.Errorf("failed to cache ledger row: %w", err)
	}

	r.log.Debugw("Ledger row cached successfully", "userID", sub.UserID)
	return nil
}

// GetCachedLedger получает строку реестра из кеша
func (r *RedisCacheRepository) GetCachedLedger(ctx context.Context, userID string) (*domain.Subscription, error) {
	key := fmt.Sprintf("%s%s", ledgerKeyPrefix, userID)

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			// Ключ не найден в кеше
			r.log.Debugw("Ledger row not found in cache", "userID", userID)
			return nil, nil
		}
		r.log.Errorw("Error getting ledger row from Redis", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to get ledger row from cache: %w", err)
	}

	var sub domain.Subscription
	if err := json.Unmarshal(data, &sub); err != nil {
		r.log.Errorw("Failed to unmarshal cached ledger row", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to unmarshal cached ledger row: %w", err)
	}

	r.log.Debugw("Ledger row retrieved from cache", "userID", userID)
	return &sub, nil
}

// InvalidateLedger удаляет строку реестра из кеша
func (r *RedisCacheRepository) InvalidateLedger(ctx context.Context, userID string) error {
	key := fmt.Sprintf("%s%s", ledgerKeyPrefix, userID)

	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.log.Errorw("Failed to invalidate ledger cache", "error", err, "userID", userID)
		return fmt.Errorf("failed to invalidate ledger cache: %w", err)
	}

	r.log.Debugw("Ledger cache invalidated", "userID", userID)
	return nil
}
