package db

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/realify/realify-backend/pkg/logger"
)

// Client представляет клиент для работы с базой данных.
type Client struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// NewClient создает пул соединений и проверяет доступность базы.
// На старте база может подниматься параллельно с сервисом, поэтому пингуем с повторами.
func NewClient(ctx context.Context, dsn string, log *logger.Logger) (*Client, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		log.Errorw("Failed to create database pool", "error", err)
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	ping := func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return pool.Ping(pingCtx)
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.MaxElapsedTime = 30 * time.Second

	if err := backoff.Retry(ping, backoff.WithContext(expBackoff, ctx)); err != nil {
		pool.Close()
		log.Errorw("Failed to ping database", "error", err)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Infow("Database connection established")
	return &Client{pool: pool, log: log}, nil
}

// Pool возвращает пул соединений для репозиториев.
func (c *Client) Pool() *pgxpool.Pool {
	return c.pool
}

// Close закрывает пул соединений.
func (c *Client) Close() {
	c.pool.Close()
}
