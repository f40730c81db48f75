package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/realify/realify-backend/pkg/logger"
)

// EventRepository хранит идентификаторы обработанных Stripe-событий
type EventRepository interface {
	// MarkProcessed отмечает событие обработанным.
	// Возвращает true, если событие видим впервые, и false для повторной доставки.
	MarkProcessed(ctx context.Context, eventID string) (bool, error)
}

// InMemoryEventRepository реализация хранилища событий в памяти
type InMemoryEventRepository struct {
	seen  map[string]bool
	mutex sync.Mutex
	log   *logger.Logger
}

// NewInMemoryEventRepository создает новое хранилище событий в памяти
func NewInMemoryEventRepository(log *logger.Logger) *InMemoryEventRepository {
	return &InMemoryEventRepository{
		seen: make(map[string]bool),
		log:  log,
	}
}

// MarkProcessed отмечает событие обработанным
func (r *InMemoryEventRepository) MarkProcessed(ctx context.Context, eventID string) (bool, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.seen[eventID] {
		return false, nil
	}

	r.seen[eventID] = true
	return true, nil
}

// PostgresEventRepository реализация хранилища событий через PostgreSQL
type PostgresEventRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewPostgresEventRepository создает новое хранилище событий через PostgreSQL
func NewPostgresEventRepository(db *pgxpool.Pool, log *logger.Logger) *PostgresEventRepository {
	return &PostgresEventRepository{
		db:  db,
		log: log,
	}
}

// MarkProcessed отмечает событие обработанным.
// Вставка с ON CONFLICT DO NOTHING: первая доставка затрагивает строку, повторные нет.
func (r *PostgresEventRepository) MarkProcessed(ctx context.Context, eventID string) (bool, error) {
	query := `
		INSERT INTO stripe_events (event_id, processed_at)
		VALUES ($1, now())
		ON CONFLICT (event_id) DO NOTHING
	`

	result, err := r.db.Exec(ctx, query, eventID)
	if err != nil {
		return false, fmt.Errorf("failed to mark event processed: %w", err)
	}

	return result.RowsAffected() == 1, nil
}
