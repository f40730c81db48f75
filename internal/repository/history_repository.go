package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/realify/realify-backend/internal/domain"
	"github.com/realify/realify-backend/pkg/logger"
)

// HistoryRepository хранит историю генераций (только добавление)
type HistoryRepository interface {
	// Insert добавляет запись в историю.
	Insert(ctx context.Context, record domain.HistoryRecord) error

	// ListByUser возвращает записи пользователя, новые первыми.
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.HistoryRecord, error)
}

// InMemoryHistoryRepository реализация истории генераций в памяти
type InMemoryHistoryRepository struct {
	records []domain.HistoryRecord
	mutex   sync.RWMutex
	log     *logger.Logger
}

// NewInMemoryHistoryRepository создает новую историю генераций в памяти
func NewInMemoryHistoryRepository(log *logger.Logger) *InMemoryHistoryRepository {
	return &InMemoryHistoryRepository{
		log: log,
	}
}

// Insert добавляет запись в историю
func (r *InMemoryHistoryRepository) Insert(ctx context.Context, record domain.HistoryRecord) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	r.records = append(r.records, record)

	return nil
}

// ListByUser возвращает записи пользователя, новые первыми
func (r *InMemoryHistoryRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.HistoryRecord, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var records []domain.HistoryRecord
	for _, record := range r.records {
		if record.UserID == userID {
			records = append(records, record)
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	return records, nil
}

// PostgresHistoryRepository реализация истории генераций через PostgreSQL
type PostgresHistoryRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewPostgresHistoryRepository создает новую историю генераций через PostgreSQL
func NewPostgresHistoryRepository(db *pgxpool.Pool, log *logger.Logger) *PostgresHistoryRepository {
	return &PostgresHistoryRepository{
		db:  db,
		log: log,
	}
}

// Insert добавляет запись в историю в базе данных
func (r *PostgresHistoryRepository) Insert(ctx context.Context, record domain.HistoryRecord) error {
	query := `
		INSERT INTO generations (id, user_id, prompt, model, aspect_ratio, image_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := r.db.Exec(ctx, query,
		record.ID,
		record.UserID,
		record.Prompt,
		record.Model,
		record.AspectRatio,
		record.ImageURL,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert history record: %w", err)
	}

	return nil
}

// ListByUser возвращает записи пользователя из базы данных, новые первыми
func (r *PostgresHistoryRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.HistoryRecord, error) {
	query := `
		SELECT id, user_id, prompt, model, aspect_ratio, image_url, created_at
		FROM generations
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var records []domain.HistoryRecord
	for rows.Next() {
		var record domain.HistoryRecord
		err := rows.Scan(
			&record.ID,
			&record.UserID,
			&record.Prompt,
			&record.Model,
			&record.AspectRatio,
			&record.ImageURL,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history records: %w", err)
	}

	return records, nil
}
