package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/realify/realify-backend/internal/domain"
	"github.com/realify/realify-backend/pkg/logger"
)

// MediaRepository хранит байты сгенерированных и загруженных изображений
type MediaRepository interface {
	// Insert сохраняет файл.
	Insert(ctx context.Context, media domain.Media) error

	// Get возвращает файл по идентификатору.
	Get(ctx context.Context, id uuid.UUID) (*domain.Media, error)
}

// InMemoryMediaRepository реализация хранилища файлов в памяти
type InMemoryMediaRepository struct {
	files map[uuid.UUID]domain.Media
	mutex sync.RWMutex
	log   *logger.Logger
}

// NewInMemoryMediaRepository создает новое хранилище файлов в памяти
func NewInMemoryMediaRepository(log *logger.Logger) *InMemoryMediaRepository {
	return &InMemoryMediaRepository{
		files: make(map[uuid.UUID]domain.Media),
		log:   log,
	}
}

// Insert сохраняет файл
func (r *InMemoryMediaRepository) Insert(ctx context.Context, media domain.Media) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if media.CreatedAt.IsZero() {
		media.CreatedAt = time.Now()
	}
	r.files[media.ID] = media

	return nil
}

// Get возвращает файл по идентификатору
func (r *InMemoryMediaRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Media, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	media, exists := r.files[id]
	if !exists {
		return nil, ErrNotFound
	}

	return &media, nil
}

// PostgresMediaRepository реализация хранилища файлов через PostgreSQL
type PostgresMediaRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewPostgresMediaRepository создает новое хранилище файлов через PostgreSQL
func NewPostgresMediaRepository(db *pgxpool.Pool, log *logger.Logger) *PostgresMediaRepository {
	return &PostgresMediaRepository{
		db:  db,
		log: log,
	}
}

// Insert сохраняет файл в базе данных
func (r *PostgresMediaRepository) Insert(ctx context.Context, media domain.Media) error {
	query := `
		INSERT INTO media (id, user_id, content_type, data, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	createdAt := media.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := r.db.Exec(ctx, query,
		media.ID,
		media.UserID,
		media.ContentType,
		media.Data,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert media: %w", err)
	}

	return nil
}

// Get возвращает файл по идентификатору из базы данных
func (r *PostgresMediaRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Media, error) {
	query := `
		SELECT id, user_id, content_type, data, created_at
		FROM media
		WHERE id = $1
	`

	var media domain.Media
	err := r.db.QueryRow(ctx, query, id).Scan(
		&media.ID,
		&media.UserID,
		&media.ContentType,
		&media.Data,
		&media.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get media: %w", err)
	}

	return &media, nil
}
