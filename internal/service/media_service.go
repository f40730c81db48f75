package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/realify/realify-backend/internal/domain"
	"github.com/realify/realify-backend/internal/repository"
	"github.com/realify/realify-backend/pkg/logger"
)

// MediaService хранит и отдает файлы изображений
type MediaService interface {
	// Save валидирует и сохраняет файл, возвращает запись с присвоенным id.
	Save(ctx context.Context, userID string, img domain.UploadedImage) (*domain.Media, error)

	// Get возвращает файл по идентификатору.
	Get(ctx context.Context, id uuid.UUID) (*domain.Media, error)
}

type mediaService struct {
	repo repository.MediaRepository
	log  *logger.Logger
}

// NewMediaService создает новый сервис хранения файлов
func NewMediaService(repo repository.MediaRepository, log *logger.Logger) MediaService {
	return &mediaService{
		repo: repo,
		log:  log,
	}
}

// Save валидирует и сохраняет файл
func (s *mediaService) Save(ctx context.Context, userID string, img domain.UploadedImage) (*domain.Media, error) {
	if len(img.Data) == 0 {
		return nil, fmt.Errorf("%w: empty file", repository.ErrInvalidData)
	}
	if len(img.Data) > domain.MaxMediaBytes {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", repository.ErrInvalidData, domain.MaxMediaBytes)
	}

	contentType := img.ContentType
	if contentType == "" {
		contentType = "image/png"
	}
	if !domain.AllowedMediaType(contentType) {
		return nil, fmt.Errorf("%w: unsupported content type %s", repository.ErrInvalidData, contentType)
	}

	media := domain.Media{
		ID:          uuid.New(),
		UserID:      userID,
		ContentType: contentType,
		Data:        img.Data,
		CreatedAt:   time.Now(),
	}

	if err := s.repo.Insert(ctx, media); err != nil {
		return nil, err
	}

	s.log.Debugw("Media saved", "mediaID", media.ID, "userID", userID, "size", len(img.Data))
	return &media, nil
}

// Get возвращает файл по идентификатору
func (s *mediaService) Get(ctx context.Context, id uuid.UUID) (*domain.Media, error) {
	return s.repo.Get(ctx, id)
}
