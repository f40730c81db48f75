package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/realify/realify-backend/internal/domain"
	"github.com/realify/realify-backend/internal/integration/replicate"
	"github.com/realify/realify-backend/internal/metrics"
	"github.com/realify/realify-backend/internal/repository"
	"github.com/realify/realify-backend/pkg/logger"
)

// GenerationInput параметры одной генерации
type GenerationInput struct {
	UserID         string
	Prompt         string
	Model          domain.Model
	AspectRatio    string
	OutputFormat   string
	NegativePrompt string
	Seed           *int64
	Quality        domain.Quality
	Images         []domain.UploadedImage
}

// GenerationResult результат успешной генерации
type GenerationResult struct {
	ImageURL       string `json:"image_url"`
	Cost           int64  `json:"cost"`
	UnitsRemaining int64  `json:"units_remaining"`
}

// GenerationService проводит генерацию через провайдера и ведет историю
type GenerationService interface {
	// Generate выполняет полный цикл: проверка баланса, запуск модели,
	// сохранение результата, списание юнитов.
	Generate(ctx context.Context, input GenerationInput) (*GenerationResult, error)

	// Gallery возвращает последние генерации пользователя, новые первыми.
	Gallery(ctx context.Context, userID string, limit int) []domain.HistoryRecord
}

type generationService struct {
	runner  replicate.Runner
	ledger  LedgerService
	history repository.HistoryRepository
	media   MediaService
	metrics metrics.UsageMetrics
	log     *logger.Logger
}

// NewGenerationService создает новый сервис генераций
func NewGenerationService(
	runner replicate.Runner,
	ledger LedgerService,
	history repository.HistoryRepository,
	media MediaService,
	usageMetrics metrics.UsageMetrics,
	log *logger.Logger,
) GenerationService {
	return &generationService{
		runner:  runner,
		ledger:  ledger,
		history: history,
		media:   media,
		metrics: usageMetrics,
		log:     log,
	}
}

// Статусы генераций для метрик
const (
	generationStatusSuccess = "success"
	generationStatusFailed  = "failed"
	generationStatusBusy    = "busy"
)

// Generate выполняет полный цикл генерации.
// Списание юнитов идет строго после успеха: неудачная генерация бесплатна.
func (s *generationService) Generate(ctx context.Context, input GenerationInput) (*GenerationResult, error) {
	if input.Prompt == "" {
		return nil, domain.ErrMissingPrompt
	}

	quality := domain.SafeQuality(string(input.Quality))
	cost := domain.UnitCost(input.Model, quality)

	if err := s.ledger.Authorize(ctx, input.UserID, cost); err != nil {
		return nil, err
	}

	modelID, providerInput := s.buildProviderInput(input, quality)

	start := time.Now()
	output, err := s.runner.Run(ctx, modelID, providerInput)
	s.metrics.ObserveGenerationDuration(string(input.Model), time.Since(start).Seconds())

	if err != nil {
		if replicate.IsOverloaded(err) {
			s.metrics.IncGeneration(string(input.Model), generationStatusBusy)
			s.log.Warnw("Provider overloaded", "model", input.Model, "userID", input.UserID)
			return nil, fmt.Errorf("%w: %v", domain.ErrServersBusy, err)
		}
		s.metrics.IncGeneration(string(input.Model), generationStatusFailed)
		s.log.Errorw("Provider run failed", "error", err, "model", input.Model, "userID", input.UserID)
		return nil, fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}

	result, err := replicate.Extract(output)
	if err != nil {
		s.metrics.IncGeneration(string(input.Model), generationStatusFailed)
		s.log.Errorw("Failed to extract image from provider output", "error", err, "model", input.Model, "userID", input.UserID)
		return nil, fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}

	imageURL := result.URL
	if result.Kind == replicate.KindBytes {
		media, err := s.media.Save(ctx, input.UserID, domain.UploadedImage{
			ContentType: result.ContentType,
			Data:        result.Bytes,
		})
		if err != nil {
			s.metrics.IncGeneration(string(input.Model), generationStatusFailed)
			return nil, fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
		}
		imageURL = "/media/" + media.ID.String()
	}

	record := domain.HistoryRecord{
		ID:          uuid.New(),
		UserID:      input.UserID,
		Prompt:      input.Prompt,
		Model:       input.Model,
		AspectRatio: providerInput["aspect_ratio"].(string),
		ImageURL:    imageURL,
		CreatedAt:   time.Now(),
	}
	if err := s.history.Insert(ctx, record); err != nil {
		// Результат важнее записи в историю
		s.log.Warnw("Failed to insert history record", "error", err, "userID", input.UserID)
	}

	remaining := s.ledger.Consume(ctx, input.UserID, cost, string(input.Model))
	s.metrics.IncGeneration(string(input.Model), generationStatusSuccess)

	return &GenerationResult{
		ImageURL:       imageURL,
		Cost:           cost,
		UnitsRemaining: remaining,
	}, nil
}

// buildProviderInput собирает вход модели из нормализованных параметров
func (s *generationService) buildProviderInput(input GenerationInput, quality domain.Quality) (string, map[string]any) {
	aspectRatio := domain.NormalizeAspectRatio(input.Model, input.AspectRatio)
	outputFormat := domain.NormalizeOutputFormat(input.OutputFormat)

	providerInput := map[string]any{
		"prompt":        input.Prompt,
		"aspect_ratio":  aspectRatio,
		"output_format": outputFormat,
	}

	if input.Model == domain.ModelGPT {
		providerInput["quality"] = string(quality)
		if len(input.Images) > 0 {
			dataURIs := make([]string, 0, len(input.Images))
			for _, img := range input.Images {
				dataURIs = append(dataURIs, toDataURI(img))
			}
			providerInput["input_images"] = dataURIs
		}
		return domain.ReplicateModelGPT, providerInput
	}

	if input.NegativePrompt != "" {
		providerInput["negative_prompt"] = input.NegativePrompt
	}
	if input.Seed != nil {
		providerInput["seed"] = *input.Seed
	}
	return domain.ReplicateModelIdeogram, providerInput
}

// toDataURI кодирует референсное изображение в data URI для провайдера
func toDataURI(img domain.UploadedImage) string {
	contentType := img.ContentType
	if contentType == "" {
		contentType = "image/png"
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// Gallery возвращает последние генерации пользователя.
// Любой сбой дает пустую галерею, а не ошибку: фронтенд показывает пустое состояние.
func (s *generationService) Gallery(ctx context.Context, userID string, limit int) []domain.HistoryRecord {
	records, err := s.history.ListByUser(ctx, userID, limit)
	if err != nil {
		s.log.Warnw("Failed to load gallery", "error", err, "userID", userID)
		return []domain.HistoryRecord{}
	}
	if records == nil {
		return []domain.HistoryRecord{}
	}
	return records
}
