package replicate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/replicate/replicate-go"

	"github.com/realify/realify-backend/pkg/logger"
)

// Runner определяет запуск модели генерации у провайдера.
type Runner interface {
	// Run запускает модель и возвращает сырой вывод провайдера.
	Run(ctx context.Context, model string, input map[string]any) (any, error)
}

// replicateRunner реализует Runner поверх Replicate API.
type replicateRunner struct {
	client *replicate.Client
	log    *logger.Logger
}

// NewRunner создает новый клиент Replicate.
func NewRunner(apiToken string, log *logger.Logger) (Runner, error) {
	client, err := replicate.NewClient(replicate.WithToken(apiToken))
	if err != nil {
		return nil, fmt.Errorf("replicate: failed to create client: %w", err)
	}
	return &replicateRunner{
		client: client,
		log:    log,
	}, nil
}

// Run запускает модель с повторами на сетевых сбоях.
// Перегрузка провайдера не ретраится: клиенту нужен быстрый ответ "попробуйте позже".
func (r *replicateRunner) Run(ctx context.Context, model string, input map[string]any) (any, error) {
	var output replicate.PredictionOutput

	operation := func() error {
		var err error
		output, err = r.client.Run(ctx, model, replicate.PredictionInput(input), nil)
		if err != nil {
			if IsOverloaded(err) {
				return backoff.Permanent(err)
			}
			r.log.Warnw("Replicate run failed, retrying", "model", model, "error", err)
			return err
		}
		return nil
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 500 * time.Millisecond
	expBackoff.MaxElapsedTime = 30 * time.Second

	retryPolicy := backoff.WithContext(backoff.WithMaxRetries(expBackoff, 2), ctx)

	if err := backoff.Retry(operation, retryPolicy); err != nil {
		return nil, fmt.Errorf("replicate: model run failed: %w", err)
	}

	return output, nil
}

// Сигнатуры перегрузки в ответах Replicate
var overloadSignatures = []string{
	"e003",
	"unavailable",
	"high demand",
}

// IsOverloaded распознает ошибку перегрузки провайдера по тексту.
func IsOverloaded(err error) bool {
	if err == nil {
		return false
	}
	message := strings.ToLower(err.Error())
	for _, signature := range overloadSignatures {
		if strings.Contains(message, signature) {
			return true
		}
	}
	return false
}
