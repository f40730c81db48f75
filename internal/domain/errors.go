package domain

import (
	"errors"
	"fmt"
)

// Application errors
var (
	// ErrNotAuthenticated пользователь не аутентифицирован
	ErrNotAuthenticated = errors.New("not_authenticated")

	// ErrNoSubscription у пользователя нет действующей подписки
	ErrNoSubscription = errors.New("no_subscription")

	// ErrLimitReached недостаточно юнитов на балансе
	ErrLimitReached = errors.New("limit_reached")

	// ErrInvalidPlan неизвестный тарифный план
	ErrInvalidPlan = errors.New("invalid_plan")

	// ErrInvalidBundle неизвестный пакет юнитов
	ErrInvalidBundle = errors.New("invalid_bundle")

	// ErrMissingPrompt запрос без промпта
	ErrMissingPrompt = errors.New("missing_prompt")

	// ErrGenerationFailed провайдер не вернул пригодный результат
	ErrGenerationFailed = errors.New("generation_failed")

	// ErrServersBusy провайдер перегружен, стоит повторить позже
	ErrServersBusy = errors.New("servers_busy")

	// ErrCheckoutFailed не удалось создать checkout-сессию
	ErrCheckoutFailed = errors.New("checkout_failed")

	// ErrPortalError не удалось создать portal-сессию
	ErrPortalError = errors.New("portal_error")

	// ErrWebhookVerification не удалось проверить подпись вебхука
	ErrWebhookVerification = errors.New("webhook verification failed")
)

// ProviderError ошибка внешнего провайдера генерации
type ProviderError struct {
	Model       Model
	Message     string
	OriginalErr error
}

// Error реализует интерфейс error
func (e *ProviderError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("provider error [%s]: %s: %v", e.Model, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("provider error [%s]: %s", e.Model, e.Message)
}

// Unwrap возвращает оригинальную ошибку
func (e *ProviderError) Unwrap() error {
	return e.OriginalErr
}

// NewProviderError создает новую ошибку провайдера
func NewProviderError(model Model, message string, err error) *ProviderError {
	return &ProviderError{
		Model:       model,
		Message:     message,
		OriginalErr: err,
	}
}
