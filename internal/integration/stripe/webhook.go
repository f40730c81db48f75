package stripe

import (
	"fmt"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"

	"github.com/realify/realify-backend/internal/domain"
	"github.com/realify/realify-backend/pkg/logger"
)

// Stripe рекомендует ограничивать тело вебхука
const maxWebhookBodyBytes = int64(65536)

// WebhookVerifier проверяет подпись входящих Stripe-событий
type WebhookVerifier struct {
	secret string
	log    *logger.Logger
}

// NewWebhookVerifier создает новый верификатор вебхуков
func NewWebhookVerifier(secret string, log *logger.Logger) *WebhookVerifier {
	return &WebhookVerifier{
		secret: secret,
		log:    log,
	}
}

// VerifyRequest читает тело запроса и проверяет подпись из заголовка Stripe-Signature.
// Событие с невалидной подписью не доходит до обработки.
func (v *WebhookVerifier) VerifyRequest(r *http.Request) (stripe.Event, error) {
	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		return stripe.Event{}, fmt.Errorf("%w: no Stripe signature in request", domain.ErrWebhookVerification)
	}

	r.Body = http.MaxBytesReader(nil, r.Body, maxWebhookBodyBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: failed to read request body: %v", domain.ErrWebhookVerification, err)
	}

	event, err := webhook.ConstructEvent(payload, signature, v.secret)
	if err != nil {
		v.log.Warnw("Webhook signature verification failed", "error", err)
		return stripe.Event{}, fmt.Errorf("%w: %v", domain.ErrWebhookVerification, err)
	}

	return event, nil
}
