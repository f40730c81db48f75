package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	stripegw "github.com/realify/realify-backend/internal/integration/stripe"
	"github.com/realify/realify-backend/internal/service"
	"github.com/realify/realify-backend/pkg/logger"
)

// WebhookHandler обработчик вебхуков Stripe
type WebhookHandler struct {
	verifier *stripegw.WebhookVerifier
	webhooks service.WebhookService
	log      *logger.Logger
}

// NewWebhookHandler создает новый обработчик вебхуков
func NewWebhookHandler(verifier *stripegw.WebhookVerifier, webhooks service.WebhookService, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		verifier: verifier,
		webhooks: webhooks,
		log:      log,
	}
}

// HandleStripeWebhook проверяет подпись и передает событие на обработку.
// После проверки подписи Stripe всегда получает 200: прикладные сбои
// фиксируются в логах, а не превращаются в бесконечные повторы доставки.
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	event, err := h.verifier.VerifyRequest(c.Request)
	if err != nil {
		h.log.Warnw("Webhook rejected", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "signature verification failed"})
		return
	}

	if err := h.webhooks.ProcessEvent(c.Request.Context(), event); err != nil {
		h.log.Errorw("Failed to process webhook event", "error", err, "eventID", event.ID, "type", event.Type)
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
