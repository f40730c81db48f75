package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/realify/realify-backend/internal/domain"
	"github.com/realify/realify-backend/internal/middleware"
	"github.com/realify/realify-backend/internal/service"
	"github.com/realify/realify-backend/pkg/logger"
)

// SubscriptionHandler обработчик запросов состояния подписки
type SubscriptionHandler struct {
	ledger service.LedgerService
	log    *logger.Logger
}

// NewSubscriptionHandler создает новый обработчик подписки
func NewSubscriptionHandler(ledger service.LedgerService, log *logger.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		ledger: ledger,
		log:    log,
	}
}

// Status обрабатывает GET /api/v1/subscription/status.
// Любая ошибка дает {active: false}, фронтенд просто показывает прайсинг.
func (h *SubscriptionHandler) Status(c *gin.Context) {
	active := false

	if userID, ok := middleware.UserID(c); ok {
		sub, err := h.ledger.Find(c.Request.Context(), userID)
		if err == nil {
			active = sub.Status == domain.SubscriptionStatusActive ||
				sub.Status == domain.SubscriptionStatusCanceling
		}
	}

	c.JSON(http.StatusOK, gin.H{"active": active})
}

// Summary обрабатывает GET /api/v1/subscription/summary
func (h *SubscriptionHandler) Summary(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, h.log, domain.ErrNotAuthenticated)
		return
	}

	c.JSON(http.StatusOK, h.ledger.Summary(c.Request.Context(), userID))
}
