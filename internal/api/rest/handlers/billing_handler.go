package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/realify/realify-backend/internal/domain"
	"github.com/realify/realify-backend/internal/middleware"
	"github.com/realify/realify-backend/internal/repository"
	"github.com/realify/realify-backend/internal/service"
	"github.com/realify/realify-backend/pkg/logger"
	"github.com/realify/realify-backend/pkg/req"
)

// BillingHandler обработчик биллинговых запросов
type BillingHandler struct {
	billing service.BillingService
	ledger  service.LedgerService
	log     *logger.Logger
}

// NewBillingHandler создает новый биллинговый обработчик
func NewBillingHandler(billing service.BillingService, ledger service.LedgerService, log *logger.Logger) *BillingHandler {
	return &BillingHandler{
		billing: billing,
		ledger:  ledger,
		log:     log,
	}
}

type checkoutRequest struct {
	Plan string `json:"plan"`
}

type creditsCheckoutRequest struct {
	Bundle string `json:"bundle"`
}

// Checkout обрабатывает POST /api/v1/billing/checkout.
// Неизвестный план молча приводится к starter, так ведет себя прайсинг фронтенда.
func (h *BillingHandler) Checkout(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, h.log, domain.ErrNotAuthenticated)
		return
	}

	body, err := req.HandleBody[checkoutRequest](c.Writer, c.Request, h.log)
	if err != nil {
		return
	}

	plan, ok := domain.SafePlan(body.Plan)
	if !ok {
		plan = domain.PlanStarter
	}

	url, err := h.billing.Checkout(c.Request.Context(), userID, middleware.UserEmail(c), plan)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

// CreditsCheckout обрабатывает POST /api/v1/billing/credits-checkout.
// Пакеты юнитов продаются только действующим подписчикам.
func (h *BillingHandler) CreditsCheckout(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, h.log, domain.ErrNotAuthenticated)
		return
	}

	if err := h.ledger.Authorize(c.Request.Context(), userID, 0); err != nil {
		if errors.Is(err, domain.ErrNoSubscription) {
			c.JSON(http.StatusForbidden, gin.H{"error": "subscription_required"})
			return
		}
		respondError(c, h.log, err)
		return
	}

	body, err := req.HandleBody[creditsCheckoutRequest](c.Writer, c.Request, h.log)
	if err != nil {
		return
	}

	bundle := domain.Bundle(body.Bundle)
	if _, ok := domain.BundleUnits[bundle]; !ok {
		respondError(c, h.log, domain.ErrInvalidBundle)
		return
	}

	url, err := h.billing.CreditsCheckout(c.Request.Context(), userID, middleware.UserEmail(c), bundle)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

// Portal обрабатывает POST /api/v1/billing/portal
func (h *BillingHandler) Portal(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, h.log, domain.ErrNotAuthenticated)
		return
	}

	sub, err := h.ledger.Find(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no_subscription"})
			return
		}
		respondError(c, h.log, err)
		return
	}

	portalStatuses := sub.Status == domain.SubscriptionStatusActive || sub.Status == domain.SubscriptionStatusCanceling
	if sub.StripeCustomerID == "" || !portalStatuses {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no_subscription"})
		return
	}

	url, err := h.billing.Portal(c.Request.Context(), sub.StripeCustomerID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}
