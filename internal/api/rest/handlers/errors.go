package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/realify/realify-backend/internal/domain"
	"github.com/realify/realify-backend/pkg/logger"
)

// respondError переводит доменную ошибку в HTTP-ответ.
// Сырой текст ошибки остается в логах, клиенту уходит только код.
func respondError(c *gin.Context, log *logger.Logger, err error) {
	status, code := http.StatusInternalServerError, "internal_error"

	switch {
	case errors.Is(err, domain.ErrNotAuthenticated):
		status, code = http.StatusUnauthorized, "not_authenticated"
	case errors.Is(err, domain.ErrNoSubscription):
		status, code = http.StatusForbidden, "no_subscription"
	case errors.Is(err, domain.ErrLimitReached):
		status, code = http.StatusForbidden, "limit_reached"
	case errors.Is(err, domain.ErrMissingPrompt):
		status, code = http.StatusBadRequest, "missing_prompt"
	case errors.Is(err, domain.ErrInvalidPlan):
		status, code = http.StatusBadRequest, "invalid_plan"
	case errors.Is(err, domain.ErrInvalidBundle):
		status, code = http.StatusBadRequest, "invalid_bundle"
	case errors.Is(err, domain.ErrServersBusy):
		status, code = http.StatusServiceUnavailable, "servers_busy"
	case errors.Is(err, domain.ErrCheckoutFailed):
		status, code = http.StatusInternalServerError, "checkout_failed"
	case errors.Is(err, domain.ErrPortalError):
		status, code = http.StatusInternalServerError, "portal_error"
	case errors.Is(err, domain.ErrGenerationFailed):
		status, code = http.StatusInternalServerError, "generation_failed"
	}

	if status >= 500 {
		log.Errorw("Request failed", "path", c.Request.URL.Path, "error", err)
	}

	c.JSON(status, gin.H{"error": code})
}
