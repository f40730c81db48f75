package repository

import (
	"context"

	"github.com/realify/realify-backend/internal/domain"
)

// LedgerRepository определяет методы для работы с реестром юнитов.
// Реестр хранит ровно одну строку на пользователя.
type LedgerRepository interface {
	// GetByUserID возвращает строку реестра пользователя.
	GetByUserID(ctx context.Context, userID string) (*domain.Subscription, error)

	// GetByCustomerID возвращает строку реестра по Stripe customer id. (нужно для вебхуков)
	GetByCustomerID(ctx context.Context, customerID string) (*domain.Subscription, error)

	// Grant начисляет юниты: создает строку либо прибавляет к существующей.
	Grant(ctx context.Context, grant domain.Grant) (*domain.Subscription, error)

	// ConsumeUnits атомарно списывает юниты и возвращает остаток.
	// При нехватке остаток обнуляется, при отсутствии строки ничего не происходит.
	ConsumeUnits(ctx context.Context, userID string, units int64) (int64, error)

	// SetStatusByCustomer меняет статус строки по Stripe customer id.
	SetStatusByCustomer(ctx context.Context, customerID string, status domain.SubscriptionStatus) (*domain.Subscription, error)
}
