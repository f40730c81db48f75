package repository

import (
	"context"

	"github.com/realify/realify-backend/internal/domain"
	"github.com/realify/realify-backend/pkg/logger"
)

// CachedLedgerRepository реализует LedgerRepository с кешированием чтений.
// Любая запись инвалидирует кеш пользователя, остаток юнитов всегда читается свежим после списания.
type CachedLedgerRepository struct {
	repo  LedgerRepository
	cache *RedisCacheRepository
	log   *logger.Logger
}

// NewCachedLedgerRepository создает новый реестр с кешированием
func NewCachedLedgerRepository(
	repo LedgerRepository,
	cache *RedisCacheRepository,
	log *logger.Logger,
) LedgerRepository {
	return &CachedLedgerRepository{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// GetByUserID возвращает строку реестра (сначала из кеша, потом из БД)
func (r *CachedLedgerRepository) GetByUserID(ctx context.Context, userID string) (*domain.Subscription, error) {
	cached, err := r.cache.GetCachedLedger(ctx, userID)
	if err != nil {
		r.log.Warnw("Error getting ledger row from cache", "error", err, "userID", userID)
		// Продолжаем выполнение при ошибке кеша
	}

	if cached != nil {
		return cached, nil
	}

	sub, err := r.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := r.cache.CacheLedger(ctx, sub); err != nil {
		r.log.Warnw("Failed to cache ledger row after fetching", "error", err, "userID", userID)
	}

	return sub, nil
}

// GetByCustomerID возвращает строку реестра по Stripe customer id.
// Кеш ключуется по user id, поэтому этот путь всегда идет в БД.
func (r *CachedLedgerRepository) GetByCustomerID(ctx context.Context, customerID string) (*domain.Subscription, error) {
	return r.repo.GetByCustomerID(ctx, customerID)
}

// Grant начисляет юниты и обновляет кеш
func (r *CachedLedgerRepository) Grant(ctx context.Context, grant domain.Grant) (*domain.Subscription, error) {
	sub, err := r.repo.Grant(ctx, grant)
	if err != nil {
		return nil, err
	}

	if err := r.cache.CacheLedger(ctx, sub); err != nil {
		r.log.Warnw("Failed to cache ledger row after grant", "error", err, "userID", grant.UserID)
	}

	return sub, nil
}

// ConsumeUnits списывает юниты и инвалидирует кеш пользователя
func (r *CachedLedgerRepository) ConsumeUnits(ctx context.Context, userID string, units int64) (int64, error) {
	remaining, err := r.repo.ConsumeUnits(ctx, userID, units)
	if err != nil {
		return 0, err
	}

	if err := r.cache.InvalidateLedger(ctx, userID); err != nil {
		r.log.Warnw("Failed to invalidate ledger cache after consume", "error", err, "userID", userID)
	}

	return remaining, nil
}

// SetStatusByCustomer меняет статус и инвалидирует кеш затронутого пользователя
func (r *CachedLedgerRepository) SetStatusByCustomer(ctx context.Context, customerID string, status domain.SubscriptionStatus) (*domain.Subscription, error) {
	sub, err := r.repo.SetStatusByCustomer(ctx, customerID, status)
	if err != nil {
		return nil, err
	}

	if err := r.cache.InvalidateLedger(ctx, sub.UserID); err != nil {
		r.log.Warnw("Failed to invalidate ledger cache after status change", "error", err, "userID", sub.UserID)
	}

	return sub, nil
}
