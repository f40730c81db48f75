package service

import (
	"context"
	"errors"

	"github.com/realify/realify-backend/internal/domain"
	"github.com/realify/realify-backend/internal/kafka"
	"github.com/realify/realify-backend/internal/metrics"
	"github.com/realify/realify-backend/internal/repository"
	"github.com/realify/realify-backend/pkg/logger"
)

// LedgerService управляет балансом юнитов пользователей
type LedgerService interface {
	// Authorize проверяет, может ли пользователь потратить units юнитов.
	// Возвращает domain.ErrNoSubscription или domain.ErrLimitReached.
	Authorize(ctx context.Context, userID string, units int64) error

	// Consume списывает юниты после успешной генерации и возвращает остаток.
	// Сбой списания логируется, но наружу не отдается: результат у пользователя уже есть.
	Consume(ctx context.Context, userID string, units int64, model string) int64

	// Remaining возвращает остаток юнитов пользователя.
	Remaining(ctx context.Context, userID string) (int64, error)

	// Summary возвращает сводку по подписке для фронтенда.
	Summary(ctx context.Context, userID string) domain.SubscriptionSummary

	// Grant начисляет юниты по биллинговому событию.
	Grant(ctx context.Context, grant domain.Grant, source string) (*domain.Subscription, error)

	// Find возвращает строку реестра пользователя.
	Find(ctx context.Context, userID string) (*domain.Subscription, error)

	// FindByCustomer возвращает строку реестра по Stripe customer id.
	FindByCustomer(ctx context.Context, customerID string) (*domain.Subscription, error)

	// DeactivateByCustomer помечает подписку неактивной, баланс не трогает.
	DeactivateByCustomer(ctx context.Context, customerID string) (*domain.Subscription, error)
}

type ledgerService struct {
	repo     repository.LedgerRepository
	producer kafka.Producer
	metrics  metrics.UsageMetrics
	log      *logger.Logger
}

// NewLedgerService создает новый сервис реестра юнитов.
// producer может быть nil, если Kafka не настроена.
func NewLedgerService(
	repo repository.LedgerRepository,
	producer kafka.Producer,
	usageMetrics metrics.UsageMetrics,
	log *logger.Logger,
) LedgerService {
	return &ledgerService{
		repo:     repo,
		producer: producer,
		metrics:  usageMetrics,
		log:      log,
	}
}

// Authorize проверяет право пользователя потратить units юнитов
func (s *ledgerService) Authorize(ctx context.Context, userID string, units int64) error {
	sub, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrNoSubscription
		}
		return err
	}

	if !sub.Status.HasAccess() {
		return domain.ErrNoSubscription
	}

	if sub.UnitsRemaining < units {
		return domain.ErrLimitReached
	}

	return nil
}

// Consume списывает юниты после успешной генерации
func (s *ledgerService) Consume(ctx context.Context, userID string, units int64, model string) int64 {
	remaining, err := s.repo.ConsumeUnits(ctx, userID, units)
	if err != nil {
		// Генерация уже отдана пользователю, откатывать нечего
		s.log.Errorw("Failed to consume units", "error", err, "userID", userID, "units", units)
		return 0
	}

	s.metrics.AddUnitsSpent(model, units)
	s.publish(ctx, kafka.TopicUnitsSpent, kafka.UsageEvent{
		UserID:    userID,
		Units:     units,
		Remaining: remaining,
		Model:     model,
	})

	return remaining
}

// Remaining возвращает остаток юнитов пользователя
func (s *ledgerService) Remaining(ctx context.Context, userID string) (int64, error) {
	sub, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return sub.UnitsRemaining, nil
}

// Summary возвращает сводку по подписке для фронтенда
func (s *ledgerService) Summary(ctx context.Context, userID string) domain.SubscriptionSummary {
	sub, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.Warnw("Failed to load ledger row for summary", "error", err, "userID", userID)
		}
		return domain.SubscriptionSummary{Status: domain.SummaryStatusNoPlan}
	}

	if !sub.Status.HasAccess() {
		return domain.SubscriptionSummary{Status: domain.SummaryStatusNoPlan}
	}

	if sub.UnitsRemaining <= 0 {
		return domain.SubscriptionSummary{
			Status:         domain.SummaryStatusLimitReached,
			Plan:           sub.Plan,
			UnitsRemaining: 0,
		}
	}

	return domain.SubscriptionSummary{
		Status:         domain.SummaryStatusActive,
		Plan:           sub.Plan,
		UnitsRemaining: sub.UnitsRemaining,
	}
}

// Grant начисляет юниты по биллинговому событию
func (s *ledgerService) Grant(ctx context.Context, grant domain.Grant, source string) (*domain.Subscription, error) {
	sub, err := s.repo.Grant(ctx, grant)
	if err != nil {
		return nil, err
	}

	s.log.Infow("Units granted",
		"userID", grant.UserID,
		"units", grant.Units,
		"source", source,
		"remaining", sub.UnitsRemaining,
	)

	s.metrics.AddUnitsGranted(source, grant.Units)
	s.publish(ctx, kafka.TopicUnitsGranted, kafka.UsageEvent{
		UserID:    grant.UserID,
		Units:     grant.Units,
		Remaining: sub.UnitsRemaining,
		Source:    source,
	})

	return sub, nil
}

// Find возвращает строку реестра пользователя
func (s *ledgerService) Find(ctx context.Context, userID string) (*domain.Subscription, error) {
	return s.repo.GetByUserID(ctx, userID)
}

// FindByCustomer возвращает строку реестра по Stripe customer id
func (s *ledgerService) FindByCustomer(ctx context.Context, customerID string) (*domain.Subscription, error) {
	return s.repo.GetByCustomerID(ctx, customerID)
}

// DeactivateByCustomer помечает подписку неактивной
func (s *ledgerService) DeactivateByCustomer(ctx context.Context, customerID string) (*domain.Subscription, error) {
	sub, err := s.repo.SetStatusByCustomer(ctx, customerID, domain.SubscriptionStatusInactive)
	if err != nil {
		return nil, err
	}

	s.log.Infow("Subscription deactivated", "userID", sub.UserID, "stripeCustomerID", customerID)

	s.publish(ctx, kafka.TopicSubscriptionCancelled, kafka.UsageEvent{
		UserID:    sub.UserID,
		Remaining: sub.UnitsRemaining,
	})

	return sub, nil
}

// publish отправляет событие в Kafka, сбой не фатален
func (s *ledgerService) publish(ctx context.Context, topic string, event kafka.UsageEvent) {
	if s.producer == nil {
		return
	}
	if err := s.producer.PublishUsageEvent(ctx, topic, event); err != nil {
		s.log.Warnw("Failed to publish usage event", "error", err, "topic", topic, "userID", event.UserID)
	}
}
