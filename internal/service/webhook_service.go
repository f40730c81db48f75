package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v78"

	"github.com/realify/realify-backend/config"
	"github.com/realify/realify-backend/internal/domain"
	"github.com/realify/realify-backend/internal/metrics"
	"github.com/realify/realify-backend/internal/repository"
	"github.com/realify/realify-backend/pkg/logger"
)

// Ключи метаданных в Stripe-событиях
const (
	eventMetaUserID       = "user_id"
	eventMetaPlan         = "plan"
	eventMetaBundle       = "bundle"
	eventMetaPurchaseType = "purchase_type"

	purchaseTypeCreditsBundle = "credits_bundle"
)

// Источники начисления юнитов для метрик и событий
const (
	grantSourcePlan   = "plan"
	grantSourceBundle = "bundle"
)

// Исходы обработки событий для метрик
const (
	outcomeGranted     = "granted"
	outcomeDeactivated = "deactivated"
	outcomeSkipped     = "skipped"
	outcomeDuplicate   = "duplicate"
	outcomeIgnored     = "ignored"
	outcomeError       = "error"
)

// WebhookService сверяет реестр юнитов с биллинговыми событиями Stripe
type WebhookService interface {
	// ProcessEvent обрабатывает проверенное Stripe-событие.
	ProcessEvent(ctx context.Context, event stripe.Event) error
}

type webhookService struct {
	events    repository.EventRepository
	ledger    LedgerService
	stripeCfg *config.StripeConfig
	metrics   metrics.UsageMetrics
	log       *logger.Logger
}

// NewWebhookService создает новый сервис обработки вебхуков
func NewWebhookService(
	events repository.EventRepository,
	ledger LedgerService,
	stripeCfg *config.StripeConfig,
	usageMetrics metrics.UsageMetrics,
	log *logger.Logger,
) WebhookService {
	return &webhookService{
		events:    events,
		ledger:    ledger,
		stripeCfg: stripeCfg,
		metrics:   usageMetrics,
		log:       log,
	}
}

// ProcessEvent обрабатывает проверенное Stripe-событие.
// Идентификатор события фиксируется до обработки: повторная доставка не начислит юниты дважды.
func (s *webhookService) ProcessEvent(ctx context.Context, event stripe.Event) error {
	first, err := s.events.MarkProcessed(ctx, event.ID)
	if err != nil {
		s.metrics.IncWebhookEvent(string(event.Type), outcomeError)
		return fmt.Errorf("failed to record event id: %w", err)
	}
	if !first {
		s.log.Infow("Duplicate webhook delivery skipped", "eventID", event.ID, "type", event.Type)
		s.metrics.IncWebhookEvent(string(event.Type), outcomeDuplicate)
		return nil
	}

	s.log.Infow("Processing Stripe webhook event", "eventID", event.ID, "type", event.Type)

	var outcome string
	switch event.Type {
	case "checkout.session.completed":
		outcome, err = s.handleCheckoutCompleted(ctx, event)
	case "invoice.paid", "invoice.payment_succeeded":
		outcome, err = s.handleInvoicePaid(ctx, event)
	case "customer.subscription.deleted":
		outcome, err = s.handleSubscriptionDeleted(ctx, event)
	default:
		outcome = outcomeIgnored
	}

	if err != nil {
		s.metrics.IncWebhookEvent(string(event.Type), outcomeError)
		return err
	}

	s.metrics.IncWebhookEvent(string(event.Type), outcome)
	return nil
}

// handleCheckoutCompleted обрабатывает завершенную checkout-сессию:
// покупку пакета юнитов или первую оплату подписки.
func (s *webhookService) handleCheckoutCompleted(ctx context.Context, event stripe.Event) (string, error) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return "", fmt.Errorf("failed to parse checkout session: %w", err)
	}

	userID := session.Metadata[eventMetaUserID]
	if userID == "" {
		s.log.Warnw("Checkout session without user_id metadata, grant skipped", "eventID", event.ID, "sessionID", session.ID)
		return outcomeSkipped, nil
	}

	customerID := ""
	if session.Customer != nil {
		customerID = session.Customer.ID
	}

	if session.Metadata[eventMetaPurchaseType] == purchaseTypeCreditsBundle {
		bundle := domain.Bundle(session.Metadata[eventMetaBundle])
		units, ok := domain.BundleUnits[bundle]
		if !ok {
			s.log.Warnw("Checkout session with unknown bundle, grant skipped", "eventID", event.ID, "bundle", bundle)
			return outcomeSkipped, nil
		}

		// Пакет юнитов не трогает тарифный план
		_, err := s.ledger.Grant(ctx, domain.Grant{
			UserID:           userID,
			Units:            units,
			StripeCustomerID: customerID,
			SetPlan:          false,
		}, grantSourceBundle)
		if err != nil {
			return "", fmt.Errorf("failed to grant bundle units: %w", err)
		}
		return outcomeGranted, nil
	}

	plan, ok := domain.SafePlan(session.Metadata[eventMetaPlan])
	if !ok {
		s.log.Warnw("Checkout session with unknown plan, grant skipped", "eventID", event.ID, "plan", session.Metadata[eventMetaPlan])
		return outcomeSkipped, nil
	}

	_, err := s.ledger.Grant(ctx, domain.Grant{
		UserID:           userID,
		Plan:             plan,
		Units:            domain.PlanUnits[plan],
		StripeCustomerID: customerID,
		SetPlan:          true,
	}, grantSourcePlan)
	if err != nil {
		return "", fmt.Errorf("failed to grant plan units: %w", err)
	}

	return outcomeGranted, nil
}

// handleInvoicePaid обрабатывает оплаченный счет (продление подписки).
// Юниты прибавляются к неизрасходованному остатку, а не заменяют его.
func (s *webhookService) handleInvoicePaid(ctx context.Context, event stripe.Event) (string, error) {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return "", fmt.Errorf("failed to parse invoice: %w", err)
	}

	customerID := ""
	if invoice.Customer != nil {
		customerID = invoice.Customer.ID
	}

	var subMetadata map[string]string
	if invoice.SubscriptionDetails != nil {
		subMetadata = invoice.SubscriptionDetails.Metadata
	}

	userID := subMetadata[eventMetaUserID]
	if userID == "" {
		// Метаданных нет: ищем пользователя по customer id в реестре
		sub, err := s.ledger.FindByCustomer(ctx, customerID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				s.log.Warnw("Invoice without resolvable user, grant skipped", "eventID", event.ID, "stripeCustomerID", customerID)
				return outcomeSkipped, nil
			}
			return "", fmt.Errorf("failed to resolve user by customer: %w", err)
		}
		userID = sub.UserID
	}

	plan := s.resolveInvoicePlan(&invoice, subMetadata)

	_, err := s.ledger.Grant(ctx, domain.Grant{
		UserID:           userID,
		Plan:             plan,
		Units:            domain.PlanUnits[plan],
		StripeCustomerID: customerID,
		SetPlan:          true,
	}, grantSourcePlan)
	if err != nil {
		return "", fmt.Errorf("failed to grant renewal units: %w", err)
	}

	return outcomeGranted, nil
}

// resolveInvoicePlan определяет план: метаданные, потом price id строк счета, потом starter
func (s *webhookService) resolveInvoicePlan(invoice *stripe.Invoice, subMetadata map[string]string) domain.Plan {
	if plan, ok := domain.SafePlan(subMetadata[eventMetaPlan]); ok {
		return plan
	}

	if invoice.Lines != nil {
		for _, line := range invoice.Lines.Data {
			if line.Price == nil {
				continue
			}
			if plan, ok := s.stripeCfg.PriceToPlan(line.Price.ID); ok {
				return plan
			}
		}
	}

	return domain.PlanStarter
}

// handleSubscriptionDeleted помечает подписку неактивной, баланс юнитов не трогает
func (s *webhookService) handleSubscriptionDeleted(ctx context.Context, event stripe.Event) (string, error) {
	var subscription stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &subscription); err != nil {
		return "", fmt.Errorf("failed to parse subscription: %w", err)
	}

	if subscription.Customer == nil || subscription.Customer.ID == "" {
		s.log.Warnw("Subscription deletion without customer id, skipped", "eventID", event.ID)
		return outcomeSkipped, nil
	}

	_, err := s.ledger.DeactivateByCustomer(ctx, subscription.Customer.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Warnw("Subscription deletion for unknown customer, skipped", "eventID", event.ID, "stripeCustomerID", subscription.Customer.ID)
			return outcomeSkipped, nil
		}
		return "", fmt.Errorf("failed to deactivate subscription: %w", err)
	}

	return outcomeDeactivated, nil
}
