package service

import (
	"context"
	"fmt"

	"github.com/realify/realify-backend/config"
	"github.com/realify/realify-backend/internal/domain"
	stripegw "github.com/realify/realify-backend/internal/integration/stripe"
	"github.com/realify/realify-backend/pkg/logger"
)

// BillingService создает Stripe-сессии оплаты и управления подпиской
type BillingService interface {
	// Checkout возвращает URL checkout-сессии для подписки.
	// Клиент с живой подпиской отправляется в биллинг-портал вместо нового checkout.
	Checkout(ctx context.Context, userID, email string, plan domain.Plan) (string, error)

	// CreditsCheckout возвращает URL разовой checkout-сессии для пакета юнитов.
	CreditsCheckout(ctx context.Context, userID, email string, bundle domain.Bundle) (string, error)

	// Portal возвращает URL сессии биллинг-портала для сохраненного Stripe customer id.
	Portal(ctx context.Context, customerID string) (string, error)
}

type billingService struct {
	gateway   stripegw.Gateway
	stripeCfg *config.StripeConfig
	log       *logger.Logger
}

// NewBillingService создает новый биллинговый сервис
func NewBillingService(gateway stripegw.Gateway, stripeCfg *config.StripeConfig, log *logger.Logger) BillingService {
	return &billingService{
		gateway:   gateway,
		stripeCfg: stripeCfg,
		log:       log,
	}
}

// Checkout возвращает URL checkout-сессии для подписки
func (s *billingService) Checkout(ctx context.Context, userID, email string, plan domain.Plan) (string, error) {
	priceID, ok := s.stripeCfg.PlanPrice(plan)
	if !ok {
		return "", domain.ErrInvalidPlan
	}

	customerID, err := s.gateway.FindOrCreateCustomer(ctx, userID, email)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrCheckoutFailed, err)
	}

	live, err := s.gateway.HasLiveSubscription(ctx, customerID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrCheckoutFailed, err)
	}
	if live {
		// Смена плана делается в портале, второй checkout создал бы вторую подписку
		s.log.Infow("Customer already subscribed, redirecting to portal", "userID", userID, "stripeCustomerID", customerID)
		url, err := s.gateway.NewPortalSession(ctx, customerID, s.stripeCfg.SiteURL+"/account")
		if err != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrCheckoutFailed, err)
		}
		return url, nil
	}

	url, err := s.gateway.NewSubscriptionCheckout(ctx, stripegw.SubscriptionCheckoutParams{
		CustomerID: customerID,
		PriceID:    priceID,
		UserID:     userID,
		Plan:       plan,
		SuccessURL: s.stripeCfg.SiteURL + "/?checkout=success",
		CancelURL:  s.stripeCfg.SiteURL + "/pricing?checkout=cancelled",
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrCheckoutFailed, err)
	}

	return url, nil
}

// CreditsCheckout возвращает URL разовой checkout-сессии для пакета юнитов
func (s *billingService) CreditsCheckout(ctx context.Context, userID, email string, bundle domain.Bundle) (string, error) {
	priceID, ok := s.stripeCfg.BundlePrice(bundle)
	if !ok {
		return "", domain.ErrInvalidBundle
	}

	customerID, err := s.gateway.FindOrCreateCustomer(ctx, userID, email)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrCheckoutFailed, err)
	}

	url, err := s.gateway.NewBundleCheckout(ctx, stripegw.BundleCheckoutParams{
		CustomerID: customerID,
		PriceID:    priceID,
		UserID:     userID,
		Bundle:     bundle,
		SuccessURL: s.stripeCfg.SiteURL + "/?checkout=success",
		CancelURL:  s.stripeCfg.SiteURL + "/pricing?checkout=cancelled",
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrCheckoutFailed, err)
	}

	return url, nil
}

// Portal возвращает URL сессии биллинг-портала
func (s *billingService) Portal(ctx context.Context, customerID string) (string, error) {
	url, err := s.gateway.NewPortalSession(ctx, customerID, s.stripeCfg.SiteURL+"/account")
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrPortalError, err)
	}

	return url, nil
}
