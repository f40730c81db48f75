package stripe

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"

	"github.com/realify/realify-backend/internal/domain"
	"github.com/realify/realify-backend/pkg/logger"
)

const (
	// Ключи метаданных для связи Stripe-объектов с нашими пользователями
	metadataUserIDKey       = "user_id"
	metadataPlanKey         = "plan"
	metadataBundleKey       = "bundle"
	metadataPurchaseTypeKey = "purchase_type"

	// Значение purchase_type для разовых пакетов юнитов
	purchaseTypeCreditsBundle = "credits_bundle"
)

// SubscriptionCheckoutParams параметры checkout-сессии для подписки
type SubscriptionCheckoutParams struct {
	CustomerID string
	PriceID    string
	UserID     string
	Plan       domain.Plan
	SuccessURL string
	CancelURL  string
}

// BundleCheckoutParams параметры checkout-сессии для разового пакета юнитов
type BundleCheckoutParams struct {
	CustomerID string
	PriceID    string
	UserID     string
	Bundle     domain.Bundle
	SuccessURL string
	CancelURL  string
}

// Gateway определяет методы для взаимодействия со Stripe API.
type Gateway interface {
	// FindOrCreateCustomer ищет клиента по email, если не находит - создает нового.
	FindOrCreateCustomer(ctx context.Context, userID, email string) (string, error)

	// HasLiveSubscription сообщает, есть ли у клиента незакрытая подписка.
	HasLiveSubscription(ctx context.Context, customerID string) (bool, error)

	// NewSubscriptionCheckout создает checkout-сессию для подписки и возвращает ее URL.
	NewSubscriptionCheckout(ctx context.Context, p SubscriptionCheckoutParams) (string, error)

	// NewBundleCheckout создает разовую checkout-сессию для пакета юнитов и возвращает ее URL.
	NewBundleCheckout(ctx context.Context, p BundleCheckoutParams) (string, error)

	// NewPortalSession создает сессию биллинг-портала и возвращает ее URL.
	NewPortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}

// stripeGateway реализует интерфейс Gateway.
type stripeGateway struct {
	client *client.API
	log    *logger.Logger
}

// NewGateway создает новый экземпляр шлюза Stripe.
func NewGateway(apiKey string, log *logger.Logger) Gateway {
	sc := &client.API{}
	sc.Init(apiKey, nil)
	return &stripeGateway{
		client: sc,
		log:    log,
	}
}

// FindOrCreateCustomer ищет клиента по email, если не находит - создает нового.
func (g *stripeGateway) FindOrCreateCustomer(ctx context.Context, userID, email string) (string, error) {
	listParams := &stripe.CustomerListParams{
		Email: stripe.String(email),
	}
	listParams.Limit = stripe.Int64(1)
	listParams.Context = ctx

	customers := g.client.Customers.List(listParams)
	if customers.Next() {
		customer := customers.Customer()
		g.log.Debugw("Found existing Stripe customer", "stripeCustomerID", customer.ID, "userID", userID)
		return customer.ID, nil
	}
	if err := customers.Err(); err != nil {
		logStripeError(g.log, "ListCustomers", err)
		return "", fmt.Errorf("stripe: failed to list customers: %w", err)
	}

	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Metadata: map[string]string{
			metadataUserIDKey: userID,
		},
	}
	params.Context = ctx

	cus, err := g.client.Customers.New(params)
	if err != nil {
		logStripeError(g.log, "CreateCustomer", err)
		return "", fmt.Errorf("stripe: failed to create customer: %w", err)
	}

	g.log.Infow("Stripe customer created", "stripeCustomerID", cus.ID, "userID", userID)
	return cus.ID, nil
}

// HasLiveSubscription сообщает, есть ли у клиента незакрытая подписка.
// Незакрытой считаем и просроченную: такой клиент идет в портал, а не в новый checkout.
func (g *stripeGateway) HasLiveSubscription(ctx context.Context, customerID string) (bool, error) {
	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String("all"),
	}
	params.Limit = stripe.Int64(10)
	params.Context = ctx

	subscriptions := g.client.Subscriptions.List(params)
	for subscriptions.Next() {
		switch subscriptions.Subscription().Status {
		case stripe.SubscriptionStatusActive,
			stripe.SubscriptionStatusTrialing,
			stripe.SubscriptionStatusPastDue,
			stripe.SubscriptionStatusUnpaid:
			return true, nil
		}
	}
	if err := subscriptions.Err(); err != nil {
		logStripeError(g.log, "ListSubscriptions", err)
		return false, fmt.Errorf("stripe: failed to list subscriptions: %w", err)
	}

	return false, nil
}

// NewSubscriptionCheckout создает checkout-сессию для подписки.
// user_id и plan кладутся и в метаданные сессии, и в метаданные будущей подписки:
// по ним вебхуки найдут пользователя при продлениях.
func (g *stripeGateway) NewSubscriptionCheckout(ctx context.Context, p SubscriptionCheckoutParams) (string, error) {
	metadata := map[string]string{
		metadataUserIDKey: p.UserID,
		metadataPlanKey:   string(p.Plan),
	}

	params := &stripe.CheckoutSessionParams{
		Customer: stripe.String(p.CustomerID),
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(p.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:          stripe.String(p.SuccessURL),
		CancelURL:           stripe.String(p.CancelURL),
		AllowPromotionCodes: stripe.Bool(true),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: metadata,
		},
	}
	params.Context = ctx
	params.Metadata = metadata

	session, err := g.client.CheckoutSessions.New(params)
	if err != nil {
		logStripeError(g.log, "NewSubscriptionCheckout", err)
		return "", fmt.Errorf("stripe: failed to create checkout session: %w", err)
	}

	g.log.Infow("Stripe checkout session created", "sessionID", session.ID, "userID", p.UserID, "plan", p.Plan)
	return session.URL, nil
}

// NewBundleCheckout создает разовую checkout-сессию для пакета юнитов.
func (g *stripeGateway) NewBundleCheckout(ctx context.Context, p BundleCheckoutParams) (string, error) {
	metadata := map[string]string{
		metadataUserIDKey:       p.UserID,
		metadataBundleKey:       string(p.Bundle),
		metadataPurchaseTypeKey: purchaseTypeCreditsBundle,
	}

	params := &stripe.CheckoutSessionParams{
		Customer: stripe.String(p.CustomerID),
		Mode:     stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(p.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: metadata,
		},
	}
	params.Context = ctx
	params.Metadata = metadata

	session, err := g.client.CheckoutSessions.New(params)
	if err != nil {
		logStripeError(g.log, "NewBundleCheckout", err)
		return "", fmt.Errorf("stripe: failed to create bundle checkout session: %w", err)
	}

	g.log.Infow("Stripe bundle checkout session created", "sessionID", session.ID, "userID", p.UserID, "bundle", p.Bundle)
	return session.URL, nil
}

// NewPortalSession создает сессию биллинг-портала.
func (g *stripeGateway) NewPortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	session, err := g.client.BillingPortalSessions.New(params)
	if err != nil {
		logStripeError(g.log, "NewPortalSession", err)
		return "", fmt.Errorf("stripe: failed to create portal session: %w", err)
	}

	g.log.Infow("Stripe portal session created", "sessionID", session.ID, "stripeCustomerID", customerID)
	return session.URL, nil
}

// logStripeError - вспомогательная функция для логирования деталей ошибки Stripe.
func logStripeError(log *logger.Logger, operation string, err error) {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		log.Errorw("Stripe API error",
			"operation", operation,
			"type", string(stripeErr.Type),
			"code", string(stripeErr.Code),
			"param", stripeErr.Param,
			"message", stripeErr.Msg,
			"request_id", stripeErr.RequestID,
			"status_code", stripeErr.HTTPStatusCode,
		)
	} else {
		log.Errorw("Non-Stripe error during Stripe operation",
			"operation", operation,
			"error", err,
		)
	}
}
