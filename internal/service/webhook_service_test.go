package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v78"

	"github.com/realify/realify-backend/config"
	"github.com/realify/realify-backend/internal/domain"
	"github.com/realify/realify-backend/internal/metrics"
	"github.com/realify/realify-backend/internal/repository"
	"github.com/realify/realify-backend/pkg/logger"
)

type webhookFixture struct {
	svc    WebhookService
	ledger *repository.InMemoryLedgerRepository
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()
	log := logger.New(logger.ERROR)
	ledgerRepo := repository.NewInMemoryLedgerRepository(log)
	eventRepo := repository.NewInMemoryEventRepository(log)
	usageMetrics := metrics.NewUsageMetrics(prometheus.NewRegistry(), log)
	ledgerService := NewLedgerService(ledgerRepo, nil, usageMetrics, log)

	stripeCfg := &config.StripeConfig{
		PriceStarter: "price_starter",
		PriceCreator: "price_creator",
		PricePro:     "price_pro",
	}

	return &webhookFixture{
		svc:    NewWebhookService(eventRepo, ledgerService, stripeCfg, usageMetrics, log),
		ledger: ledgerRepo,
	}
}

func checkoutEvent(id string, raw string) stripe.Event {
	return stripe.Event{
		ID:   id,
		Type: "checkout.session.completed",
		Data: &stripe.EventData{Raw: json.RawMessage(raw)},
	}
}

func TestWebhookSubscriptionCheckoutGrantsPlanUnits(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	event := checkoutEvent("evt_1", `{
		"id": "cs_1",
		"customer": "cus_1",
		"metadata": {"user_id": "u1", "plan": "creator"}
	}`)

	require.NoError(t, f.svc.ProcessEvent(ctx, event))

	sub, err := f.ledger.GetByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.PlanCreator, sub.Plan)
	assert.Equal(t, domain.SubscriptionStatusActive, sub.Status)
	assert.Equal(t, int64(750), sub.UnitsRemaining)
	assert.Equal(t, "cus_1", sub.StripeCustomerID)
}

func TestWebhookBundleCheckoutKeepsPlan(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	_, err := f.ledger.Grant(ctx, domain.Grant{
		UserID:           "u1",
		Plan:             domain.PlanCreator,
		Units:            750,
		StripeCustomerID: "cus_1",
		SetPlan:          true,
	})
	require.NoError(t, err)

	event := checkoutEvent("evt_2", `{
		"id": "cs_2",
		"customer": "cus_1",
		"metadata": {"user_id": "u1", "purchase_type": "credits_bundle", "bundle": "medium"}
	}`)

	require.NoError(t, f.svc.ProcessEvent(ctx, event))

	sub, err := f.ledger.GetByUserID(ctx, "u1")
	require.NoError(t, err)
	// Пакет прибавляет ровно свои юниты и не меняет план
	assert.Equal(t, domain.PlanCreator, sub.Plan)
	assert.Equal(t, int64(950), sub.UnitsRemaining)
}

func TestWebhookCheckoutWithoutUserIDIsSkipped(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	event := checkoutEvent("evt_3", `{"id": "cs_3", "metadata": {}}`)

	require.NoError(t, f.svc.ProcessEvent(ctx, event))

	_, err := f.ledger.GetByUserID(ctx, "")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestWebhookDuplicateEventGrantsOnce(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	event := checkoutEvent("evt_4", `{
		"id": "cs_4",
		"customer": "cus_1",
		"metadata": {"user_id": "u1", "plan": "starter"}
	}`)

	require.NoError(t, f.svc.ProcessEvent(ctx, event))
	require.NoError(t, f.svc.ProcessEvent(ctx, event))

	sub, err := f.ledger.GetByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(200), sub.UnitsRemaining)
}

func TestWebhookInvoicePaidRenewsAdditively(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	_, err := f.ledger.Grant(ctx, domain.Grant{
		UserID:           "u1",
		Plan:             domain.PlanCreator,
		Units:            750,
		StripeCustomerID: "cus_1",
		SetPlan:          true,
	})
	require.NoError(t, err)
	_, err = f.ledger.ConsumeUnits(ctx, "u1", 695)
	require.NoError(t, err)

	// Метаданных подписки нет: план определяется по price id строки счета
	event := stripe.Event{
		ID:   "evt_5",
		Type: "invoice.paid",
		Data: &stripe.EventData{Raw: json.RawMessage(`{
			"id": "in_1",
			"customer": "cus_1",
			"lines": {"data": [{"price": {"id": "price_creator"}}]}
		}`)},
	}

	require.NoError(t, f.svc.ProcessEvent(ctx, event))

	sub, err := f.ledger.GetByUserID(ctx, "u1")
	require.NoError(t, err)
	// 55 оставшихся + 750 за новый период
	assert.Equal(t, int64(805), sub.UnitsRemaining)
	assert.Equal(t, domain.PlanCreator, sub.Plan)
}

func TestWebhookInvoiceForUnknownCustomerIsSkipped(t *testing.T) {
	f := newWebhookFixture(t)

	event := stripe.Event{
		ID:   "evt_6",
		Type: "invoice.paid",
		Data: &stripe.EventData{Raw: json.RawMessage(`{"id": "in_2", "customer": "cus_missing"}`)},
	}

	assert.NoError(t, f.svc.ProcessEvent(context.Background(), event))
}

func TestWebhookSubscriptionDeletedDeactivates(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	_, err := f.ledger.Grant(ctx, domain.Grant{
		UserID:           "u1",
		Plan:             domain.PlanPro,
		Units:            1500,
		StripeCustomerID: "cus_1",
		SetPlan:          true,
	})
	require.NoError(t, err)

	event := stripe.Event{
		ID:   "evt_7",
		Type: "customer.subscription.deleted",
		Data: &stripe.EventData{Raw: json.RawMessage(`{"id": "sub_1", "customer": "cus_1"}`)},
	}

	require.NoError(t, f.svc.ProcessEvent(ctx, event))

	sub, err := f.ledger.GetByUserID(ctx, "u1")
	require.NoError(t, err)
	// Доступ закрыт, но оплаченный остаток сохраняется в реестре
	assert.Equal(t, domain.SubscriptionStatusInactive, sub.Status)
	assert.Equal(t, int64(1500), sub.UnitsRemaining)
}

func TestWebhookUnknownEventTypeIsIgnored(t *testing.T) {
	f := newWebhookFixture(t)

	event := stripe.Event{
		ID:   "evt_8",
		Type: "payment_intent.created",
		Data: &stripe.EventData{Raw: json.RawMessage(`{}`)},
	}

	assert.NoError(t, f.svc.ProcessEvent(context.Background(), event))
}

func TestWebhookEachEventIDProcessedIndependently(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		event := checkoutEvent(
			fmt.Sprintf("evt_batch_%d", i),
			`{"id": "cs_b", "customer": "cus_1", "metadata": {"user_id": "u1", "plan": "starter"}}`,
		)
		require.NoError(t, f.svc.ProcessEvent(ctx, event))
	}

	sub, err := f.ledger.GetByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(600), sub.UnitsRemaining)
}
