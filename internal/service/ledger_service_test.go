package service

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realify/realify-backend/internal/domain"
	"github.com/realify/realify-backend/internal/metrics"
	"github.com/realify/realify-backend/internal/repository"
	"github.com/realify/realify-backend/pkg/logger"
)

func newTestLedgerService(t *testing.T) (LedgerService, *repository.InMemoryLedgerRepository) {
	t.Helper()
	log := logger.New(logger.ERROR)
	repo := repository.NewInMemoryLedgerRepository(log)
	usageMetrics := metrics.NewUsageMetrics(prometheus.NewRegistry(), log)
	return NewLedgerService(repo, nil, usageMetrics, log), repo
}

func TestLedgerServiceAuthorizeWithoutRow(t *testing.T) {
	svc, _ := newTestLedgerService(t)

	err := svc.Authorize(context.Background(), "ghost", 10)
	assert.ErrorIs(t, err, domain.ErrNoSubscription)
}

func TestLedgerServiceAuthorizeInactiveSubscription(t *testing.T) {
	svc, repo := newTestLedgerService(t)
	ctx := context.Background()

	_, err := repo.Grant(ctx, domain.Grant{
		UserID:           "u1",
		Plan:             domain.PlanStarter,
		Units:            200,
		StripeCustomerID: "cus_1",
		SetPlan:          true,
	})
	require.NoError(t, err)
	_, err = repo.SetStatusByCustomer(ctx, "cus_1", domain.SubscriptionStatusInactive)
	require.NoError(t, err)

	err = svc.Authorize(ctx, "u1", 10)
	assert.ErrorIs(t, err, domain.ErrNoSubscription)
}

func TestLedgerServiceAuthorizeLimitReached(t *testing.T) {
	svc, repo := newTestLedgerService(t)
	ctx := context.Background()

	_, err := repo.Grant(ctx, domain.Grant{UserID: "u1", Plan: domain.PlanStarter, Units: 5, SetPlan: true})
	require.NoError(t, err)

	err = svc.Authorize(ctx, "u1", 10)
	assert.ErrorIs(t, err, domain.ErrLimitReached)

	// Ровно на границе баланса запрос проходит
	err = svc.Authorize(ctx, "u1", 5)
	assert.NoError(t, err)
}

func TestLedgerServiceConsumeSwallowsErrors(t *testing.T) {
	svc, _ := newTestLedgerService(t)

	// Нет строки реестра: списание возвращает ноль и не паникует
	remaining := svc.Consume(context.Background(), "ghost", 10, string(domain.ModelIdeogram))
	assert.Equal(t, int64(0), remaining)
}

func TestLedgerServiceSummaryStates(t *testing.T) {
	svc, repo := newTestLedgerService(t)
	ctx := context.Background()

	summary := svc.Summary(ctx, "ghost")
	assert.Equal(t, domain.SummaryStatusNoPlan, summary.Status)

	_, err := repo.Grant(ctx, domain.Grant{UserID: "u1", Plan: domain.PlanCreator, Units: 750, SetPlan: true})
	require.NoError(t, err)

	summary = svc.Summary(ctx, "u1")
	assert.Equal(t, domain.SummaryStatusActive, summary.Status)
	assert.Equal(t, domain.PlanCreator, summary.Plan)
	assert.Equal(t, int64(750), summary.UnitsRemaining)

	_, err = repo.ConsumeUnits(ctx, "u1", 750)
	require.NoError(t, err)

	summary = svc.Summary(ctx, "u1")
	assert.Equal(t, domain.SummaryStatusLimitReached, summary.Status)
	assert.Equal(t, int64(0), summary.UnitsRemaining)
}

func TestLedgerServiceRemainingWithoutRow(t *testing.T) {
	svc, _ := newTestLedgerService(t)

	remaining, err := svc.Remaining(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Equal(t, int64(0), remaining)
}

func TestLedgerServiceDeactivateByCustomer(t *testing.T) {
	svc, repo := newTestLedgerService(t)
	ctx := context.Background()

	_, err := repo.Grant(ctx, domain.Grant{
		UserID:           "u1",
		Plan:             domain.PlanPro,
		Units:            1500,
		StripeCustomerID: "cus_1",
		SetPlan:          true,
	})
	require.NoError(t, err)

	sub, err := svc.DeactivateByCustomer(ctx, "cus_1")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusInactive, sub.Status)
	assert.Equal(t, int64(1500), sub.UnitsRemaining)
}
