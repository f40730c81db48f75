package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realify/realify-backend/internal/domain"
	"github.com/realify/realify-backend/pkg/logger"
)

func newTestLedger(t *testing.T) *InMemoryLedgerRepository {
	t.Helper()
	return NewInMemoryLedgerRepository(logger.New(logger.ERROR))
}

func TestLedgerGrantCreatesRow(t *testing.T) {
	repo := newTestLedger(t)
	ctx := context.Background()

	sub, err := repo.Grant(ctx, domain.Grant{
		UserID:           "u1",
		Plan:             domain.PlanCreator,
		Units:            750,
		StripeCustomerID: "cus_1",
		SetPlan:          true,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.PlanCreator, sub.Plan)
	assert.Equal(t, domain.SubscriptionStatusActive, sub.Status)
	assert.Equal(t, int64(750), sub.UnitsTotal)
	assert.Equal(t, int64(750), sub.UnitsRemaining)
	assert.Equal(t, "cus_1", sub.StripeCustomerID)
}

func TestLedgerGrantStacksOnExistingRow(t *testing.T) {
	repo := newTestLedger(t)
	ctx := context.Background()

	_, err := repo.Grant(ctx, domain.Grant{UserID: "u1", Plan: domain.PlanCreator, Units: 750, SetPlan: true})
	require.NoError(t, err)

	_, err = repo.ConsumeUnits(ctx, "u1", 700)
	require.NoError(t, err)

	// Продление прибавляет к неизрасходованному остатку
	sub, err := repo.Grant(ctx, domain.Grant{UserID: "u1", Plan: domain.PlanCreator, Units: 750, SetPlan: true})
	require.NoError(t, err)

	assert.Equal(t, int64(800), sub.UnitsRemaining)
	assert.Equal(t, int64(1500), sub.UnitsTotal)
}

func TestLedgerBundleGrantKeepsPlan(t *testing.T) {
	repo := newTestLedger(t)
	ctx := context.Background()

	_, err := repo.Grant(ctx, domain.Grant{UserID: "u1", Plan: domain.PlanCreator, Units: 750, SetPlan: true})
	require.NoError(t, err)

	sub, err := repo.Grant(ctx, domain.Grant{UserID: "u1", Units: 200, SetPlan: false})
	require.NoError(t, err)

	assert.Equal(t, domain.PlanCreator, sub.Plan)
	assert.Equal(t, int64(950), sub.UnitsRemaining)
}

func TestLedgerBundleGrantWithoutRowDefaultsToStarter(t *testing.T) {
	repo := newTestLedger(t)

	sub, err := repo.Grant(context.Background(), domain.Grant{UserID: "u1", Units: 100, SetPlan: false})
	require.NoError(t, err)

	assert.Equal(t, domain.PlanStarter, sub.Plan)
	assert.Equal(t, int64(100), sub.UnitsRemaining)
}

func TestLedgerConsumeClampsAtZero(t *testing.T) {
	repo := newTestLedger(t)
	ctx := context.Background()

	_, err := repo.Grant(ctx, domain.Grant{UserID: "u1", Plan: domain.PlanStarter, Units: 5, SetPlan: true})
	require.NoError(t, err)

	remaining, err := repo.ConsumeUnits(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), remaining)

	sub, err := repo.GetByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), sub.UnitsRemaining)
}

func TestLedgerConsumeWithoutRowIsNoop(t *testing.T) {
	repo := newTestLedger(t)

	remaining, err := repo.ConsumeUnits(context.Background(), "ghost", 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), remaining)

	_, err = repo.GetByUserID(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLedgerConcurrentConsumeNeverGoesNegative(t *testing.T) {
	repo := newTestLedger(t)
	ctx := context.Background()

	_, err := repo.Grant(ctx, domain.Grant{UserID: "u1", Plan: domain.PlanStarter, Units: 10, SetPlan: true})
	require.NoError(t, err)

	// Два списания по 10 при балансе 10: остаток не уходит в минус
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = repo.ConsumeUnits(ctx, "u1", 10)
		}()
	}
	wg.Wait()

	sub, err := repo.GetByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), sub.UnitsRemaining)
}

func TestLedgerSetStatusByCustomer(t *testing.T) {
	repo := newTestLedger(t)
	ctx := context.Background()

	_, err := repo.Grant(ctx, domain.Grant{
		UserID:           "u1",
		Plan:             domain.PlanCreator,
		Units:            750,
		StripeCustomerID: "cus_1",
		SetPlan:          true,
	})
	require.NoError(t, err)

	sub, err := repo.SetStatusByCustomer(ctx, "cus_1", domain.SubscriptionStatusInactive)
	require.NoError(t, err)

	// Статус меняется, баланс не трогаем
	assert.Equal(t, domain.SubscriptionStatusInactive, sub.Status)
	assert.Equal(t, int64(750), sub.UnitsRemaining)

	_, err = repo.SetStatusByCustomer(ctx, "cus_missing", domain.SubscriptionStatusInactive)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEventRepositoryMarkProcessed(t *testing.T) {
	repo := NewInMemoryEventRepository(logger.New(logger.ERROR))
	ctx := context.Background()

	first, err := repo.MarkProcessed(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := repo.MarkProcessed(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, again)

	other, err := repo.MarkProcessed(ctx, "evt_2")
	require.NoError(t, err)
	assert.True(t, other)
}
