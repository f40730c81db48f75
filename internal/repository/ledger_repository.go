package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/realify/realify-backend/internal/domain"
	"github.com/realify/realify-backend/pkg/logger"
)

// InMemoryLedgerRepository реализация реестра юнитов в памяти
type InMemoryLedgerRepository struct {
	rows  map[string]domain.Subscription
	mutex sync.RWMutex
	log   *logger.Logger
}

// NewInMemoryLedgerRepository создает новый реестр юнитов в памяти
func NewInMemoryLedgerRepository(log *logger.Logger) *InMemoryLedgerRepository {
	return &InMemoryLedgerRepository{
		rows: make(map[string]domain.Subscription),
		log:  log,
	}
}

// GetByUserID возвращает строку реестра пользователя
func (r *InMemoryLedgerRepository) GetByUserID(ctx context.Context, userID string) (*domain.Subscription, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	row, exists := r.rows[userID]
	if !exists {
		return nil, ErrNotFound
	}

	return &row, nil
}

// GetByCustomerID возвращает строку реестра по Stripe customer id
func (r *InMemoryLedgerRepository) GetByCustomerID(ctx context.Context, customerID string) (*domain.Subscription, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if customerID == "" {
		return nil, ErrNotFound
	}

	for _, row := range r.rows {
		if row.StripeCustomerID == customerID {
			rowCopy := row
			return &rowCopy, nil
		}
	}

	return nil, ErrNotFound
}

// Grant начисляет юниты: создает строку либо прибавляет к существующей
func (r *InMemoryLedgerRepository) Grant(ctx context.Context, grant domain.Grant) (*domain.Subscription, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if grant.UserID == "" || grant.Units <= 0 {
		return nil, ErrInvalidData
	}

	now := time.Now()

	row, exists := r.rows[grant.UserID]
	if !exists {
		plan := grant.Plan
		if !grant.SetPlan || plan == "" {
			plan = domain.PlanStarter
		}
		row = domain.Subscription{
			UserID:    grant.UserID,
			Plan:      plan,
			CreatedAt: now,
		}
	}

	row.UnitsTotal += grant.Units
	row.UnitsRemaining += grant.Units
	row.Status = domain.SubscriptionStatusActive
	if grant.StripeCustomerID != "" {
		row.StripeCustomerID = grant.StripeCustomerID
	}
	if exists && grant.SetPlan && grant.Plan != "" {
		row.Plan = grant.Plan
	}
	row.UpdatedAt = now

	r.rows[grant.UserID] = row

	return &row, nil
}

// ConsumeUnits атомарно списывает юниты и возвращает остаток
func (r *InMemoryLedgerRepository) ConsumeUnits(ctx context.Context, userID string, units int64) (int64, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	row, exists := r.rows[userID]
	if !exists {
		return 0, nil
	}

	if row.UnitsRemaining >= units {
		row.UnitsRemaining -= units
	} else {
		// Недостаточно юнитов: обнуляем остаток вместо ухода в минус
		row.UnitsRemaining = 0
	}
	row.UpdatedAt = time.Now()
	r.rows[userID] = row

	return row.UnitsRemaining, nil
}

// SetStatusByCustomer меняет статус строки по Stripe customer id
func (r *InMemoryLedgerRepository) SetStatusByCustomer(ctx context.Context, customerID string, status domain.SubscriptionStatus) (*domain.Subscription, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if customerID == "" {
		return nil, ErrNotFound
	}

	for userID, row := range r.rows {
		if row.StripeCustomerID == customerID {
			row.Status = status
			row.UpdatedAt = time.Now()
			r.rows[userID] = row
			return &row, nil
		}
	}

	return nil, ErrNotFound
}

// PostgresLedgerRepository реализация реестра юнитов через PostgreSQL
type PostgresLedgerRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewPostgresLedgerRepository создает новый реестр юнитов через PostgreSQL
func NewPostgresLedgerRepository(db *pgxpool.Pool, log *logger.Logger) *PostgresLedgerRepository {
	return &PostgresLedgerRepository{
		db:  db,
		log: log,
	}
}

const ledgerColumns = `user_id, stripe_customer_id, plan, status, units_total, units_remaining, created_at, updated_at`

func scanLedgerRow(row pgx.Row) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := row.Scan(
		&sub.UserID,
		&sub.StripeCustomerID,
		&sub.Plan,
		&sub.Status,
		&sub.UnitsTotal,
		&sub.UnitsRemaining,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan ledger row: %w", err)
	}
	return &sub, nil
}

// GetByUserID возвращает строку реестра пользователя из базы данных
func (r *PostgresLedgerRepository) GetByUserID(ctx context.Context, userID string) (*domain.Subscription, error) {
	query := fmt.Sprintf(`SELECT %s FROM subscriptions WHERE user_id = $1`, ledgerColumns)
	return scanLedgerRow(r.db.QueryRow(ctx, query, userID))
}

// GetByCustomerID возвращает строку реестра по Stripe customer id из базы данных
func (r *PostgresLedgerRepository) GetByCustomerID(ctx context.Context, customerID string) (*domain.Subscription, error) {
	if customerID == "" {
		return nil, ErrNotFound
	}
	query := fmt.Sprintf(`SELECT %s FROM subscriptions WHERE stripe_customer_id = $1`, ledgerColumns)
	return scanLedgerRow(r.db.QueryRow(ctx, query, customerID))
}

// Grant начисляет юниты одним upsert-запросом.
// Конкурентные начисления складываются, а не перетирают друг друга.
func (r *PostgresLedgerRepository) Grant(ctx context.Context, grant domain.Grant) (*domain.Subscription, error) {
	if grant.UserID == "" || grant.Units <= 0 {
		return nil, ErrInvalidData
	}

	insertPlan := grant.Plan
	if !grant.SetPlan || insertPlan == "" {
		insertPlan = domain.PlanStarter
	}

	query := fmt.Sprintf(`
		INSERT INTO subscriptions (user_id, stripe_customer_id, plan, status, units_total, units_remaining, created_at, updated_at)
		VALUES ($1, $2, $3, 'active', $4, $4, now(), now())
		ON CONFLICT (user_id) DO UPDATE SET
			units_total = subscriptions.units_total + EXCLUDED.units_total,
			units_remaining = subscriptions.units_remaining + EXCLUDED.units_remaining,
			status = 'active',
			stripe_customer_id = COALESCE(NULLIF(EXCLUDED.stripe_customer_id, ''), subscriptions.stripe_customer_id),
			plan = CASE WHEN $5 THEN EXCLUDED.plan ELSE subscriptions.plan END,
			updated_at = now()
		RETURNING %s`, ledgerColumns)

	sub, err := scanLedgerRow(r.db.QueryRow(ctx, query,
		grant.UserID,
		grant.StripeCustomerID,
		insertPlan,
		grant.Units,
		grant.SetPlan,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to grant units: %w", err)
	}

	return sub, nil
}

// ConsumeUnits атомарно списывает юниты условным UPDATE-ом.
// Проверка и списание выполняются одним запросом, гонок между ними нет.
func (r *PostgresLedgerRepository) ConsumeUnits(ctx context.Context, userID string, units int64) (int64, error) {
	query := `
		UPDATE subscriptions
		SET units_remaining = units_remaining - $2, updated_at = now()
		WHERE user_id = $1 AND units_remaining >= $2
		RETURNING units_remaining
	`

	var remaining int64
	err := r.db.QueryRow(ctx, query, userID, units).Scan(&remaining)
	if err == nil {
		return remaining, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("failed to consume units: %w", err)
	}

	// Остатка не хватило: обнуляем вместо ухода в минус
	clampQuery := `
		UPDATE subscriptions
		SET units_remaining = 0, updated_at = now()
		WHERE user_id = $1 AND units_remaining < $2
	`

	if _, err := r.db.Exec(ctx, clampQuery, userID, units); err != nil {
		return 0, fmt.Errorf("failed to clamp units: %w", err)
	}

	return 0, nil
}

// SetStatusByCustomer меняет статус строки по Stripe customer id в базе данных
func (r *PostgresLedgerRepository) SetStatusByCustomer(ctx context.Context, customerID string, status domain.SubscriptionStatus) (*domain.Subscription, error) {
	if customerID == "" {
		return nil, ErrNotFound
	}

	query := fmt.Sprintf(`
		UPDATE subscriptions
		SET status = $2, updated_at = now()
		WHERE stripe_customer_id = $1
		RETURNING %s`, ledgerColumns)

	return scanLedgerRow(r.db.QueryRow(ctx, query, customerID, status))
}
