package domain

import "time"

// Plan тарифный план пользователя
type Plan string

const (
	PlanStarter Plan = "starter"
	PlanCreator Plan = "creator"
	PlanPro     Plan = "pro"
)

// SafePlan приводит произвольную строку к известному плану
func SafePlan(s string) (Plan, bool) {
	switch Plan(s) {
	case PlanStarter, PlanCreator, PlanPro:
		return Plan(s), true
	}
	return "", false
}

// PlanUnits количество юнитов, начисляемых за оплату плана
var PlanUnits = map[Plan]int64{
	PlanStarter: 200,
	PlanCreator: 750,
	PlanPro:     1500,
}

// Bundle разовый пакет юнитов (не подписка)
type Bundle string

const (
	BundleSmall  Bundle = "small"
	BundleMedium Bundle = "medium"
	BundleLarge  Bundle = "large"
)

// BundleUnits количество юнитов в разовом пакете
var BundleUnits = map[Bundle]int64{
	BundleSmall:  100,
	BundleMedium: 200,
	BundleLarge:  300,
}

// SubscriptionStatus статус подписки
type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusTrialing  SubscriptionStatus = "trialing"
	SubscriptionStatusCanceling SubscriptionStatus = "canceling"
	SubscriptionStatusInactive  SubscriptionStatus = "inactive"
)

// HasAccess сообщает, дает ли статус право тратить юниты
func (s SubscriptionStatus) HasAccess() bool {
	switch s {
	case SubscriptionStatusActive, SubscriptionStatusTrialing, SubscriptionStatusCanceling:
		return true
	}
	return false
}

// Subscription строка реестра юнитов: одна на пользователя
type Subscription struct {
	UserID           string             `json:"user_id"`
	StripeCustomerID string             `json:"stripe_customer_id,omitempty"`
	Plan             Plan               `json:"plan"`
	Status           SubscriptionStatus `json:"status"`
	UnitsTotal       int64              `json:"units_total"`
	UnitsRemaining   int64              `json:"units_remaining"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// Grant начисление юнитов пользователю по биллинговому событию.
// SetPlan = false для разовых пакетов: они не меняют тарифный план.
type Grant struct {
	UserID           string
	Plan             Plan
	Units            int64
	StripeCustomerID string
	SetPlan          bool
}

// SubscriptionSummary краткая сводка по подписке для фронтенда
type SubscriptionSummary struct {
	Status         string `json:"status"`
	Plan           Plan   `json:"plan,omitempty"`
	UnitsRemaining int64  `json:"units_remaining"`
}

// Статусы для SubscriptionSummary
const (
	SummaryStatusActive       = "active"
	SummaryStatusNoPlan       = "no_plan"
	SummaryStatusLimitReached = "limit_reached"
)
