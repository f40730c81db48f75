package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/realify/realify-backend/pkg/logger"
)

// UsageMetrics интерфейс для метрик генераций и расхода юнитов
type UsageMetrics interface {
	IncGeneration(model string, status string)
	ObserveGenerationDuration(model string, seconds float64)
	AddUnitsSpent(model string, units int64)
	AddUnitsGranted(source string, units int64)
	IncWebhookEvent(eventType string, outcome string)
}

type usageMetrics struct {
	log                *logger.Logger
	generations        *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	unitsSpent         *prometheus.CounterVec
	unitsGranted       *prometheus.CounterVec
	webhookEvents      *prometheus.CounterVec
}

// NewUsageMetrics создает новые метрики использования
func NewUsageMetrics(registry *prometheus.Registry, log *logger.Logger) UsageMetrics {
	generations := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "generations_total",
			Help: "The total number of image generations by model and status",
		},
		[]string{"model", "status"},
	)

	generationDuration := promauto.With(registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "generation_duration_seconds",
			Help:    "Image generation duration distribution",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s .. 64s
		},
		[]string{"model"},
	)

	unitsSpent := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "units_spent_total",
			Help: "The total number of units spent on generations",
		},
		[]string{"model"},
	)

	unitsGranted := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "units_granted_total",
			Help: "The total number of units granted by billing events",
		},
		[]string{"source"},
	)

	webhookEvents := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "stripe_webhook_events_total",
			Help: "The total number of processed Stripe webhook events",
		},
		[]string{"type", "outcome"},
	)

	return &usageMetrics{
		log:                log,
		generations:        generations,
		generationDuration: generationDuration,
		unitsSpent:         unitsSpent,
		unitsGranted:       unitsGranted,
		webhookEvents:      webhookEvents,
	}
}

// IncGeneration увеличивает счетчик генераций
func (m *usageMetrics) IncGeneration(model string, status string) {
	m.generations.WithLabelValues(model, status).Inc()
}

// ObserveGenerationDuration записывает длительность генерации
func (m *usageMetrics) ObserveGenerationDuration(model string, seconds float64) {
	m.generationDuration.WithLabelValues(model).Observe(seconds)
}

// AddUnitsSpent увеличивает счетчик потраченных юнитов
func (m *usageMetrics) AddUnitsSpent(model string, units int64) {
	m.unitsSpent.WithLabelValues(model).Add(float64(units))
}

// AddUnitsGranted увеличивает счетчик начисленных юнитов
func (m *usageMetrics) AddUnitsGranted(source string, units int64) {
	m.unitsGranted.WithLabelValues(source).Add(float64(units))
}

// IncWebhookEvent увеличивает счетчик событий вебхуков
func (m *usageMetrics) IncWebhookEvent(eventType string, outcome string) {
	m.webhookEvents.WithLabelValues(eventType, outcome).Inc()
}
