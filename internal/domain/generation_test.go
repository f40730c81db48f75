package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnitCost(t *testing.T) {
	tests := []struct {
		name    string
		model   Model
		quality Quality
		want    int64
	}{
		{"ideogram flat rate", ModelIdeogram, "", 10},
		{"ideogram ignores quality", ModelIdeogram, QualityLow, 10},
		{"gpt low", ModelGPT, QualityLow, 2},
		{"gpt medium", ModelGPT, QualityMedium, 6},
		{"gpt high", ModelGPT, QualityHigh, 10},
		{"gpt auto", ModelGPT, QualityAuto, 10},
		{"gpt unknown falls back to auto", ModelGPT, Quality("ultra"), 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UnitCost(tt.model, tt.quality))
		})
	}
}

func TestNormalizeAspectRatio(t *testing.T) {
	assert.Equal(t, "16:9", NormalizeAspectRatio(ModelIdeogram, "16:9"))
	assert.Equal(t, "4:5", NormalizeAspectRatio(ModelIdeogram, "4:5"))
	assert.Equal(t, "3:2", NormalizeAspectRatio(ModelGPT, "3:2"))

	// Неизвестное значение молча заменяется на значение по умолчанию
	assert.Equal(t, DefaultAspectRatio, NormalizeAspectRatio(ModelIdeogram, "21:9"))
	assert.Equal(t, DefaultAspectRatio, NormalizeAspectRatio(ModelIdeogram, ""))

	// Allow-листы у моделей разные
	assert.Equal(t, DefaultAspectRatio, NormalizeAspectRatio(ModelGPT, "16:9"))
	assert.Equal(t, DefaultAspectRatio, NormalizeAspectRatio(ModelIdeogram, "3:2"))
}

func TestNormalizeOutputFormat(t *testing.T) {
	assert.Equal(t, "webp", NormalizeOutputFormat("webp"))
	assert.Equal(t, "jpg", NormalizeOutputFormat("jpg"))
	assert.Equal(t, DefaultOutputFormat, NormalizeOutputFormat("gif"))
	assert.Equal(t, DefaultOutputFormat, NormalizeOutputFormat(""))
}

func TestSafeQuality(t *testing.T) {
	assert.Equal(t, QualityLow, SafeQuality("low"))
	assert.Equal(t, QualityAuto, SafeQuality(""))
	assert.Equal(t, QualityAuto, SafeQuality("extreme"))
}

func TestSafePlan(t *testing.T) {
	plan, ok := SafePlan("creator")
	assert.True(t, ok)
	assert.Equal(t, PlanCreator, plan)

	_, ok = SafePlan("enterprise")
	assert.False(t, ok)
}

func TestSubscriptionStatusHasAccess(t *testing.T) {
	assert.True(t, SubscriptionStatusActive.HasAccess())
	assert.True(t, SubscriptionStatusTrialing.HasAccess())
	assert.True(t, SubscriptionStatusCanceling.HasAccess())
	assert.False(t, SubscriptionStatusInactive.HasAccess())
	assert.False(t, SubscriptionStatus("unknown").HasAccess())
}
