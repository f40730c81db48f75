package domain

import (
	"time"

	"github.com/google/uuid"
)

// Model модель генерации изображений
type Model string

const (
	ModelIdeogram Model = "ideogram"
	ModelGPT      Model = "gpt"
)

// Идентификаторы моделей на стороне Replicate
const (
	ReplicateModelIdeogram = "ideogram-ai/ideogram-v2-turbo"
	ReplicateModelGPT      = "openai/gpt-image-1.5"
)

// Quality уровень качества генерации (только для gpt)
type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
	QualityAuto   Quality = "auto"
)

// SafeQuality приводит произвольную строку к известному уровню качества
func SafeQuality(s string) Quality {
	switch Quality(s) {
	case QualityLow, QualityMedium, QualityHigh, QualityAuto:
		return Quality(s)
	}
	return QualityAuto
}

// Значения по умолчанию для параметров генерации
const (
	DefaultAspectRatio  = "1:1"
	DefaultOutputFormat = "png"
)

var ideogramAspectRatios = map[string]bool{
	"1:1":  true,
	"16:9": true,
	"9:16": true,
	"4:5":  true,
}

var gptAspectRatios = map[string]bool{
	"1:1": true,
	"3:2": true,
	"2:3": true,
}

var outputFormats = map[string]bool{
	"png":  true,
	"jpg":  true,
	"webp": true,
}

// NormalizeAspectRatio возвращает соотношение сторон из allow-листа модели.
// Нераспознанное значение молча заменяется на значение по умолчанию.
func NormalizeAspectRatio(model Model, raw string) string {
	allowed := ideogramAspectRatios
	if model == ModelGPT {
		allowed = gptAspectRatios
	}
	if allowed[raw] {
		return raw
	}
	return DefaultAspectRatio
}

// NormalizeOutputFormat возвращает формат вывода из allow-листа
func NormalizeOutputFormat(raw string) string {
	if outputFormats[raw] {
		return raw
	}
	return DefaultOutputFormat
}

// Стоимость генерации в юнитах
const unitCostIdeogram int64 = 10

var gptUnitCosts = map[Quality]int64{
	QualityLow:    2,
	QualityMedium: 6,
	QualityAuto:   10,
	QualityHigh:   10,
}

// UnitCost возвращает стоимость одной генерации для модели и уровня качества
func UnitCost(model Model, quality Quality) int64 {
	if model == ModelGPT {
		if cost, ok := gptUnitCosts[quality]; ok {
			return cost
		}
		return gptUnitCosts[QualityAuto]
	}
	return unitCostIdeogram
}

// HistoryRecord запись истории генераций (append-only)
type HistoryRecord struct {
	ID          uuid.UUID `json:"id"`
	UserID      string    `json:"user_id"`
	Prompt      string    `json:"prompt"`
	Model       Model     `json:"model"`
	AspectRatio string    `json:"aspect_ratio"`
	ImageURL    string    `json:"image_url"`
	CreatedAt   time.Time `json:"created_at"`
}

// UploadedImage референсное изображение из multipart-формы
type UploadedImage struct {
	Name        string
	ContentType string
	Data        []byte
}

// MaxReferenceImages максимум референсных изображений в одном запросе
const MaxReferenceImages = 3
