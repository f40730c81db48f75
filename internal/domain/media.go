package domain

import (
	"time"

	"github.com/google/uuid"
)

// Ограничения на загружаемые файлы
const MaxMediaBytes = 10 << 20 // 10MB

var allowedMediaTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
}

// AllowedMediaType проверяет content type загружаемого файла
func AllowedMediaType(contentType string) bool {
	return allowedMediaTypes[contentType]
}

// Media сохраненный файл изображения (сгенерированный или загруженный)
type Media struct {
	ID          uuid.UUID `json:"id"`
	UserID      string    `json:"user_id"`
	ContentType string    `json:"content_type"`
	Data        []byte    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}
