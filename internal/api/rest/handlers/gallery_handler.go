package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/realify/realify-backend/internal/domain"
	"github.com/realify/realify-backend/internal/middleware"
	"github.com/realify/realify-backend/internal/service"
	"github.com/realify/realify-backend/pkg/logger"
)

// Максимум записей в выдаче галереи
const galleryLimit = 50

// GalleryHandler обработчик галереи генераций
type GalleryHandler struct {
	generations service.GenerationService
	log         *logger.Logger
}

// NewGalleryHandler создает новый обработчик галереи
func NewGalleryHandler(generations service.GenerationService, log *logger.Logger) *GalleryHandler {
	return &GalleryHandler{
		generations: generations,
		log:         log,
	}
}

// List обрабатывает GET /api/v1/gallery.
// Неаутентифицированный запрос получает пустой список, а не 401.
func (h *GalleryHandler) List(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"images": []domain.HistoryRecord{}})
		return
	}

	records := h.generations.Gallery(c.Request.Context(), userID, galleryLimit)
	c.JSON(http.StatusOK, gin.H{"images": records})
}
