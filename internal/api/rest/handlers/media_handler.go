package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/realify/realify-backend/internal/domain"
	"github.com/realify/realify-backend/internal/middleware"
	"github.com/realify/realify-backend/internal/repository"
	"github.com/realify/realify-backend/internal/service"
	"github.com/realify/realify-backend/pkg/logger"
)

// MediaHandler обработчик загрузки и выдачи файлов
type MediaHandler struct {
	media service.MediaService
	log   *logger.Logger
}

// NewMediaHandler создает новый обработчик файлов
func NewMediaHandler(media service.MediaService, log *logger.Logger) *MediaHandler {
	return &MediaHandler{
		media: media,
		log:   log,
	}
}

// Upload обрабатывает POST /api/v1/upload
func (h *MediaHandler) Upload(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, h.log, domain.ErrNotAuthenticated)
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_file"})
		return
	}
	if header.Size > domain.MaxMediaBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file_too_large"})
		return
	}

	img, err := readFormFile(header)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	media, err := h.media.Save(c.Request.Context(), userID, *img)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidData) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_file"})
			return
		}
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": "/media/" + media.ID.String()})
}

// Serve обрабатывает GET /media/:id
func (h *MediaHandler) Serve(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_id"})
		return
	}

	media, err := h.media.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		respondError(c, h.log, err)
		return
	}

	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.Data(http.StatusOK, media.ContentType, media.Data)
}
