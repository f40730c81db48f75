package handlers

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/realify/realify-backend/internal/domain"
	"github.com/realify/realify-backend/internal/middleware"
	"github.com/realify/realify-backend/internal/service"
	"github.com/realify/realify-backend/pkg/logger"
	"github.com/realify/realify-backend/pkg/req"
)

// GenerationHandler обработчик запросов генерации изображений
type GenerationHandler struct {
	generations service.GenerationService
	log         *logger.Logger
}

// NewGenerationHandler создает новый обработчик генераций
func NewGenerationHandler(generations service.GenerationService, log *logger.Logger) *GenerationHandler {
	return &GenerationHandler{
		generations: generations,
		log:         log,
	}
}

// ideogramRequest тело запроса генерации ideogram.
// Фронтенд присылает поля и в camelCase, и в snake_case, принимаем оба варианта.
type ideogramRequest struct {
	Prompt            string `json:"prompt"`
	AspectRatio       string `json:"aspectRatio"`
	AspectRatioSnake  string `json:"aspect_ratio"`
	OutputFormat      string `json:"outputFormat"`
	OutputFormatSnake string `json:"output_format"`
	NegativePrompt    string `json:"negativePrompt"`
	NegativeSnake     string `json:"negative_prompt"`
	Seed              any    `json:"seed"`
}

// GenerateIdeogram обрабатывает POST /api/v1/generate/ideogram
func (h *GenerationHandler) GenerateIdeogram(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, h.log, domain.ErrNotAuthenticated)
		return
	}

	body, err := req.HandleBody[ideogramRequest](c.Writer, c.Request, h.log)
	if err != nil {
		return
	}

	input := service.GenerationInput{
		UserID:         userID,
		Prompt:         body.Prompt,
		Model:          domain.ModelIdeogram,
		AspectRatio:    firstNonEmpty(body.AspectRatio, body.AspectRatioSnake),
		OutputFormat:   firstNonEmpty(body.OutputFormat, body.OutputFormatSnake),
		NegativePrompt: firstNonEmpty(body.NegativePrompt, body.NegativeSnake),
		Seed:           parseSeed(body.Seed),
	}

	result, err := h.generations.Generate(c.Request.Context(), input)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"image":           result.ImageURL,
		"cost":            result.Cost,
		"units_remaining": result.UnitsRemaining,
	})
}

// GenerateGPT обрабатывает POST /api/v1/generate/gpt (multipart-форма)
func (h *GenerationHandler) GenerateGPT(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, h.log, domain.ErrNotAuthenticated)
		return
	}

	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	images, err := h.readReferenceImages(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	input := service.GenerationInput{
		UserID:      userID,
		Prompt:      c.PostForm("prompt"),
		Model:       domain.ModelGPT,
		AspectRatio: firstNonEmpty(c.PostForm("aspectRatio"), c.PostForm("aspect_ratio")),
		Quality:     domain.Quality(c.PostForm("quality")),
		Images:      images,
	}

	result, err := h.generations.Generate(c.Request.Context(), input)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"image":           result.ImageURL,
		"cost":            result.Cost,
		"units_remaining": result.UnitsRemaining,
	})
}

// readReferenceImages читает референсные изображения из multipart-формы, не больше трех
func (h *GenerationHandler) readReferenceImages(c *gin.Context) ([]domain.UploadedImage, error) {
	form := c.Request.MultipartForm
	if form == nil {
		return nil, nil
	}

	files := form.File["images"]
	if len(files) == 0 {
		files = form.File["image"]
	}
	if len(files) > domain.MaxReferenceImages {
		files = files[:domain.MaxReferenceImages]
	}

	var images []domain.UploadedImage
	for _, header := range files {
		img, err := readFormFile(header)
		if err != nil {
			return nil, err
		}
		images = append(images, *img)
	}

	return images, nil
}

// readFormFile читает один файл формы с ограничением размера
func readFormFile(header *multipart.FileHeader) (*domain.UploadedImage, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, domain.MaxMediaBytes+1))
	if err != nil {
		return nil, err
	}

	return &domain.UploadedImage{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// firstNonEmpty возвращает первое непустое значение
func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

// parseSeed принимает seed числом или строкой
func parseSeed(raw any) *int64 {
	switch v := raw.(type) {
	case float64:
		seed := int64(v)
		return &seed
	case string:
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			return &seed
		}
	}
	return nil
}
