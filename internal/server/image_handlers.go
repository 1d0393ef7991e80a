package server

import (
	"io"
	"mime/multipart"

	"openobservatory/internal/models"
	"openobservatory/internal/service"

	"github.com/gofiber/fiber/v2"
)

// UploadImage handles POST /api/images
// @Summary Upload an image
// @Description Stores the image as WebP, downscaled to fit 1024px, addressed by its content hash.
// @Tags images
// @Security BearerAuth
// @Accept mpfd
// @Produce json
// @Param image formData file true "PNG, JPEG, GIF or WebP image"
// @Success 201 {object} service.UploadedImage
// @Failure 400 {object} models.ErrorResponse
// @Router /images [post]
func (s *Server) UploadImage(c *fiber.Ctx) error {
	file, err := c.FormFile("image")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("No file uploaded"))
	}
	content, err := readUpload(file, s.imageService.MaxUploadSizeBytes())
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, err)
	}

	uploaded, err := s.imageService.Upload(c.UserContext(), service.UploadImageInput{
		UserID:      currentUserID(c),
		Filename:    file.Filename,
		ContentType: file.Header.Get(fiber.HeaderContentType),
		Content:     content,
	})
	if err != nil {
		return respondError(c, err)
	}

	c.Location(uploaded.URL)
	return c.Status(fiber.StatusCreated).JSON(uploaded)
}

// readUpload reads at most limit bytes of the multipart file. The declared
// size is checked first, the read itself is capped in case it lied.
func readUpload(file *multipart.FileHeader, limit int64) ([]byte, error) {
	tooLarge := models.NewValidationError("Image exceeds maximum upload size")
	if file.Size > limit {
		return nil, tooLarge
	}
	src, err := file.Open()
	if err != nil {
		return nil, models.NewValidationError("Unable to read uploaded file")
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(io.LimitReader(src, limit+1))
	switch {
	case err != nil:
		return nil, models.NewValidationError("Unable to read uploaded file")
	case int64(len(content)) > limit:
		return nil, tooLarge
	}
	return content, nil
}
