package handlers

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hotelops/backoffice/internal/application"
	"github.com/hotelops/backoffice/internal/domain"
	"github.com/hotelops/backoffice/internal/infrastructure/photo"
	"github.com/hotelops/backoffice/internal/interfaces/http/middleware"
	"github.com/hotelops/backoffice/internal/pkg/validator"
)

const maxPhotoSize = 5 * 1024 * 1024

var allowedPhotoExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true}

// LostFoundHandler handles the lost-and-found inventory and its photos
type LostFoundHandler struct {
	service  *application.LostFoundService
	validate *validator.Validator
}

// NewLostFoundHandler creates a new lost-and-found handler
func NewLostFoundHandler(service *application.LostFoundService, validate *validator.Validator) *LostFoundHandler {
	return &LostFoundHandler{service: service, validate: validate}
}

// RegisterItemRequest represents a newly found item
type RegisterItemRequest struct {
	Description string    `json:"description" validate:"required"`
	Location    string    `json:"location"`
	FoundAt     time.Time `json:"foundAt"`
}

// ReturnItemRequest records who the item went back to
type ReturnItemRequest struct {
	ReturnedTo string `json:"returnedTo" validate:"required"`
}

// PhotoResponse represents the response for a photo upload
type PhotoResponse struct {
	URL string `json:"url"`
}

// List returns the inventory
func (h *LostFoundHandler) List(c *fiber.Ctx) error {
	items, err := h.service.Items(middleware.Principal(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"data": items,
	})
}

// Register records a found item
func (h *LostFoundHandler) Register(c *fiber.Ctx) error {
	var req RegisterItemRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return respondError(c, err)
	}

	item, err := h.service.Register(c.UserContext(), middleware.Principal(c), req.Description, req.Location, req.FoundAt)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"data": item,
	})
}

// MarkReturned records that an item went back to its owner
func (h *LostFoundHandler) MarkReturned(c *fiber.Ctx) error {
	var req ReturnItemRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return respondError(c, err)
	}

	if err := h.service.MarkReturned(c.UserContext(), middleware.Principal(c), c.Params("id"), req.ReturnedTo); err != nil {
		return respondError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// UploadPhoto attaches a photo to an item
func (h *LostFoundHandler) UploadPhoto(c *fiber.Ctx) error {
	file, err := c.FormFile("photo")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "photo file is required",
		})
	}

	// Validate file type
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedPhotoExts[ext] {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "only PNG, JPG or GIF photos are supported",
		})
	}

	// Validate file size (max 5MB)
	if file.Size > maxPhotoSize {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "photo must be at most 5MB",
		})
	}

	body, err := file.Open()
	if err != nil {
		return respondError(c, err)
	}
	defer body.Close()

	normalized, err := photo.Normalize(body)
	if err != nil {
		return respondError(c, err)
	}

	// stored photos are always JPEG
	name := strings.TrimSuffix(file.Filename, filepath.Ext(file.Filename)) + ".jpg"
	url, err := h.service.AttachPhoto(c.UserContext(), middleware.Principal(c), c.Params("id"), name, normalized)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"data": PhotoResponse{URL: url},
	})
}

// Stream pushes the inventory on every change
func (h *LostFoundHandler) Stream(c *fiber.Ctx) error {
	return streamLive(c, h.service.Feed(), asIs[[]domain.LostItem])
}
