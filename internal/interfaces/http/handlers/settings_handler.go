package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/hotelops/backoffice/internal/domain"
	"github.com/hotelops/backoffice/internal/interfaces/http/middleware"
)

// SettingsHandler handles HTTP requests for the caller's own preferences
type SettingsHandler struct{}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler() *SettingsHandler {
	return &SettingsHandler{}
}

// Get returns current settings
func (h *SettingsHandler) Get(c *fiber.Ctx) error {
	settings, err := middleware.Session(c).Settings(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"data": settings.Current(),
	})
}

// Update merges the fields present in the body into the settings
func (h *SettingsHandler) Update(c *fiber.Ctx) error {
	var req domain.SettingsPatch
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body: " + err.Error(),
		})
	}

	settings, err := middleware.Session(c).Settings(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}

	if err := settings.Save(c.UserContext(), req); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "settings saved",
	})
}

// Stream pushes the settings on every change
func (h *SettingsHandler) Stream(c *fiber.Ctx) error {
	settings, err := middleware.Session(c).Settings(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}

	return streamLive(c, settings.Live(), asIs[domain.UserSettings])
}
