package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hotelops/backoffice/internal/application"
	"github.com/hotelops/backoffice/internal/domain"
	"github.com/hotelops/backoffice/internal/interfaces/http/middleware"
	"github.com/hotelops/backoffice/internal/pkg/validator"
)

// ConciergeHandler handles wake-up calls and taxi bookings
type ConciergeHandler struct {
	service  *application.ConciergeService
	validate *validator.Validator
}

// NewConciergeHandler creates a new concierge handler
func NewConciergeHandler(service *application.ConciergeService, validate *validator.Validator) *ConciergeHandler {
	return &ConciergeHandler{service: service, validate: validate}
}

// WakeUpRequest represents a new wake-up call
type WakeUpRequest struct {
	Room      string    `json:"room" validate:"required"`
	GuestName string    `json:"guestName"`
	Time      time.Time `json:"time" validate:"required"`
	Notes     string    `json:"notes"`
}

// WakeUpDoneRequest marks a call as made or pending
type WakeUpDoneRequest struct {
	Done bool `json:"done"`
}

// TaxiRequest represents a new taxi booking
type TaxiRequest struct {
	Room        string    `json:"room"`
	GuestName   string    `json:"guestName"`
	PickupTime  time.Time `json:"pickupTime" validate:"required"`
	Destination string    `json:"destination" validate:"required"`
	Passengers  int       `json:"passengers" validate:"omitempty,min=1,max=8"`
}

// TaxiStatusRequest moves a booking along
type TaxiStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=requested confirmed completed cancelled"`
}

// ListWakeUps returns the scheduled calls
func (h *ConciergeHandler) ListWakeUps(c *fiber.Ctx) error {
	calls, err := h.service.WakeUpCalls(middleware.Principal(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"data": calls,
	})
}

// ScheduleWakeUp creates a wake-up call
func (h *ConciergeHandler) ScheduleWakeUp(c *fiber.Ctx) error {
	var req WakeUpRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return respondError(c, err)
	}

	call, err := h.service.ScheduleWakeUp(c.UserContext(), middleware.Principal(c), req.Room, req.GuestName, req.Time, req.Notes)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"data": call,
	})
}

// SetWakeUpDone marks a call as made or pending
func (h *ConciergeHandler) SetWakeUpDone(c *fiber.Ctx) error {
	var req WakeUpDoneRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return respondError(c, err)
	}

	if err := h.service.SetWakeUpDone(c.UserContext(), middleware.Principal(c), c.Params("id"), req.Done); err != nil {
		return respondError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// CancelWakeUp removes a call
func (h *ConciergeHandler) CancelWakeUp(c *fiber.Ctx) error {
	if err := h.service.CancelWakeUp(c.UserContext(), middleware.Principal(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// StreamWakeUps pushes the calls on every change
func (h *ConciergeHandler) StreamWakeUps(c *fiber.Ctx) error {
	return streamLive(c, h.service.WakeUpFeed(), asIs[[]domain.WakeUpCall])
}

// ListTaxis returns the bookings
func (h *ConciergeHandler) ListTaxis(c *fiber.Ctx) error {
	bookings, err := h.service.TaxiBookings(middleware.Principal(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"data": bookings,
	})
}

// BookTaxi creates a taxi booking
func (h *ConciergeHandler) BookTaxi(c *fiber.Ctx) error {
	var req TaxiRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return respondError(c, err)
	}

	booking, err := h.service.BookTaxi(c.UserContext(), middleware.Principal(c),
		req.Room, req.GuestName, req.PickupTime, req.Destination, req.Passengers)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"data": booking,
	})
}

// SetTaxiStatus moves a booking along
func (h *ConciergeHandler) SetTaxiStatus(c *fiber.Ctx) error {
	var req TaxiStatusRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return respondError(c, err)
	}

	status := domain.TaxiStatus(req.Status)
	if err := h.service.SetTaxiStatus(c.UserContext(), middleware.Principal(c), c.Params("id"), status); err != nil {
		return respondError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// CancelTaxi removes a booking
func (h *ConciergeHandler) CancelTaxi(c *fiber.Ctx) error {
	if err := h.service.CancelTaxi(c.UserContext(), middleware.Principal(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// StreamTaxis pushes the bookings on every change
func (h *ConciergeHandler) StreamTaxis(c *fiber.Ctx) error {
	return streamLive(c, h.service.TaxiFeed(), asIs[[]domain.TaxiBooking])
}
