package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/hotelops/backoffice/internal/application"
	"github.com/hotelops/backoffice/internal/domain"
	"github.com/hotelops/backoffice/internal/interfaces/http/middleware"
	"github.com/hotelops/backoffice/internal/pkg/validator"
)

// LogbookHandler handles HTTP requests for the front-desk logbook
type LogbookHandler struct {
	service  *application.LogbookService
	validate *validator.Validator
}

// NewLogbookHandler creates a new logbook handler
func NewLogbookHandler(service *application.LogbookService, validate *validator.Validator) *LogbookHandler {
	return &LogbookHandler{service: service, validate: validate}
}

// PostEntryRequest represents a new logbook entry
type PostEntryRequest struct {
	Message  string `json:"message" validate:"required"`
	Priority string `json:"priority" validate:"omitempty,oneof=info important urgent"`
	Target   string `json:"target" validate:"omitempty,oneof=all management housekeeping maintenance"`
}

// List returns the entries matching the query:
// archived=true, q=<text>, filter=ALL|URGENT|IMPORTANT|MINE
func (h *LogbookHandler) List(c *fiber.Ctx) error {
	filter := filterFromQuery(c, middleware.Principal(c))

	return c.JSON(fiber.Map{
		"data": h.service.View(filter),
	})
}

// Post appends an entry authored by the caller
func (h *LogbookHandler) Post(c *fiber.Ctx) error {
	var req PostEntryRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return respondError(c, err)
	}

	entry, err := h.service.Post(c.UserContext(), middleware.Principal(c), application.PostEntry{
		Message:  req.Message,
		Priority: domain.LogPriority(req.Priority),
		Target:   domain.LogTarget(req.Target),
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"data": entry,
	})
}

// Archive hides an entry from the active view
func (h *LogbookHandler) Archive(c *fiber.Ctx) error {
	return h.setArchived(c, true)
}

// Unarchive restores an entry to the active view
func (h *LogbookHandler) Unarchive(c *fiber.Ctx) error {
	return h.setArchived(c, false)
}

// MarkRead records that the caller has read an entry
func (h *LogbookHandler) MarkRead(c *fiber.Ctx) error {
	if err := h.service.MarkRead(c.UserContext(), middleware.Principal(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Stream pushes the filtered entries on every change
func (h *LogbookHandler) Stream(c *fiber.Ctx) error {
	filter := filterFromQuery(c, middleware.Principal(c))

	return streamLive(c, h.service.Feed(), func(entries []domain.LogEntry) interface{} {
		return domain.FilterLog(entries, filter)
	})
}

func (h *LogbookHandler) setArchived(c *fiber.Ctx, archived bool) error {
	if err := h.service.SetArchived(c.UserContext(), middleware.Principal(c), c.Params("id"), archived); err != nil {
		return respondError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func filterFromQuery(c *fiber.Ctx, caller domain.Principal) domain.LogFilter {
	quick := domain.QuickFilter(strings.ToUpper(c.Query("filter", string(domain.QuickFilterAll))))
	switch quick {
	case domain.QuickFilterUrgent, domain.QuickFilterImportant, domain.QuickFilterMine:
	default:
		quick = domain.QuickFilterAll
	}

	return domain.LogFilter{
		ShowArchived:           c.QueryBool("archived", false),
		SearchText:             strings.Clone(c.Query("q")),
		QuickFilter:            quick,
		CurrentUserDisplayName: caller.DisplayName,
	}
}
