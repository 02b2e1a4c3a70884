package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/hotelops/backoffice/internal/application"
	"github.com/hotelops/backoffice/internal/domain"
	"github.com/hotelops/backoffice/internal/interfaces/http/middleware"
	"github.com/hotelops/backoffice/internal/pkg/validator"
)

// UserHandler handles principal management and the staff roster
type UserHandler struct {
	directory *application.Directory
	validate  *validator.Validator
}

// NewUserHandler creates a new user handler
func NewUserHandler(directory *application.Directory, validate *validator.Validator) *UserHandler {
	return &UserHandler{directory: directory, validate: validate}
}

// UpdateUserRequest represents an admin edit of another principal
type UpdateUserRequest struct {
	DisplayName *string `json:"displayName,omitempty" validate:"omitempty,min=1"`
	Role        *string `json:"role,omitempty" validate:"omitempty,role"`
	Password    *string `json:"password,omitempty" validate:"omitempty,min=6"`
	// flags left out take the default of the resulting role
	Permissions map[string]bool `json:"permissions,omitempty" validate:"capability"`
}

// UpdatePermissionsRequest replaces a principal's role and capability flags
type UpdatePermissionsRequest struct {
	Role        string          `json:"role" validate:"required,role"`
	Permissions map[string]bool `json:"permissions" validate:"capability"`
}

// RegisterUserRequest represents admin-side account creation
type RegisterUserRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

// RosterEntry is the public part of a principal used to pick authors
type RosterEntry struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
}

// List returns every principal
func (h *UserHandler) List(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"data": h.directory.Principals(),
	})
}

// Get returns one principal
func (h *UserHandler) Get(c *fiber.Ctx) error {
	p, ok := h.directory.Lookup(c.Params("uid"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "user not found",
		})
	}

	return c.JSON(fiber.Map{
		"data": p,
	})
}

// Roster returns the names of all principals
func (h *UserHandler) Roster(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"data": roster(h.directory.Principals()),
	})
}

// Stream pushes the roster on every change
func (h *UserHandler) Stream(c *fiber.Ctx) error {
	return streamLive(c, h.directory.Live(), func(principals []domain.Principal) interface{} {
		return roster(principals)
	})
}

// Update edits another principal
func (h *UserHandler) Update(c *fiber.Ctx) error {
	var req UpdateUserRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return respondError(c, err)
	}

	update := domain.PrincipalUpdate{
		DisplayName: req.DisplayName,
		Password:    req.Password,
	}
	if req.Role != nil {
		role := domain.ParseRole(*req.Role)
		update.Role = &role
	}
	if req.Permissions != nil {
		role := domain.RoleStaff
		if update.Role != nil {
			role = *update.Role
		} else if target, ok := h.directory.Lookup(c.Params("uid")); ok {
			role = target.Role
		}
		permissions := permissionsFromRequest(req.Permissions, role)
		update.Permissions = &permissions
	}

	if err := middleware.Session(c).AdminUpdateUser(c.UserContext(), c.Params("uid"), update); err != nil {
		return respondError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// UpdatePermissions replaces another principal's role and permissions.
// Flags left out of the request take the role default.
func (h *UserHandler) UpdatePermissions(c *fiber.Ctx) error {
	var req UpdatePermissionsRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return respondError(c, err)
	}

	role := domain.ParseRole(req.Role)
	permissions := permissionsFromRequest(req.Permissions, role)

	if err := middleware.Session(c).UpdateUserPermissions(c.UserContext(), c.Params("uid"), role, permissions); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{"role": role, "permissions": permissions},
	})
}

// Delete removes another principal
func (h *UserHandler) Delete(c *fiber.Ctx) error {
	if err := middleware.Session(c).DeleteUser(c.UserContext(), c.Params("uid")); err != nil {
		return respondError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Register is kept for API compatibility and always answers 501, whatever
// the caller's role or body
func (h *UserHandler) Register(c *fiber.Ctx) error {
	var req RegisterUserRequest
	_ = c.BodyParser(&req)

	if err := middleware.Session(c).RegisterUser(c.UserContext(), req.Email, req.Password, req.DisplayName, domain.ParseRole(req.Role)); err != nil {
		return respondError(c, err)
	}

	return c.SendStatus(fiber.StatusCreated)
}

func permissionsFromRequest(flags map[string]bool, role domain.Role) domain.PermissionSet {
	raw := make(map[string]any, len(flags))
	for k, v := range flags {
		raw[k] = v
	}
	return domain.PermissionsFromMap(raw, role)
}

func roster(principals []domain.Principal) []RosterEntry {
	out := make([]RosterEntry, len(principals))
	for i, p := range principals {
		out[i] = RosterEntry{UID: p.UID, DisplayName: p.DisplayName}
	}
	return out
}
