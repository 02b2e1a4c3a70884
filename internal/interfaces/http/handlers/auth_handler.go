package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hotelops/backoffice/internal/application"
	"github.com/hotelops/backoffice/internal/domain"
	"github.com/hotelops/backoffice/internal/interfaces/http/middleware"
	"github.com/hotelops/backoffice/internal/pkg/validator"
)

// AuthHandler handles HTTP requests for authentication
type AuthHandler struct {
	sessions *application.SessionRegistry
	validate *validator.Validator
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(sessions *application.SessionRegistry, validate *validator.Validator) *AuthHandler {
	return &AuthHandler{sessions: sessions, validate: validate}
}

// LoginRequest represents login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignupRequest represents self-service signup
type SignupRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6"`
	DisplayName string `json:"displayName" validate:"required"`
}

// ProfileRequest renames the signed-in principal
type ProfileRequest struct {
	DisplayName string `json:"displayName" validate:"required"`
}

// SessionResponse is returned by login and signup
type SessionResponse struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expiresAt"`
	Principal domain.Principal `json:"principal"`
}

// Login authenticates a principal
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return respondError(c, err)
	}

	session, auth, err := h.sessions.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}

	return h.respondSession(c, fiber.StatusOK, session, auth)
}

// Signup creates an account with a manager principal
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req SignupRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return respondError(c, err)
	}

	session, auth, err := h.sessions.Signup(c.UserContext(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		return respondError(c, err)
	}

	return h.respondSession(c, fiber.StatusCreated, session, auth)
}

// Logout ends the current session
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.sessions.Logout(c.UserContext(), middleware.Token(c)); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "logged out",
	})
}

// Me returns the current principal
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"data": middleware.Principal(c),
	})
}

// UpdateProfile renames the current principal
func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	var req ProfileRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return respondError(c, err)
	}

	session := middleware.Session(c)
	if err := session.UpdateProfile(c.UserContext(), req.DisplayName); err != nil {
		return respondError(c, err)
	}

	principal, _ := session.Current()
	return c.JSON(fiber.Map{
		"data": principal,
	})
}

func (h *AuthHandler) respondSession(c *fiber.Ctx, status int, session *application.Session, auth domain.AuthSession) error {
	principal, ok := session.Current()
	if !ok {
		return respondError(c, domain.ErrNotAuthenticated)
	}

	return c.Status(status).JSON(fiber.Map{
		"data": SessionResponse{
			Token:     auth.Token,
			ExpiresAt: auth.ExpiresAt,
			Principal: principal,
		},
	})
}
