package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/hotelops/backoffice/internal/application"
	"github.com/hotelops/backoffice/internal/domain"
)

const (
	localSession   = "session"
	localToken     = "token"
	localPrincipal = "principal"
)

// AuthMiddleware resolves bearer tokens to live sessions
type AuthMiddleware struct {
	sessions *application.SessionRegistry
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(sessions *application.SessionRegistry) *AuthMiddleware {
	return &AuthMiddleware{sessions: sessions}
}

// Authenticate validates the bearer token and attaches its session.
// Event streams may pass the token as access_token since browsers cannot
// set headers on them.
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Query("access_token")
		if token == "" {
			authHeader := c.Get("Authorization")
			if authHeader == "" {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "missing authorization header",
				})
			}

			token = strings.TrimPrefix(authHeader, "Bearer ")
			if token == authHeader {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "invalid authorization header format",
				})
			}
		}

		session, err := m.sessions.Resume(c.UserContext(), token)
		if err != nil {
			status := fiber.StatusUnauthorized
			if !errors.Is(err, domain.ErrNotAuthenticated) {
				status = fiber.StatusServiceUnavailable
			}
			return c.Status(status).JSON(fiber.Map{
				"error": "invalid or expired token",
			})
		}

		principal, ok := session.Current()
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "no principal for this session",
			})
		}

		// Store the session in context for use in handlers
		c.Locals(localSession, session)
		c.Locals(localToken, token)
		c.Locals(localPrincipal, principal)

		return c.Next()
	}
}

// RequireRole checks if the principal has the required role or a higher one
func (m *AuthMiddleware) RequireRole(requiredRole domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := c.Locals(localPrincipal).(domain.Principal)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "unauthorized",
			})
		}

		roleHierarchy := map[domain.Role]int{
			domain.RoleStaff:   1,
			domain.RoleManager: 2,
			domain.RoleAdmin:   3,
		}

		if roleHierarchy[principal.Role] < roleHierarchy[requiredRole] {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "insufficient permissions",
			})
		}

		return c.Next()
	}
}

// RequireCapability checks a single permission flag of the principal
func (m *AuthMiddleware) RequireCapability(capability domain.Capability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := c.Locals(localPrincipal).(domain.Principal)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "unauthorized",
			})
		}

		if !principal.Can(capability) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "missing permission " + string(capability),
			})
		}

		return c.Next()
	}
}

// Session returns the session attached by Authenticate
func Session(c *fiber.Ctx) *application.Session {
	s, _ := c.Locals(localSession).(*application.Session)
	return s
}

// Token returns the bearer token of the request
func Token(c *fiber.Ctx) string {
	t, _ := c.Locals(localToken).(string)
	return t
}

// Principal returns the principal resolved for the request
func Principal(c *fiber.Ctx) domain.Principal {
	p, _ := c.Locals(localPrincipal).(domain.Principal)
	return p
}
