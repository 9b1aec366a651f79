package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"tradehub/internal/errs"
	"tradehub/internal/services"
)

const (
	LocalUserID = "user_id"
	LocalEmail  = "email"
)

// TokenValidator is satisfied by *services.AuthService.
type TokenValidator interface {
	ValidateToken(token string) (*services.Claims, error)
}

// AuthRequired is a Fiber middleware to check for a valid JWT token.
func AuthRequired(auth TokenValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return errs.New(errs.ErrUnauthorized, "authorization header is required")
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return errs.New(errs.ErrUnauthorized, "authorization header format must be 'Bearer <token>'")
		}

		claims, err := auth.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			return err
		}

		c.Locals(LocalUserID, claims.UserID)
		c.Locals(LocalEmail, claims.Email)
		return c.Next()
	}
}

// AdminOnly admits authenticated users whose email is in adminEmails. It must run after AuthRequired.
func AdminOnly(adminEmails []string) fiber.Handler {
	admins := make(map[string]bool, len(adminEmails))
	for _, email := range adminEmails {
		admins[strings.ToLower(strings.TrimSpace(email))] = true
	}
	return func(c *fiber.Ctx) error {
		email, _ := c.Locals(LocalEmail).(string)
		if !admins[strings.ToLower(email)] {
			return errs.New(errs.ErrForbidden, "admin access required")
		}
		return c.Next()
	}
}

// UserID returns the authenticated user's id set by AuthRequired.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalUserID).(string)
	return id
}
