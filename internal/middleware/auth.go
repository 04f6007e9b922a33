package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/docstore/internal/utils"
)

const (
	userContextKey  = "currentUserID"
	emailContextKey = "currentUserEmail"
)

// AuthMiddleware validates session JWTs and loads the account id and email into context.
func AuthMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Access token required")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Access token required")
		}

		claims, err := utils.ParseToken(secret, strings.TrimSpace(parts[1]))
		if err != nil {
			return fiber.NewError(fiber.StatusForbidden, "Invalid or expired token")
		}

		userID, _ := uuid.Parse(claims.UserID)
		c.Locals(userContextKey, userID)
		c.Locals(emailContextKey, claims.Email)
		return c.Next()
	}
}

// GetCurrentUserID extracts the authenticated user ID from context.
func GetCurrentUserID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, ok := c.Locals(userContextKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// GetCurrentEmail extracts the authenticated email from context.
func GetCurrentEmail(c *fiber.Ctx) string {
	email, _ := c.Locals(emailContextKey).(string)
	return email
}
