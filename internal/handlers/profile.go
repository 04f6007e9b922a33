package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/example/docstore/internal/middleware"
	"github.com/example/docstore/internal/store"
)

// ProfileHandler serves the authenticated user's own account.
type ProfileHandler struct {
	accounts *store.AccountStore
}

func NewProfileHandler(accounts *store.AccountStore) *ProfileHandler {
	return &ProfileHandler{accounts: accounts}
}

// GetProfile returns the current account including its live token balance.
func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	user, err := h.accounts.Get(c.UserContext(), userID)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "User not found")
		}
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user": fiber.Map{
			"id":          user.ID,
			"email":       user.Email,
			"fullName":    user.FullName,
			"phoneNumber": user.PhoneNumber,
			"tokens":      user.Tokens,
			"createdAt":   user.CreatedAt,
		},
	})
}
