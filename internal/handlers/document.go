package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/example/docstore/internal/middleware"
	"github.com/example/docstore/internal/services"
	"github.com/example/docstore/internal/store"
)

const accessDeniedPage = `<!DOCTYPE html>
<html>
  <head>
    <title>Access Denied</title>
    <style>
      body {
        font-family: Arial, sans-serif;
        text-align: center;
        padding: 50px;
        background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
        color: white;
      }
      .container {
        background: white;
        color: #333;
        padding: 40px;
        border-radius: 10px;
        max-width: 500px;
        margin: 0 auto;
      }
    </style>
  </head>
  <body>
    <div class="container">
      <h1>🔒 Access Denied</h1>
      <p>This download link has expired or is invalid.</p>
      <p><a href="/">Return to homepage</a></p>
    </div>
  </body>
</html>`

// DocumentHandler serves the catalog and the paid download flow.
type DocumentHandler struct {
	entitlements *services.EntitlementService
}

func NewDocumentHandler(entitlements *services.EntitlementService) *DocumentHandler {
	return &DocumentHandler{entitlements: entitlements}
}

// List returns the document catalog.
func (h *DocumentHandler) List(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success":   true,
		"documents": h.entitlements.Documents(),
	})
}

type downloadRequest struct {
	DocumentID string `json:"documentId"`
}

// RequestDownload spends tokens on a document and returns a one-time link.
func (h *DocumentHandler) RequestDownload(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req downloadRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.DocumentID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "documentId is required")
	}

	grant, err := h.entitlements.Unlock(c.UserContext(), userID, req.DocumentID)
	if err != nil {
		var insufficient *services.InsufficientTokensError
		switch {
		case errors.As(err, &insufficient):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success":   false,
				"error":     "Insufficient tokens",
				"required":  insufficient.Required,
				"available": insufficient.Available,
			})
		case errors.Is(err, services.ErrDocumentNotFound):
			return fiber.NewError(fiber.StatusNotFound, "Document not found")
		case errors.Is(err, store.ErrAccountNotFound):
			return fiber.NewError(fiber.StatusNotFound, "User not found")
		}
		return err
	}

	return c.JSON(fiber.Map{
		"success":         true,
		"downloadUrl":     grant.DownloadURL,
		"expiresIn":       int(grant.ExpiresIn.Seconds()),
		"tokensRemaining": grant.TokensRemaining,
	})
}

// Redeem turns a download link into a redirect to the stored file. Any
// failure renders the static access denied page.
func (h *DocumentHandler) Redeem(c *fiber.Ctx) error {
	target, err := h.entitlements.Redeem(c.UserContext(), c.Params("token"))
	if err != nil {
		log.Printf("[Download] rejected link: %v", err)
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.Status(fiber.StatusForbidden).SendString(accessDeniedPage)
	}
	return c.Redirect(target, fiber.StatusFound)
}

// History returns the caller's latest download grants.
func (h *DocumentHandler) History(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	downloads, err := h.entitlements.History(c.UserContext(), userID, 50)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "downloads": downloads})
}
