package middleware

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/example/docstore/internal/services"
)

// MpesaCallbackGuard only lets notifications from allowedIPs through. An
// empty list disables the check. Rejected callers still get the gateway's
// acknowledgment shape.
func MpesaCallbackGuard(allowedIPs []string) fiber.Handler {
	allowed := make(map[string]struct{}, len(allowedIPs))
	for _, ip := range allowedIPs {
		allowed[ip] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		if len(allowed) == 0 {
			return c.Next()
		}
		if _, ok := allowed[c.IP()]; ok {
			return c.Next()
		}

		log.Printf("[Callback] rejected notification from %s", c.IP())
		return c.Status(fiber.StatusForbidden).JSON(services.CallbackAck{
			ResultCode: 1,
			ResultDesc: "Rejected",
		})
	}
}
