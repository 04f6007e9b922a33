package middleware

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/example/docstore/internal/services"
)

func newGuardAppForTest(allowed []string) *fiber.App {
	app := fiber.New(fiber.Config{ProxyHeader: fiber.HeaderXForwardedFor})
	app.Post("/callback", MpesaCallbackGuard(allowed), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestMpesaCallbackGuard(t *testing.T) {
	allowed := []string{"196.201.214.200"}

	cases := []struct {
		name    string
		allowed []string
		ip      string
		want    int
	}{
		{"no allow list", nil, "10.0.0.1", fiber.StatusOK},
		{"allowed ip", allowed, "196.201.214.200", fiber.StatusOK},
		{"unknown ip", allowed, "10.0.0.1", fiber.StatusForbidden},
	}

	for _, tc := range cases {
		app := newGuardAppForTest(tc.allowed)
		req := httptest.NewRequest("POST", "/callback", nil)
		req.Header.Set(fiber.HeaderXForwardedFor, tc.ip)

		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("%s: request: %v", tc.name, err)
		}
		if resp.StatusCode != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, resp.StatusCode)
		}
		if tc.want == fiber.StatusForbidden {
			var ack services.CallbackAck
			if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
				t.Fatalf("%s: decode ack: %v", tc.name, err)
			}
			if ack.ResultCode != 1 {
				t.Fatalf("%s: unexpected ack %+v", tc.name, ack)
			}
		}
		resp.Body.Close()
	}
}
