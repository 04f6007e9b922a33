package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestParsePagination(t *testing.T) {
	cases := []struct {
		query      string
		wantPage   int
		wantLimit  int
		wantOffset int
	}{
		{"", 1, 20, 0},
		{"?page=3&limit=10", 3, 10, 20},
		{"?page=0&limit=-5", 1, 20, 0},
		{"?limit=500", 1, 100, 0},
		{"?page=abc", 1, 20, 0},
	}

	for _, tc := range cases {
		app := fiber.New()
		var got Pagination
		app.Get("/", func(c *fiber.Ctx) error {
			got = ParsePagination(c, 20)
			return c.SendStatus(fiber.StatusOK)
		})

		resp, err := app.Test(httptest.NewRequest("GET", "/"+tc.query, nil))
		if err != nil {
			t.Fatalf("request %q: %v", tc.query, err)
		}
		resp.Body.Close()

		if got.Page != tc.wantPage || got.Limit != tc.wantLimit || got.Offset != tc.wantOffset {
			t.Fatalf("query %q: got %+v", tc.query, got)
		}
	}
}
