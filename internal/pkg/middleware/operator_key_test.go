package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOperatorApp() *fiber.App {
	app := fiber.New()
	app.Get("/admin", OperatorAuthMiddleware(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})
	return app
}

func TestOperatorAuthMiddleware(t *testing.T) {
	t.Setenv("OPERATOR_API_KEY", "op_test_key_123")
	app := newOperatorApp()

	tests := []struct {
		name     string
		header   string
		value    string
		expected int
	}{
		{"valid header key", "X-Operator-Key", "op_test_key_123", fiber.StatusOK},
		{"valid bearer token", "Authorization", "Bearer op_test_key_123", fiber.StatusOK},
		{"wrong key", "X-Operator-Key", "nope", fiber.StatusUnauthorized},
		{"missing key", "", "", fiber.StatusUnauthorized},
		{"basic auth scheme ignored", "Authorization", "Basic op_test_key_123", fiber.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/admin", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, resp.StatusCode)
		})
	}
}

func TestOperatorAuthMiddleware_Unconfigured(t *testing.T) {
	t.Setenv("OPERATOR_API_KEY", "")
	app := newOperatorApp()

	req := httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("X-Operator-Key", "anything")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}
