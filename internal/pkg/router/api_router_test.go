package router

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestRegisterV1Routes_Paths(t *testing.T) {
	app := fiber.New()
	v1 := app.Group("/api").Group("/v1")

	passthrough := func(c *fiber.Ctx) error { return c.Next() }
	registerV1Routes(v1, passthrough, passthrough)

	registered := make(map[string]bool)
	for _, route := range app.GetRoutes() {
		registered[route.Method+" "+route.Path] = true
	}

	for _, want := range []string{
		"POST /api/v1/payments/paystack/initialize-payment",
		"POST /api/v1/payments/flutterwave/initialize-payment",
		"POST /api/v1/payments/paystack/webhook",
		"POST /api/v1/payments/flutterwave/webhook",
		"GET /api/v1/payments/transactions",
		"GET /api/v1/payments/analytics",
		"GET /api/v1/payments/counters",
		"POST /api/v1/manual-payment/initialize-payment",
		"POST /api/v1/subscriptions/cancel",
		"POST /api/v1/subscriptions/change",
		"GET /api/v1/subscriptions/me",
		"GET /api/v1/subscriptions/tiers",
	} {
		assert.True(t, registered[want], "missing route %s", want)
	}
}
