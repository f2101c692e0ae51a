package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/tapcardhq/tapcard/internal/pkg/database"
	"github.com/tapcardhq/tapcard/internal/pkg/jobqueue"
	"github.com/tapcardhq/tapcard/internal/pkg/subscription"
)

// paymentManager builds a subscription manager for the current request,
// mirroring how other handlers construct their service from the shared DB
// handle.
func paymentManager() *subscription.Manager {
	notifier := jobqueue.NewPaymentNotifier(jobqueue.GetManager().GetQueue())
	return subscription.NewManagerFromDB(database.GetDB(), notifier)
}

// webhookHeaders collects the request headers as a lower-cased map for
// provider signature verification.
func webhookHeaders(c *fiber.Ctx) map[string]string {
	headers := make(map[string]string)
	c.Request().Header.VisitAll(func(key, value []byte) {
		headers[strings.ToLower(string(key))] = string(value)
	})
	return headers
}

// clientCountry returns the ISO country code reported by the edge, empty if
// the request did not pass through it.
func clientCountry(c *fiber.Ctx) string {
	return strings.ToUpper(strings.TrimSpace(c.Get("CF-IPCountry")))
}
