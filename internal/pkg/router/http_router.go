package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tapcardhq/tapcard/app/controllers"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"service": "tapcard-payments",
			"status":  "ok",
		})
	})

	// Public pricing page data; same handler as the API alias.
	app.Get("/tiers", controllers.HandleListTiers)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
