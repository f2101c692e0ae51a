package router

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	redisstorage "github.com/gofiber/storage/redis"

	"github.com/tapcardhq/tapcard/app/controllers"
	"github.com/tapcardhq/tapcard/internal/pkg/env"
	"github.com/tapcardhq/tapcard/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api")
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1")

	initLimiter := limiter.New(limiter.Config{
		Max:        20,
		Expiration: 1 * time.Minute,
		Storage:    newLimiterStorage(),
	})

	operatorAuth := middleware.OperatorAuthMiddleware()

	registerV1Routes(v1, initLimiter, operatorAuth)
}

func registerV1Routes(v1 fiber.Router, initLimiter, operatorAuth fiber.Handler) {
	payments := v1.Group("/payments")
	payments.Post("/paystack/initialize-payment", initLimiter, controllers.HandlePaystackInitialize)
	payments.Post("/flutterwave/initialize-payment", initLimiter, controllers.HandleFlutterwaveInitialize)
	payments.Post("/paystack/webhook", controllers.HandlePaystackWebhook)
	payments.Post("/flutterwave/webhook", controllers.HandleFlutterwaveWebhook)
	payments.Get("/transactions", operatorAuth, controllers.HandleListTransactions)
	payments.Get("/analytics", operatorAuth, controllers.HandleRevenueAnalytics)
	payments.Get("/counters", operatorAuth, controllers.HandlePaymentCounters)

	v1.Post("/manual-payment/initialize-payment", operatorAuth, controllers.HandleManualPaymentInitialize)

	subscriptions := v1.Group("/subscriptions")
	subscriptions.Post("/cancel", controllers.HandleSubscriptionCancel)
	subscriptions.Post("/change", initLimiter, controllers.HandleSubscriptionChange)
	subscriptions.Get("/me", controllers.HandleSubscriptionMe)
	subscriptions.Get("/tiers", controllers.HandleListTiers)
}

// newLimiterStorage backs the rate limiter with redis so limits hold across
// instances.
func newLimiterStorage() fiber.Storage {
	port, err := strconv.Atoi(env.GetEnv("CACHE_PORT", "6379"))
	if err != nil {
		port = 6379
	}
	database, err := strconv.Atoi(env.GetEnv("CACHE_LIMITER_DB", "1"))
	if err != nil {
		database = 1
	}

	return redisstorage.New(redisstorage.Config{
		Host:     env.GetEnv("CACHE_HOST", "127.0.0.1"),
		Port:     port,
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		Database: database,
	})
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
