package controllers

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/tapcardhq/tapcard/internal/pkg/database"
	"github.com/tapcardhq/tapcard/internal/pkg/entitlements"
	"github.com/tapcardhq/tapcard/internal/pkg/subscription"
)

type cancelSubscriptionRequest struct {
	UserID         uint   `json:"user_id" validate:"required"`
	SubscriptionID string `json:"subscription_id"` // optional explicit provider id
}

type changeSubscriptionRequest struct {
	UserID       uint   `json:"user_id" validate:"required"`
	Plan         string `json:"plan" validate:"required,oneof=basic premium business"`
	BillingCycle string `json:"billing_cycle" validate:"required,oneof=monthly yearly"`
	Currency     string `json:"currency" validate:"omitempty,oneof=NGN USD"`
	Provider     string `json:"provider" validate:"required,oneof=paystack flutterwave"`
}

// HandleSubscriptionCancel disables the remote subscription and drops the
// user back to the basic tier.
func HandleSubscriptionCancel(c *fiber.Ctx) error {
	var req cancelSubscriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "Malformed JSON body"})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": err.Error()})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	result, err := paymentManager().CancelSubscription(ctx, req.UserID, req.SubscriptionID)
	if err != nil {
		return paymentErrorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "success",
		"data":   result,
	})
}

// HandleSubscriptionChange switches a user to a different plan. The current
// subscription is cancelled and a fresh checkout for the new plan is returned;
// the new tier only activates once that payment confirms.
func HandleSubscriptionChange(c *fiber.Ctx) error {
	var req changeSubscriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "Malformed JSON body"})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": err.Error()})
	}

	currency := subscription.ResolveCurrency(req.Currency, clientCountry(c))

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	result, err := paymentManager().ChangeSubscription(ctx, req.UserID, req.Plan, req.BillingCycle, currency, req.Provider)
	if err != nil {
		return paymentErrorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "success",
		"data":   result,
	})
}

// HandleSubscriptionMe returns the user's current tier state and the features
// it unlocks.
func HandleSubscriptionMe(c *fiber.Ctx) error {
	userID, err := strconv.ParseUint(c.Query("user_id"), 10, 32)
	if err != nil || userID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "user_id query parameter required"})
	}

	repo := subscription.NewRepository(database.GetDB())
	user, err := repo.GetUser(uint(userID))
	if err != nil {
		return paymentErrorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "success",
		"data": fiber.Map{
			"user_id":                 user.ID,
			"plan":                    user.Plan,
			"subscription_status":     user.SubscriptionStatus,
			"subscription_expires_at": user.SubscriptionExpiresAt,
			"subscription_provider":   user.SubscriptionProvider,
			"active_subscription_id":  user.ActiveSubscriptionID,
			"features":                entitlements.EffectiveFeatures(user),
		},
	})
}
