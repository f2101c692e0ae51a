package controllers

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/tapcardhq/tapcard/app/models"
	"github.com/tapcardhq/tapcard/internal/pkg/database"
	metrics "github.com/tapcardhq/tapcard/internal/pkg/metrics/counter"
	"github.com/tapcardhq/tapcard/internal/pkg/payments"
	"github.com/tapcardhq/tapcard/internal/pkg/subscription"
)

var validate = validator.New()

type initializePaymentRequest struct {
	UserID       uint   `json:"user_id" validate:"required"`
	Plan         string `json:"plan" validate:"required,oneof=basic premium business"`
	BillingCycle string `json:"billing_cycle" validate:"required,oneof=monthly yearly"`
	Currency     string `json:"currency" validate:"omitempty,oneof=NGN USD"`
}

// HandlePaystackInitialize starts a Paystack checkout for a plan.
func HandlePaystackInitialize(c *fiber.Ctx) error {
	return handlePaymentInitialize(c, models.ProviderPaystack)
}

// HandleFlutterwaveInitialize starts a Flutterwave checkout for a plan.
func HandleFlutterwaveInitialize(c *fiber.Ctx) error {
	return handlePaymentInitialize(c, models.ProviderFlutterwave)
}

func handlePaymentInitialize(c *fiber.Ctx, providerName string) error {
	var req initializePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "Malformed JSON body"})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": err.Error()})
	}

	currency := subscription.ResolveCurrency(req.Currency, clientCountry(c))

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	result, err := paymentManager().InitializePayment(ctx, req.UserID, req.Plan, req.BillingCycle, currency, providerName)
	if err != nil {
		return paymentErrorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "success",
		"data":   result,
	})
}

// HandlePaystackWebhook ingests Paystack charge notifications.
func HandlePaystackWebhook(c *fiber.Ctx) error {
	return handleProviderWebhook(c, models.ProviderPaystack)
}

// HandleFlutterwaveWebhook ingests Flutterwave charge notifications.
func HandleFlutterwaveWebhook(c *fiber.Ctx) error {
	return handleProviderWebhook(c, models.ProviderFlutterwave)
}

func handleProviderWebhook(c *fiber.Ctx, providerName string) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	_ = metrics.AddWebhookReceived(providerName)

	provider, ok := payments.DefaultRegistry().Get(providerName)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown_provider"})
	}

	// Signature check before anything touches state.
	if !provider.VerifyWebhook(rawBody, webhookHeaders(c)) {
		_ = metrics.AddWebhookRejected(providerName)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	}

	ev, err := provider.ParseWebhook(rawBody)
	if err != nil {
		if errors.Is(err, payments.ErrUnsupportedEvent) {
			// Authentic but not a payment confirmation; acknowledge so the
			// provider stops redelivering.
			return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true, "ignored": true})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}

	repo := subscription.NewRepository(database.GetDB())
	created, stored, err := repo.CreateWebhookEventIfNotExists(&models.WebhookEvent{
		Provider:       providerName,
		EventID:        ev.EventID,
		EventType:      ev.EventType,
		PayloadJSON:    string(rawBody),
		SignatureValid: true,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}
	if !created {
		if stored.Processed() {
			return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true, "duplicate": true})
		}
		// The earlier delivery never completed. ConfirmPayment is idempotent on
		// the transaction id, so the redelivery runs it again.
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	confirmErr := paymentManager().ConfirmPayment(ctx, *ev)
	if confirmErr != nil {
		if markErr := repo.MarkWebhookProcessed(stored.ID, confirmErr.Error()); markErr != nil {
			log.Printf("failed to mark webhook event %d: %v", stored.ID, markErr)
		}
		if errors.Is(confirmErr, payments.ErrUserNotFound) {
			// Redelivery cannot resolve an unknown user; the stored payload is
			// the operator's follow-up trail.
			return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true, "ignored": true})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_processing_failed"})
	}

	if err := repo.MarkWebhookProcessed(stored.ID, ""); err != nil {
		log.Printf("failed to mark webhook event %d: %v", stored.ID, err)
	}
	_ = metrics.AddPaymentConfirmed(providerName)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true})
}

// HandleListTransactions returns the payment ledger, optionally filtered by
// provider. Operator endpoint.
func HandleListTransactions(c *fiber.Ctx) error {
	providerFilter := c.Query("provider")
	if providerFilter != "" && !models.IsValidProvider(providerFilter) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "Unknown provider"})
	}

	ledger := subscription.NewLedger(subscription.NewRepository(database.GetDB()))
	txns, err := ledger.List(providerFilter)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "transaction_list_failed"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "success",
		"data":   txns,
		"count":  len(txns),
	})
}

// HandleRevenueAnalytics returns revenue grouped by provider, month and plan.
// Operator endpoint.
func HandleRevenueAnalytics(c *fiber.Ctx) error {
	ledger := subscription.NewLedger(subscription.NewRepository(database.GetDB()))
	summary, err := ledger.Aggregate()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "analytics_failed"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "success",
		"data":   summary,
	})
}

// HandlePaymentCounters exposes the redis webhook/payment counters. Operator
// endpoint.
func HandlePaymentCounters(c *fiber.Ctx) error {
	snapshot, err := metrics.Snapshot()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "counters_failed"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "success",
		"data":   snapshot,
	})
}

// paymentErrorResponse maps domain errors onto HTTP codes.
func paymentErrorResponse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, payments.ErrInvalidPlan):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_plan", "message": err.Error()})
	case errors.Is(err, payments.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user_not_found"})
	case errors.Is(err, payments.ErrNoActiveSubscription):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "no_active_subscription"})
	case payments.IsProviderError(err):
		log.Printf("provider call failed: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "provider_unavailable"})
	default:
		log.Printf("payment operation failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}
}
