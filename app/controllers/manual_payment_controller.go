package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/tapcardhq/tapcard/app/models"
	metrics "github.com/tapcardhq/tapcard/internal/pkg/metrics/counter"
	"github.com/tapcardhq/tapcard/internal/pkg/payments"
	"github.com/tapcardhq/tapcard/internal/pkg/subscription"
)

type manualPaymentRequest struct {
	UserID       uint   `json:"user_id" validate:"required"`
	Plan         string `json:"plan" validate:"required_unless=Type card_order,omitempty,oneof=basic premium business"`
	BillingCycle string `json:"billing_cycle" validate:"required_unless=Type card_order,omitempty,oneof=monthly yearly"`
	Currency     string `json:"currency" validate:"required,oneof=NGN USD"`
	Amount       int64  `json:"amount" validate:"omitempty,gt=0"` // minor units; defaults to the catalog price
	Type         string `json:"type" validate:"omitempty,oneof=subscription card_order"`
}

// HandleManualPaymentInitialize records an operator-entered payment. Unlike
// the gateway flows there is no webhook round-trip: the ledger write and tier
// activation happen synchronously before the response.
func HandleManualPaymentInitialize(c *fiber.Ctx) error {
	var req manualPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "Malformed JSON body"})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": err.Error()})
	}
	if req.Type == "" {
		req.Type = models.TransactionTypeSubscription
	}
	if req.Type == models.TransactionTypeCardOrder && req.Amount <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "Card orders need an explicit amount"})
	}

	mgr := paymentManager()

	amount := req.Amount
	durationInDays := 0
	if req.Type == models.TransactionTypeSubscription {
		price, err := mgr.Catalog().Price(req.Plan, req.BillingCycle, req.Currency)
		if err != nil {
			return paymentErrorResponse(c, err)
		}
		durationInDays = price.DurationInDays
		if amount == 0 {
			amount = price.Amount
		}
	}

	ev := payments.NewManualEvent(req.UserID, subscription.NormalizePlan(req.Plan), subscription.NormalizeCycle(req.BillingCycle), amount, req.Currency, durationInDays, req.Type)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := mgr.ConfirmPayment(ctx, ev); err != nil {
		return paymentErrorResponse(c, err)
	}
	_ = metrics.AddPaymentConfirmed(models.ProviderManual)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "success",
		"data": fiber.Map{
			"transaction_id": ev.TransactionID,
			"plan":           ev.Plan,
			"billing_cycle":  ev.BillingCycle,
			"amount":         ev.Amount,
			"currency":       ev.Currency,
			"type":           ev.TransactionType,
		},
	})
}
