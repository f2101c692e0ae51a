package payments

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tapcardhq/tapcard/app/models"
)

// Manual is the operator-entered ledger provider. There is no remote API and
// no webhook; confirmed payments are built synchronously from operator input.
type Manual struct{}

func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) Name() string {
	return models.ProviderManual
}

func (m *Manual) InitializeCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	return nil, &ProviderError{
		Provider: m.Name(), Op: "initialize checkout",
		Err: errors.New("manual payments are confirmed directly, not initialized"),
	}
}

func (m *Manual) VerifyWebhook(rawBody []byte, headers map[string]string) bool {
	return false
}

func (m *Manual) ParseWebhook(rawBody []byte) (*Event, error) {
	return nil, ErrUnsupportedEvent
}

// Disable succeeds trivially: manual entitlements have no remote subscription.
func (m *Manual) Disable(ctx context.Context, subscriptionCode string) error {
	return nil
}

// NewManualEvent builds a confirmed-payment event for an operator-entered
// payment with a locally generated transaction id.
func NewManualEvent(userID uint, plan, billingCycle string, amount int64, currency string, durationInDays int, transactionType string) Event {
	if transactionType == "" {
		transactionType = models.TransactionTypeSubscription
	}
	return Event{
		Provider:        models.ProviderManual,
		EventType:       "manual.entry",
		TransactionID:   "MANUAL_" + strings.ToUpper(uuid.NewString()[:12]),
		UserID:          userID,
		Plan:            plan,
		BillingCycle:    billingCycle,
		DurationInDays:  durationInDays,
		TransactionType: transactionType,
		Amount:          amount,
		Currency:        currency,
		PaidAt:          time.Now().UTC(),
	}
}
