package payments

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tapcardhq/tapcard/app/models"
)

func TestNewManualEvent(t *testing.T) {
	ev := NewManualEvent(42, "business", "yearly", 15000000, "NGN", 365, "")

	assert.Equal(t, models.ProviderManual, ev.Provider)
	assert.Equal(t, "manual.entry", ev.EventType)
	assert.True(t, strings.HasPrefix(ev.TransactionID, "MANUAL_"))
	assert.Len(t, ev.TransactionID, len("MANUAL_")+12)
	assert.Equal(t, uint(42), ev.UserID)
	assert.Equal(t, models.TransactionTypeSubscription, ev.TransactionType)
	assert.Equal(t, int64(15000000), ev.Amount)
	assert.Equal(t, 365, ev.DurationInDays)
	assert.False(t, ev.PaidAt.IsZero())

	other := NewManualEvent(42, "business", "yearly", 15000000, "NGN", 365, "")
	assert.NotEqual(t, ev.TransactionID, other.TransactionID)

	order := NewManualEvent(7, "", "", 2500, "USD", 0, models.TransactionTypeCardOrder)
	assert.Equal(t, models.TransactionTypeCardOrder, order.TransactionType)
}

func TestManualProviderRejectsGatewayOperations(t *testing.T) {
	m := NewManual()

	_, err := m.InitializeCheckout(context.Background(), CheckoutRequest{})
	require.Error(t, err)
	assert.False(t, IsRetryable(err))

	assert.False(t, m.VerifyWebhook([]byte(`{}`), map[string]string{}))

	_, err = m.ParseWebhook([]byte(`{}`))
	assert.ErrorIs(t, err, ErrUnsupportedEvent)

	// Disabling is a no-op; manual subscriptions only exist locally.
	assert.NoError(t, m.Disable(context.Background(), "anything"))
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(NewManual())

	p, ok := r.Get(models.ProviderManual)
	require.True(t, ok)
	assert.Equal(t, models.ProviderManual, p.Name())

	_, ok = r.Get("stripe")
	assert.False(t, ok)
}
