package jobqueue

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		minor    int64
		currency string
		expected string
	}{
		{500000, "NGN", "NGN 5,000.00"},
		{999, "usd", "USD 9.99"},
		{100, "USD", "USD 1.00"},
		{1234567890, "NGN", "NGN 12,345,678.90"},
		{0, "USD", "USD 0.00"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatAmount(tt.minor, tt.currency))
	}
}

func TestBuildPaymentEmail_Subscription(t *testing.T) {
	subject, body := buildPaymentEmail(&PaymentEmailJobPayload{
		Name:         "Jane",
		Plan:         "premium",
		BillingCycle: "monthly",
		Amount:       500000,
		Currency:     "NGN",
		ReferenceID:  "REF_abc123",
		Type:         "subscription",
	})

	assert.Equal(t, "Your Premium subscription is active", subject)
	assert.True(t, strings.Contains(body, "NGN 5,000.00"))
	assert.True(t, strings.Contains(body, "REF_abc123"))
	assert.True(t, strings.Contains(body, "premium"))
}

func TestBuildPaymentEmail_CardOrder(t *testing.T) {
	subject, body := buildPaymentEmail(&PaymentEmailJobPayload{
		Name:        "Ade",
		Amount:      2500,
		Currency:    "USD",
		ReferenceID: "REF_order1",
		Type:        "card_order",
	})

	assert.Equal(t, "Your card order payment was received", subject)
	assert.True(t, strings.Contains(body, "USD 25.00"))
	assert.True(t, strings.Contains(body, "print queue"))
}
