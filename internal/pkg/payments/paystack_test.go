package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tapcardhq/tapcard/app/models"
)

func signSHA512(payload []byte, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

const paystackChargeSuccessBody = `{
	"event": "charge.success",
	"data": {
		"id": 4099260516,
		"reference": "REF_f9b2c33a",
		"amount": 500000,
		"currency": "NGN",
		"paid_at": "2026-03-01T14:10:00Z",
		"metadata": {
			"user_id": 42,
			"plan": "premium",
			"billing_cycle": "monthly",
			"duration_in_days": 30,
			"transaction_type": "subscription",
			"reference": "REF_f9b2c33a"
		},
		"customer": {
			"email": "jane@example.com",
			"customer_code": "CUS_xr58yrr2ujlft"
		},
		"authorization": {
			"authorization_code": "AUTH_8dfhjjdt",
			"card_type": "visa ",
			"last4": "1381",
			"reusable": true
		}
	}
}`

func TestPaystackVerifyWebhook(t *testing.T) {
	p := NewPaystack(PaystackConfig{SecretKey: "sk_test_secret"})
	body := []byte(paystackChargeSuccessBody)

	valid := map[string]string{"x-paystack-signature": signSHA512(body, "sk_test_secret")}
	assert.True(t, p.VerifyWebhook(body, valid))

	wrongSecret := map[string]string{"x-paystack-signature": signSHA512(body, "other_secret")}
	assert.False(t, p.VerifyWebhook(body, wrongSecret))

	assert.False(t, p.VerifyWebhook(body, map[string]string{}))
	assert.False(t, p.VerifyWebhook(body, map[string]string{"x-paystack-signature": "not-hex"}))

	tampered := append([]byte(nil), body...)
	tampered[len(tampered)-2] = ' '
	assert.False(t, p.VerifyWebhook(tampered, valid))
}

func TestPaystackVerifyWebhook_DedicatedWebhookSecret(t *testing.T) {
	p := NewPaystack(PaystackConfig{SecretKey: "sk_test_secret", WebhookSecret: "wh_secret"})
	body := []byte(paystackChargeSuccessBody)

	assert.True(t, p.VerifyWebhook(body, map[string]string{"x-paystack-signature": signSHA512(body, "wh_secret")}))
	assert.False(t, p.VerifyWebhook(body, map[string]string{"x-paystack-signature": signSHA512(body, "sk_test_secret")}))
}

func TestPaystackParseWebhook_ChargeSuccess(t *testing.T) {
	p := NewPaystack(PaystackConfig{SecretKey: "sk_test_secret"})

	ev, err := p.ParseWebhook([]byte(paystackChargeSuccessBody))
	require.NoError(t, err)

	assert.Equal(t, models.ProviderPaystack, ev.Provider)
	assert.Equal(t, "charge.success:4099260516", ev.EventID)
	assert.Equal(t, "REF_f9b2c33a", ev.TransactionID)
	assert.Equal(t, uint(42), ev.UserID)
	assert.Equal(t, "premium", ev.Plan)
	assert.Equal(t, "monthly", ev.BillingCycle)
	assert.Equal(t, 30, ev.DurationInDays)
	assert.Equal(t, int64(500000), ev.Amount)
	assert.Equal(t, "NGN", ev.Currency)
	assert.Equal(t, models.TransactionTypeSubscription, ev.TransactionType)
	assert.Equal(t, "2026-03-01T14:10:00Z", ev.PaidAt.Format("2006-01-02T15:04:05Z"))

	require.NotNil(t, ev.Authorization)
	assert.Equal(t, "AUTH_8dfhjjdt", ev.Authorization.Code)
	assert.Equal(t, "CUS_xr58yrr2ujlft", ev.Authorization.CustomerCode)
	assert.Equal(t, "visa", ev.Authorization.CardType)
	assert.Equal(t, "1381", ev.Authorization.Last4)
}

func TestPaystackParseWebhook_UnsupportedEvent(t *testing.T) {
	p := NewPaystack(PaystackConfig{SecretKey: "sk_test_secret"})

	_, err := p.ParseWebhook([]byte(`{"event":"subscription.create","data":{}}`))
	assert.ErrorIs(t, err, ErrUnsupportedEvent)
}

func TestPaystackParseWebhook_MissingFields(t *testing.T) {
	p := NewPaystack(PaystackConfig{SecretKey: "sk_test_secret"})

	_, err := p.ParseWebhook([]byte(`not json`))
	assert.Error(t, err)

	_, err = p.ParseWebhook([]byte(`{"event":"charge.success","data":{"reference":"","metadata":{"user_id":42}}}`))
	assert.Error(t, err)

	_, err = p.ParseWebhook([]byte(`{"event":"charge.success","data":{"reference":"REF_1","metadata":{"user_id":0}}}`))
	assert.Error(t, err)
}

func TestPaystackParseWebhook_NonReusableAuthorizationDropped(t *testing.T) {
	p := NewPaystack(PaystackConfig{SecretKey: "sk_test_secret"})

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(paystackChargeSuccessBody), &payload))
	data := payload["data"].(map[string]any)
	data["authorization"].(map[string]any)["reusable"] = false
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	ev, err := p.ParseWebhook(body)
	require.NoError(t, err)
	assert.Nil(t, ev.Authorization)
}

func TestPaystackInitializeCheckout_HostedCheckout(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"status":true,"data":{"authorization_url":"https://checkout.paystack.com/abc123","reference":"REF_1"}}`))
	}))
	defer srv.Close()

	p := NewPaystack(PaystackConfig{SecretKey: "sk_test_secret", BaseURL: srv.URL, CallbackURL: "https://app.example.com/billing/return"})
	result, err := p.InitializeCheckout(context.Background(), CheckoutRequest{
		User:            &models.User{ID: 42, Email: "jane@example.com"},
		Plan:            "premium",
		BillingCycle:    "monthly",
		Amount:          500000,
		Currency:        "NGN",
		DurationInDays:  30,
		Reference:       "REF_1",
		TransactionType: models.TransactionTypeSubscription,
	})
	require.NoError(t, err)

	assert.Equal(t, "/transaction/initialize", gotPath)
	assert.Equal(t, "jane@example.com", gotBody["email"])
	assert.Equal(t, float64(500000), gotBody["amount"])
	assert.Equal(t, "https://app.example.com/billing/return", gotBody["callback_url"])
	assert.Equal(t, ModePayment, result.Mode)
	assert.Equal(t, "https://checkout.paystack.com/abc123", result.CheckoutURL)
	assert.Equal(t, "REF_1", result.Reference)
}

func TestPaystackInitializeCheckout_StoredAuthorization(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/subscription", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":true,"data":{"subscription_code":"SUB_vsyqdmlzble3uii"}}`))
	}))
	defer srv.Close()

	p := NewPaystack(PaystackConfig{SecretKey: "sk_test_secret", BaseURL: srv.URL})
	result, err := p.InitializeCheckout(context.Background(), CheckoutRequest{
		User:      &models.User{ID: 42, Email: "jane@example.com"},
		Plan:      "premium",
		Reference: "REF_2",
		PlanCode:  "PLN_gx2wn530m0i3w3m",
		Authorization: &models.PaymentAuthorization{
			AuthorizationCode: "AUTH_8dfhjjdt",
			CustomerCode:      "CUS_xr58yrr2ujlft",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, ModeSubscription, result.Mode)
	assert.Equal(t, "SUB_vsyqdmlzble3uii", result.SubscriptionCode)
	assert.Empty(t, result.CheckoutURL)
}

func TestPaystackDisable(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/subscription/disable", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"status":true}`))
	}))
	defer srv.Close()

	p := NewPaystack(PaystackConfig{SecretKey: "sk_test_secret", BaseURL: srv.URL})
	require.NoError(t, p.Disable(context.Background(), "SUB_vsyqdmlzble3uii"))
	assert.Equal(t, "SUB_vsyqdmlzble3uii", gotBody["code"])

	err := p.Disable(context.Background(), "  ")
	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.False(t, perr.Retryable)
}
