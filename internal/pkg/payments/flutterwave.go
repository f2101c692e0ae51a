package payments

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tapcardhq/tapcard/app/models"
	"github.com/tapcardhq/tapcard/internal/pkg/env"
)

const (
	defaultFlutterwaveBaseURL  = "https://api.flutterwave.com/v3"
	flutterwaveSignatureHeader = "verif-hash"
	flutterwaveChargeCompleted = "charge.completed"
)

type FlutterwaveConfig struct {
	SecretKey     string
	WebhookSecret string
	BaseURL       string
	RedirectURL   string
}

func NewFlutterwaveConfigFromEnv() FlutterwaveConfig {
	return FlutterwaveConfig{
		SecretKey:     strings.TrimSpace(env.GetEnv("FLUTTERWAVE_SECRET_KEY", "")),
		WebhookSecret: strings.TrimSpace(env.GetEnv("FLUTTERWAVE_WEBHOOK_SECRET", "")),
		BaseURL:       strings.TrimRight(env.GetEnv("FLUTTERWAVE_BASE_URL", defaultFlutterwaveBaseURL), "/"),
		RedirectURL:   strings.TrimSpace(env.GetEnv("FLUTTERWAVE_REDIRECT_URL", "")),
	}
}

// Flutterwave integrates the payment-plan card gateway. Payments made against
// a payment plan enroll the card in a recurring subscription server-side.
type Flutterwave struct {
	cfg FlutterwaveConfig
	api *apiClient
}

func NewFlutterwave(cfg FlutterwaveConfig) *Flutterwave {
	return &Flutterwave{
		cfg: cfg,
		api: newAPIClient(models.ProviderFlutterwave, cfg.BaseURL, cfg.SecretKey, defaultCallTimeout),
	}
}

func (f *Flutterwave) Name() string {
	return models.ProviderFlutterwave
}

type flutterwaveMeta struct {
	UserID          uint   `json:"user_id"`
	Plan            string `json:"plan"`
	BillingCycle    string `json:"billing_cycle"`
	DurationInDays  int    `json:"duration_in_days"`
	TransactionType string `json:"transaction_type"`
	// PaymentPlan echoes the payment plan id back through the webhook. Only a
	// plan-attached charge creates a recurring subscription server-side.
	PaymentPlan string `json:"payment_plan,omitempty"`
}

func (f *Flutterwave) InitializeCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	meta := flutterwaveMeta{
		UserID:          req.User.ID,
		Plan:            req.Plan,
		BillingCycle:    req.BillingCycle,
		DurationInDays:  req.DurationInDays,
		TransactionType: req.TransactionType,
		PaymentPlan:     req.PlanCode,
	}

	// With a stored card token the plan charge happens server-side and the
	// card is enrolled in the payment plan without hosted checkout.
	if req.Authorization != nil && req.PlanCode != "" {
		body, err := f.api.call(ctx, "tokenized charge", http.MethodPost, "/tokenized-charges", map[string]any{
			"token":        req.Authorization.AuthorizationCode,
			"email":        req.Authorization.Email,
			"amount":       minorToMajor(req.Amount),
			"currency":     req.Currency,
			"tx_ref":       req.Reference,
			"payment_plan": req.PlanCode,
			"meta":         meta,
		})
		if err != nil {
			return nil, err
		}
		var out struct {
			Data struct {
				ID     int64  `json:"id"`
				Status string `json:"status"`
			} `json:"data"`
		}
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, &ProviderError{Provider: f.Name(), Op: "tokenized charge", Err: err}
		}
		if out.Data.ID == 0 {
			return nil, &ProviderError{Provider: f.Name(), Op: "tokenized charge", Err: errors.New("response missing charge id")}
		}
		return &CheckoutResult{
			Mode:             ModeSubscription,
			SubscriptionCode: strconv.FormatInt(out.Data.ID, 10),
			Reference:        req.Reference,
		}, nil
	}

	payload := map[string]any{
		"tx_ref":   req.Reference,
		"amount":   minorToMajor(req.Amount),
		"currency": req.Currency,
		"customer": map[string]any{
			"email": req.User.Email,
			"name":  req.User.Name,
		},
		"meta": meta,
	}
	if f.cfg.RedirectURL != "" {
		payload["redirect_url"] = f.cfg.RedirectURL
	}
	if req.PlanCode != "" {
		payload["payment_plan"] = req.PlanCode
	}

	body, err := f.api.call(ctx, "initialize payment", http.MethodPost, "/payments", payload)
	if err != nil {
		return nil, err
	}
	var out struct {
		Data struct {
			Link string `json:"link"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &ProviderError{Provider: f.Name(), Op: "initialize payment", Err: err}
	}
	if out.Data.Link == "" {
		return nil, &ProviderError{Provider: f.Name(), Op: "initialize payment", Err: errors.New("response missing checkout link")}
	}
	return &CheckoutResult{
		Mode:        ModePayment,
		CheckoutURL: out.Data.Link,
		Reference:   req.Reference,
	}, nil
}

// VerifyWebhook checks an HMAC-SHA256 over the raw body against the verif-hash
// header. A bare presence check of the header is not sufficient; anyone can
// send the header.
func (f *Flutterwave) VerifyWebhook(rawBody []byte, headers map[string]string) bool {
	return verifyHMACHex(rawBody, headers[flutterwaveSignatureHeader], f.cfg.WebhookSecret, sha256.New)
}

type flutterwaveWebhookPayload struct {
	Event string `json:"event"`
	Data  struct {
		ID        int64           `json:"id"`
		TxRef     string          `json:"tx_ref"`
		FlwRef    string          `json:"flw_ref"`
		Amount    float64         `json:"amount"`
		Currency  string          `json:"currency"`
		Status    string          `json:"status"`
		CreatedAt string          `json:"created_at"`
		Meta      flutterwaveMeta `json:"meta"`
		Customer  struct {
			Email string `json:"email"`
		} `json:"customer"`
		Card struct {
			Token string `json:"token"`
			Type  string `json:"type"`
			Last4 string `json:"last_4digits"`
		} `json:"card"`
	} `json:"data"`
}

func (f *Flutterwave) ParseWebhook(rawBody []byte) (*Event, error) {
	var raw flutterwaveWebhookPayload
	if err := json.Unmarshal(rawBody, &raw); err != nil {
		return nil, fmt.Errorf("malformed flutterwave payload: %w", err)
	}
	if raw.Event != flutterwaveChargeCompleted {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEvent, raw.Event)
	}
	if !strings.EqualFold(raw.Data.Status, "successful") {
		return nil, fmt.Errorf("%w: charge status %s", ErrUnsupportedEvent, raw.Data.Status)
	}
	if raw.Data.Meta.UserID == 0 {
		return nil, errors.New("flutterwave payload missing user_id meta")
	}

	txID := raw.Data.FlwRef
	if txID == "" {
		txID = raw.Data.TxRef
	}
	if txID == "" {
		return nil, errors.New("flutterwave payload missing transaction reference")
	}

	paidAt := time.Now().UTC()
	if t, err := time.Parse("2006-01-02T15:04:05.000Z", raw.Data.CreatedAt); err == nil {
		paidAt = t
	} else if t, err := time.Parse(time.RFC3339, raw.Data.CreatedAt); err == nil {
		paidAt = t
	}

	txType := raw.Data.Meta.TransactionType
	if txType == "" {
		txType = models.TransactionTypeSubscription
	}

	// The charge id doubles as the subscription id, but only when the charge
	// was made against a payment plan. A one-off charge has no subscription to
	// reference or cancel later.
	subscriptionCode := ""
	if raw.Data.Meta.PaymentPlan != "" {
		subscriptionCode = strconv.FormatInt(raw.Data.ID, 10)
	}

	ev := &Event{
		Provider:         models.ProviderFlutterwave,
		EventID:          fmt.Sprintf("%s:%d", raw.Event, raw.Data.ID),
		EventType:        raw.Event,
		TransactionID:    txID,
		UserID:           raw.Data.Meta.UserID,
		Plan:             raw.Data.Meta.Plan,
		BillingCycle:     raw.Data.Meta.BillingCycle,
		DurationInDays:   raw.Data.Meta.DurationInDays,
		SubscriptionCode: subscriptionCode,
		TransactionType:  txType,
		Amount:           majorToMinor(raw.Data.Amount),
		Currency:         raw.Data.Currency,
		PaidAt:           paidAt,
	}
	if raw.Data.Card.Token != "" {
		ev.Authorization = &AuthorizationData{
			Code:     raw.Data.Card.Token,
			Email:    raw.Data.Customer.Email,
			CardType: strings.TrimSpace(raw.Data.Card.Type),
			Last4:    raw.Data.Card.Last4,
		}
	}
	return ev, nil
}

func (f *Flutterwave) Disable(ctx context.Context, subscriptionCode string) error {
	if strings.TrimSpace(subscriptionCode) == "" {
		return &ProviderError{Provider: f.Name(), Op: "cancel subscription", Err: errors.New("subscription id is required")}
	}
	_, err := f.api.call(ctx, "cancel subscription", http.MethodPut, "/subscriptions/"+subscriptionCode+"/cancel", nil)
	return err
}

// Flutterwave amounts are major units on the wire; the ledger stores minor units.
func minorToMajor(minor int64) float64 {
	return float64(minor) / 100
}

func majorToMinor(major float64) int64 {
	return int64(major*100 + 0.5)
}
