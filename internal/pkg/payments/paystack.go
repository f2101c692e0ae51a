package payments

import (
	"context"
	"crypto/sha512"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tapcardhq/tapcard/app/models"
	"github.com/tapcardhq/tapcard/internal/pkg/env"
)

const (
	defaultPaystackBaseURL  = "https://api.paystack.co"
	paystackSignatureHeader = "x-paystack-signature"
	paystackChargeSuccess   = "charge.success"
)

type PaystackConfig struct {
	SecretKey     string
	WebhookSecret string // defaults to SecretKey, which is what Paystack signs with
	BaseURL       string
	CallbackURL   string
}

func NewPaystackConfigFromEnv() PaystackConfig {
	secret := strings.TrimSpace(env.GetEnv("PAYSTACK_SECRET_KEY", ""))
	webhookSecret := strings.TrimSpace(env.GetEnv("PAYSTACK_WEBHOOK_SECRET", ""))
	if webhookSecret == "" {
		webhookSecret = secret
	}
	return PaystackConfig{
		SecretKey:     secret,
		WebhookSecret: webhookSecret,
		BaseURL:       strings.TrimRight(env.GetEnv("PAYSTACK_BASE_URL", defaultPaystackBaseURL), "/"),
		CallbackURL:   strings.TrimSpace(env.GetEnv("PAYSTACK_CALLBACK_URL", "")),
	}
}

// Paystack integrates the hosted-checkout card gateway. Checkout metadata
// carries user id, plan, cycle and duration so the charge.success webhook is
// self-describing.
type Paystack struct {
	cfg PaystackConfig
	api *apiClient
}

func NewPaystack(cfg PaystackConfig) *Paystack {
	if cfg.WebhookSecret == "" {
		cfg.WebhookSecret = cfg.SecretKey
	}
	return &Paystack{
		cfg: cfg,
		api: newAPIClient(models.ProviderPaystack, cfg.BaseURL, cfg.SecretKey, defaultCallTimeout),
	}
}

func (p *Paystack) Name() string {
	return models.ProviderPaystack
}

type paystackMetadata struct {
	UserID          uint   `json:"user_id"`
	Plan            string `json:"plan"`
	BillingCycle    string `json:"billing_cycle"`
	DurationInDays  int    `json:"duration_in_days"`
	TransactionType string `json:"transaction_type"`
	Reference       string `json:"reference"`
}

func (p *Paystack) InitializeCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	meta := paystackMetadata{
		UserID:          req.User.ID,
		Plan:            req.Plan,
		BillingCycle:    req.BillingCycle,
		DurationInDays:  req.DurationInDays,
		TransactionType: req.TransactionType,
		Reference:       req.Reference,
	}

	// A stored authorization plus a plan code means we can create the
	// recurring subscription directly without another hosted checkout.
	if req.Authorization != nil && req.PlanCode != "" {
		body, err := p.api.call(ctx, "create subscription", http.MethodPost, "/subscription", map[string]any{
			"customer":      req.Authorization.CustomerCode,
			"plan":          req.PlanCode,
			"authorization": req.Authorization.AuthorizationCode,
		})
		if err != nil {
			return nil, err
		}
		var out struct {
			Data struct {
				SubscriptionCode string `json:"subscription_code"`
			} `json:"data"`
		}
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, &ProviderError{Provider: p.Name(), Op: "create subscription", Err: err}
		}
		if out.Data.SubscriptionCode == "" {
			return nil, &ProviderError{Provider: p.Name(), Op: "create subscription", Err: errors.New("response missing subscription_code")}
		}
		return &CheckoutResult{
			Mode:             ModeSubscription,
			SubscriptionCode: out.Data.SubscriptionCode,
			Reference:        req.Reference,
		}, nil
	}

	payload := map[string]any{
		"email":     req.User.Email,
		"amount":    req.Amount, // minor units (kobo/cents)
		"currency":  req.Currency,
		"reference": req.Reference,
		"metadata":  meta,
	}
	if p.cfg.CallbackURL != "" {
		payload["callback_url"] = p.cfg.CallbackURL
	}
	if req.PlanCode != "" {
		payload["plan"] = req.PlanCode
	}

	body, err := p.api.call(ctx, "initialize transaction", http.MethodPost, "/transaction/initialize", payload)
	if err != nil {
		return nil, err
	}
	var out struct {
		Data struct {
			AuthorizationURL string `json:"authorization_url"`
			Reference        string `json:"reference"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &ProviderError{Provider: p.Name(), Op: "initialize transaction", Err: err}
	}
	if out.Data.AuthorizationURL == "" {
		return nil, &ProviderError{Provider: p.Name(), Op: "initialize transaction", Err: errors.New("response missing authorization_url")}
	}
	return &CheckoutResult{
		Mode:        ModePayment,
		CheckoutURL: out.Data.AuthorizationURL,
		Reference:   req.Reference,
	}, nil
}

// VerifyWebhook checks the HMAC-SHA512 signature Paystack computes over the
// raw request body with the account secret.
func (p *Paystack) VerifyWebhook(rawBody []byte, headers map[string]string) bool {
	return verifyHMACHex(rawBody, headers[paystackSignatureHeader], p.cfg.WebhookSecret, sha512.New)
}

type paystackWebhookPayload struct {
	Event string `json:"event"`
	Data  struct {
		ID               int64            `json:"id"`
		Reference        string           `json:"reference"`
		Amount           int64            `json:"amount"`
		Currency         string           `json:"currency"`
		PaidAt           string           `json:"paid_at"`
		SubscriptionCode string           `json:"subscription_code"`
		Metadata         paystackMetadata `json:"metadata"`
		Customer         struct {
			Email        string `json:"email"`
			CustomerCode string `json:"customer_code"`
		} `json:"customer"`
		Authorization struct {
			AuthorizationCode string `json:"authorization_code"`
			CardType          string `json:"card_type"`
			Last4             string `json:"last4"`
			Reusable          bool   `json:"reusable"`
		} `json:"authorization"`
	} `json:"data"`
}

func (p *Paystack) ParseWebhook(rawBody []byte) (*Event, error) {
	var raw paystackWebhookPayload
	if err := json.Unmarshal(rawBody, &raw); err != nil {
		return nil, fmt.Errorf("malformed paystack payload: %w", err)
	}
	if raw.Event != paystackChargeSuccess {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEvent, raw.Event)
	}
	if raw.Data.Reference == "" {
		return nil, errors.New("paystack payload missing reference")
	}
	if raw.Data.Metadata.UserID == 0 {
		return nil, errors.New("paystack payload missing user_id metadata")
	}

	paidAt := time.Now().UTC()
	if t, err := time.Parse(time.RFC3339, raw.Data.PaidAt); err == nil {
		paidAt = t
	}

	txType := raw.Data.Metadata.TransactionType
	if txType == "" {
		txType = models.TransactionTypeSubscription
	}

	ev := &Event{
		Provider:         models.ProviderPaystack,
		EventID:          fmt.Sprintf("%s:%d", raw.Event, raw.Data.ID),
		EventType:        raw.Event,
		TransactionID:    raw.Data.Reference,
		UserID:           raw.Data.Metadata.UserID,
		Plan:             raw.Data.Metadata.Plan,
		BillingCycle:     raw.Data.Metadata.BillingCycle,
		DurationInDays:   raw.Data.Metadata.DurationInDays,
		SubscriptionCode: raw.Data.SubscriptionCode,
		TransactionType:  txType,
		Amount:           raw.Data.Amount,
		Currency:         raw.Data.Currency,
		PaidAt:           paidAt,
	}
	if raw.Data.Authorization.Reusable && raw.Data.Authorization.AuthorizationCode != "" {
		ev.Authorization = &AuthorizationData{
			Code:         raw.Data.Authorization.AuthorizationCode,
			CustomerCode: raw.Data.Customer.CustomerCode,
			Email:        raw.Data.Customer.Email,
			CardType:     strings.TrimSpace(raw.Data.Authorization.CardType),
			Last4:        raw.Data.Authorization.Last4,
		}
	}
	return ev, nil
}

func (p *Paystack) Disable(ctx context.Context, subscriptionCode string) error {
	if strings.TrimSpace(subscriptionCode) == "" {
		return &ProviderError{Provider: p.Name(), Op: "disable subscription", Err: errors.New("subscription code is required")}
	}
	_, err := p.api.call(ctx, "disable subscription", http.MethodPost, "/subscription/disable", map[string]any{
		"code": subscriptionCode,
	})
	return err
}
