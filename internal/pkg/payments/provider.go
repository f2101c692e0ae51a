package payments

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tapcardhq/tapcard/app/models"
)

type CheckoutMode string

const (
	ModePayment      CheckoutMode = "payment"      // hosted checkout, user completes payment in browser
	ModeSubscription CheckoutMode = "subscription" // recurring subscription created server-side from a stored token
)

// CheckoutRequest carries everything an adapter needs to start a payment.
// Metadata fields (user id, plan, cycle, duration, type) must round-trip on
// the provider webhook so confirmation can be resolved without extra lookups.
type CheckoutRequest struct {
	User            *models.User
	Plan            string
	BillingCycle    string
	Amount          int64 // minor units
	Currency        string
	DurationInDays  int
	Reference       string
	PlanCode        string // provider payment-plan handle, empty for one-off
	TransactionType string
	Authorization   *models.PaymentAuthorization // stored token, nil when none
}

type CheckoutResult struct {
	Mode             CheckoutMode
	CheckoutURL      string // set for ModePayment
	SubscriptionCode string // set for ModeSubscription
	Reference        string
}

// AuthorizationData is a reusable payment token reported on a successful charge.
type AuthorizationData struct {
	Code         string
	CustomerCode string
	Email        string
	CardType     string
	Last4        string
}

// Event is the provider-agnostic shape of a confirmed payment, produced by
// webhook parsing or built synchronously for manual entries.
type Event struct {
	Provider         string
	EventID          string // provider delivery/event id, for webhook dedup
	EventType        string
	TransactionID    string
	UserID           uint
	Plan             string
	BillingCycle     string
	DurationInDays   int
	SubscriptionCode string
	TransactionType  string
	Amount           int64
	Currency         string
	PaidAt           time.Time
	Authorization    *AuthorizationData
}

// Provider is the adapter boundary to one external payment provider.
// Implementations never retry internally and never mutate local state.
type Provider interface {
	Name() string
	InitializeCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error)
	// VerifyWebhook checks payload authenticity. Header keys are lower-case.
	VerifyWebhook(rawBody []byte, headers map[string]string) bool
	ParseWebhook(rawBody []byte) (*Event, error)
	Disable(ctx context.Context, subscriptionCode string) error
}

// Registry resolves adapters by provider name.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

func (r *Registry) Get(name string) (Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the process-wide registry built from env config.
// Built once so circuit-breaker state persists across requests.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry(
			NewPaystack(NewPaystackConfigFromEnv()),
			NewFlutterwave(NewFlutterwaveConfigFromEnv()),
			NewManual(),
		)
	})
	return defaultRegistry
}
