package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/tapcardhq/tapcard/app/models"
	"github.com/tapcardhq/tapcard/internal/pkg/payments"
)

// fakeRepo is an in-memory Repository mirroring the uniqueness and
// not-found semantics of the GORM implementation.
type fakeRepo struct {
	users  map[uint]*models.User
	tiers  map[string]*models.Tier
	auths  map[string]*models.PaymentAuthorization
	txns   map[string]*models.Transaction
	events map[string]*models.WebhookEvent

	nextEventID uint

	// hideTransactions makes FindTransactionByTransactionID report nothing,
	// simulating the window where a concurrent delivery has not committed yet.
	hideTransactions bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:  make(map[uint]*models.User),
		tiers:  make(map[string]*models.Tier),
		auths:  make(map[string]*models.PaymentAuthorization),
		txns:   make(map[string]*models.Transaction),
		events: make(map[string]*models.WebhookEvent),
	}
}

func (r *fakeRepo) addPremiumTier() {
	r.tiers["premium"] = &models.Tier{
		ID:   2,
		Name: "premium",
		Monthly: models.TierPricing{
			PriceLocal:       500000,
			PriceForeign:     999,
			DurationInDays:   30,
			ProviderPlanCode: "PLN_premium_monthly",
		},
		Yearly: models.TierPricing{
			PriceLocal:     5000000,
			PriceForeign:   9999,
			DurationInDays: 365,
		},
	}
	r.tiers["business"] = &models.Tier{
		ID:   3,
		Name: "business",
		Monthly: models.TierPricing{
			PriceLocal:     1500000,
			PriceForeign:   2999,
			DurationInDays: 30,
		},
		Yearly: models.TierPricing{
			PriceLocal:     15000000,
			PriceForeign:   29999,
			DurationInDays: 365,
		},
	}
}

func (r *fakeRepo) GetUser(id uint) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, payments.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *fakeRepo) GetTierByName(name string) (*models.Tier, error) {
	t, ok := r.tiers[name]
	if !ok {
		return nil, payments.ErrInvalidPlan
	}
	return t, nil
}

func (r *fakeRepo) ListTiers() ([]models.Tier, error) {
	tiers := make([]models.Tier, 0, len(r.tiers))
	for _, t := range r.tiers {
		tiers = append(tiers, *t)
	}
	return tiers, nil
}

func authKey(userID uint, provider string) string {
	return fmt.Sprintf("%d:%s", userID, provider)
}

func (r *fakeRepo) GetAuthorization(userID uint, provider string) (*models.PaymentAuthorization, error) {
	return r.auths[authKey(userID, provider)], nil
}

func (r *fakeRepo) UpsertAuthorization(auth *models.PaymentAuthorization) error {
	r.auths[authKey(auth.UserID, auth.Provider)] = auth
	return nil
}

func (r *fakeRepo) CreateTransactionIfNotExists(txn *models.Transaction) (bool, error) {
	if _, exists := r.txns[txn.TransactionID]; exists {
		return false, nil
	}
	r.txns[txn.TransactionID] = txn
	return true, nil
}

func (r *fakeRepo) FindTransactionByTransactionID(transactionID string) (*models.Transaction, error) {
	if r.hideTransactions {
		return nil, nil
	}
	return r.txns[transactionID], nil
}

func (r *fakeRepo) ListTransactions(provider string) ([]models.Transaction, error) {
	var out []models.Transaction
	for _, txn := range r.txns {
		if provider == "" || txn.Provider == provider {
			out = append(out, *txn)
		}
	}
	return out, nil
}

func (r *fakeRepo) AggregateRevenue() (*RevenueSummary, error) {
	summary := &RevenueSummary{TotalsByCurrency: make(map[string]int64)}
	for _, txn := range r.txns {
		if txn.Status == models.TransactionStatusSuccess {
			summary.TotalsByCurrency[txn.Currency] += txn.Amount
		}
	}
	return summary, nil
}

func (r *fakeRepo) ActivateSubscription(txn *models.Transaction, subscriptionCode string) error {
	if _, exists := r.txns[txn.TransactionID]; exists {
		return payments.ErrDuplicateTransaction
	}
	user, ok := r.users[txn.UserID]
	if !ok {
		return payments.ErrUserNotFound
	}
	r.txns[txn.TransactionID] = txn

	user.Plan = txn.Plan
	user.SubscriptionStatus = models.SubscriptionActive
	user.TransactionID = &txn.TransactionID
	user.SubscriptionCode = nil
	user.SubscriptionExpiresAt = txn.ExpiresAt
	user.SubscriptionProvider = nil
	user.ActiveSubscriptionID = nil
	user.ActiveSubscriptionExpiry = nil
	if subscriptionCode != "" {
		code := subscriptionCode
		provider := txn.Provider
		user.SubscriptionCode = &code
		user.SubscriptionProvider = &provider
		user.ActiveSubscriptionID = &code
		user.ActiveSubscriptionExpiry = txn.ExpiresAt
	}
	return nil
}

func (r *fakeRepo) ClearSubscription(userID uint) error {
	user, ok := r.users[userID]
	if !ok {
		return payments.ErrUserNotFound
	}
	user.SubscriptionStatus = models.SubscriptionInactive
	user.TransactionID = nil
	user.SubscriptionCode = nil
	user.SubscriptionExpiresAt = nil
	user.SubscriptionProvider = nil
	user.ActiveSubscriptionID = nil
	user.ActiveSubscriptionExpiry = nil
	return nil
}

func (r *fakeRepo) SetChangePending(userID uint, newPlan string) error {
	if err := r.ClearSubscription(userID); err != nil {
		return err
	}
	r.users[userID].Plan = newPlan
	return nil
}

func (r *fakeRepo) ExpireLapsed(now time.Time) (int64, error) {
	var n int64
	for id, user := range r.users {
		if user.SubscriptionStatus == models.SubscriptionActive &&
			user.SubscriptionExpiresAt != nil && user.SubscriptionExpiresAt.Before(now) {
			if err := r.ClearSubscription(id); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

func eventKey(provider, eventID string) string {
	return provider + ":" + eventID
}

func (r *fakeRepo) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	key := eventKey(event.Provider, event.EventID)
	if existing, ok := r.events[key]; ok {
		return false, existing, nil
	}
	r.nextEventID++
	event.ID = r.nextEventID
	r.events[key] = event
	return true, event, nil
}

func (r *fakeRepo) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	for _, ev := range r.events {
		if ev.ID == id {
			ev.ProcessedAt = &now
			ev.ProcessingError = processingError
			return nil
		}
	}
	return nil
}

// fakeProvider records calls and returns scripted results.
type fakeProvider struct {
	name string

	initResult *payments.CheckoutResult
	initErr    error
	lastInit   *payments.CheckoutRequest

	disableErr error
	disabled   []string
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) InitializeCheckout(ctx context.Context, req payments.CheckoutRequest) (*payments.CheckoutResult, error) {
	reqCopy := req
	p.lastInit = &reqCopy
	if p.initErr != nil {
		return nil, p.initErr
	}
	if p.initResult != nil {
		return p.initResult, nil
	}
	return &payments.CheckoutResult{
		Mode:        payments.ModePayment,
		CheckoutURL: "https://checkout.test/" + req.Reference,
		Reference:   req.Reference,
	}, nil
}

func (p *fakeProvider) VerifyWebhook(rawBody []byte, headers map[string]string) bool { return false }

func (p *fakeProvider) ParseWebhook(rawBody []byte) (*payments.Event, error) {
	return nil, payments.ErrUnsupportedEvent
}

func (p *fakeProvider) Disable(ctx context.Context, subscriptionCode string) error {
	if p.disableErr != nil {
		return p.disableErr
	}
	p.disabled = append(p.disabled, subscriptionCode)
	return nil
}

// fakeNotifier counts confirmations.
type fakeNotifier struct {
	confirmed []string
}

func (n *fakeNotifier) PaymentConfirmed(user *models.User, txn *models.Transaction) {
	n.confirmed = append(n.confirmed, txn.TransactionID)
}
