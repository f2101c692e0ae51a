package subscription

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tapcardhq/tapcard/app/models"
	"github.com/tapcardhq/tapcard/internal/pkg/cache"
	"github.com/tapcardhq/tapcard/internal/pkg/payments"
)

const (
	userLockExpiry = 30 * time.Second
	userLockTries  = 8
)

// Notifier receives the "payment confirmed" side effect. Implementations must
// not block; failures are the implementation's problem, never the webhook
// response's.
type Notifier interface {
	PaymentConfirmed(user *models.User, txn *models.Transaction)
}

// Manager owns every mutation of a user's tier state. It translates provider
// outcomes into entitlement; nothing else in the codebase writes those columns.
type Manager struct {
	repo      Repository
	catalog   *Catalog
	providers *payments.Registry
	rs        *redsync.Redsync // nil disables per-user locking (tests)
	notifier  Notifier         // nil disables notifications
}

func NewManager(repo Repository, providers *payments.Registry, rs *redsync.Redsync, notifier Notifier) *Manager {
	return &Manager{
		repo:      repo,
		catalog:   NewCatalog(repo),
		providers: providers,
		rs:        rs,
		notifier:  notifier,
	}
}

// NewManagerFromDB wires a manager from a GORM handle with the process-wide
// provider registry and a redis-backed per-user lock.
func NewManagerFromDB(db *gorm.DB, notifier Notifier) *Manager {
	pool := goredis.NewPool(cache.GetClient())
	return NewManager(NewRepository(db), payments.DefaultRegistry(), redsync.New(pool), notifier)
}

func (m *Manager) Catalog() *Catalog {
	return m.catalog
}

// InitializeResult is what payment initialization hands back to the API layer.
type InitializeResult struct {
	Mode             payments.CheckoutMode `json:"mode"`
	CheckoutURL      string                `json:"checkout_url,omitempty"`
	SubscriptionCode string                `json:"subscription_code,omitempty"`
	Reference        string                `json:"reference"`
}

type CancelResult struct {
	Message        string `json:"message"`
	SubscriptionID string `json:"subscription_id"`
}

// InitializePayment starts a payment for a plan. It never mutates tier state;
// entitlement is only granted on confirmed payment.
func (m *Manager) InitializePayment(ctx context.Context, userID uint, plan, cycle, currency, providerName string) (*InitializeResult, error) {
	return m.initializePayment(ctx, userID, plan, cycle, currency, providerName)
}

func (m *Manager) initializePayment(ctx context.Context, userID uint, plan, cycle, currency, providerName string) (*InitializeResult, error) {
	provider, ok := m.providers.Get(providerName)
	if !ok || providerName == models.ProviderManual {
		return nil, fmt.Errorf("unknown payment provider: %s", providerName)
	}

	price, err := m.catalog.Price(plan, cycle, currency)
	if err != nil {
		return nil, err
	}

	user, err := m.repo.GetUser(userID)
	if err != nil {
		return nil, err
	}

	auth, err := m.repo.GetAuthorization(userID, providerName)
	if err != nil {
		return nil, err
	}

	req := payments.CheckoutRequest{
		User:            user,
		Plan:            NormalizePlan(plan),
		BillingCycle:    NormalizeCycle(cycle),
		Amount:          price.Amount,
		Currency:        price.Currency,
		DurationInDays:  price.DurationInDays,
		Reference:       newReference(),
		PlanCode:        price.ProviderPlanCode,
		TransactionType: models.TransactionTypeSubscription,
		Authorization:   auth,
	}

	result, err := provider.InitializeCheckout(ctx, req)
	if err != nil {
		// Surfaced to the caller as-is; nothing was granted, nothing to undo.
		return nil, err
	}

	return &InitializeResult{
		Mode:             result.Mode,
		CheckoutURL:      result.CheckoutURL,
		SubscriptionCode: result.SubscriptionCode,
		Reference:        result.Reference,
	}, nil
}

// ConfirmPayment applies a verified payment event. Safe under concurrent and
// repeated delivery: the ledger's unique transaction id collapses at-least-once
// delivery into exactly one entitlement application.
func (m *Manager) ConfirmPayment(ctx context.Context, ev payments.Event) error {
	unlock, err := m.lockUser(ctx, ev.UserID)
	if err != nil {
		return err
	}
	defer unlock()

	// Idempotency check first: an already-recorded transaction id means the
	// event was fully applied before.
	existing, err := m.repo.FindTransactionByTransactionID(ev.TransactionID)
	if err != nil {
		return err
	}
	if existing != nil {
		log.Printf("[Subscription] duplicate delivery for transaction %s, already applied", ev.TransactionID)
		return nil
	}

	user, err := m.repo.GetUser(ev.UserID)
	if err != nil {
		if errors.Is(err, payments.ErrUserNotFound) {
			// Money moved at the provider; never drop this silently.
			log.Printf("[Subscription] confirmed payment %s for unknown user %d, operator follow-up required", ev.TransactionID, ev.UserID)
		}
		return err
	}

	txn := &models.Transaction{
		UserID:        user.ID,
		Plan:          NormalizePlan(ev.Plan),
		BillingCycle:  NormalizeCycle(ev.BillingCycle),
		Amount:        ev.Amount,
		Currency:      ev.Currency,
		TransactionID: ev.TransactionID,
		ReferenceID:   newReference(),
		Type:          ev.TransactionType,
		Provider:      ev.Provider,
		Status:        models.TransactionStatusSuccess,
		PaidAt:        ev.PaidAt,
	}

	if ev.TransactionType == models.TransactionTypeCardOrder {
		txn.BillingCycle = ""
		created, err := m.repo.CreateTransactionIfNotExists(txn)
		if err != nil {
			return err
		}
		if !created {
			return nil
		}
	} else {
		expires := ev.PaidAt.AddDate(0, 0, ev.DurationInDays)
		txn.ExpiresAt = &expires
		if err := m.repo.ActivateSubscription(txn, ev.SubscriptionCode); err != nil {
			if errors.Is(err, payments.ErrDuplicateTransaction) {
				// Lost the race against a concurrent delivery; state is correct.
				return nil
			}
			return err
		}
	}

	if ev.Authorization != nil {
		if err := m.repo.UpsertAuthorization(&models.PaymentAuthorization{
			UserID:            user.ID,
			Provider:          ev.Provider,
			AuthorizationCode: ev.Authorization.Code,
			CustomerCode:      ev.Authorization.CustomerCode,
			Email:             ev.Authorization.Email,
			CardType:          ev.Authorization.CardType,
			Last4:             ev.Authorization.Last4,
		}); err != nil {
			// Token storage is an optimization for future checkouts.
			log.Printf("[Subscription] failed to store authorization for user %d: %v", user.ID, err)
		}
	}

	if m.notifier != nil {
		m.notifier.PaymentConfirmed(user, txn)
	}
	return nil
}

// CancelSubscription disables the remote subscription and then clears local
// tier state. The remote call comes first: a crash in between leaves the user
// harmlessly active locally rather than billed while believing they canceled.
func (m *Manager) CancelSubscription(ctx context.Context, userID uint, explicitSubscriptionID string) (*CancelResult, error) {
	unlock, err := m.lockUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	result, err := m.cancelLocked(ctx, userID, explicitSubscriptionID)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (m *Manager) cancelLocked(ctx context.Context, userID uint, explicitSubscriptionID string) (*CancelResult, error) {
	user, err := m.repo.GetUser(userID)
	if err != nil {
		return nil, err
	}

	subID := strings.TrimSpace(explicitSubscriptionID)
	if subID == "" && user.ActiveSubscriptionID != nil {
		subID = *user.ActiveSubscriptionID
	}
	if subID == "" {
		return nil, payments.ErrNoActiveSubscription
	}

	providerName := models.ProviderManual
	if user.SubscriptionProvider != nil && *user.SubscriptionProvider != "" {
		providerName = *user.SubscriptionProvider
	}
	provider, ok := m.providers.Get(providerName)
	if !ok {
		return nil, fmt.Errorf("unknown payment provider: %s", providerName)
	}

	if err := provider.Disable(ctx, subID); err != nil {
		// Local state stays untouched: clearing it while the provider still
		// bills the user is the one outcome this ordering exists to prevent.
		return nil, err
	}

	if err := m.repo.ClearSubscription(userID); err != nil {
		return nil, err
	}

	return &CancelResult{
		Message:        "subscription cancelled",
		SubscriptionID: subID,
	}, nil
}

// ChangeSubscription cancels the current provider subscription (if any) and
// initializes payment for the new plan. Between the two steps the user is in a
// well-defined pending state: new plan, inactive, no identifiers. The caller
// completes payment to re-activate.
func (m *Manager) ChangeSubscription(ctx context.Context, userID uint, newPlan, cycle, currency, providerName string) (*InitializeResult, error) {
	// Validate everything up front: a bad plan or cycle must fail before the
	// old subscription gets cancelled.
	newPlan = NormalizePlan(newPlan)
	cycle = NormalizeCycle(cycle)
	if !models.IsValidPlan(newPlan) || !models.IsValidCycle(cycle) {
		return nil, fmt.Errorf("%w: %s/%s", payments.ErrInvalidPlan, newPlan, cycle)
	}

	if err := func() error {
		unlock, err := m.lockUser(ctx, userID)
		if err != nil {
			return err
		}
		defer unlock()

		_, err = m.cancelLocked(ctx, userID, "")
		if err != nil && !errors.Is(err, payments.ErrNoActiveSubscription) {
			return err
		}
		return m.repo.SetChangePending(userID, newPlan)
	}(); err != nil {
		return nil, err
	}

	return m.initializePayment(ctx, userID, newPlan, cycle, currency, providerName)
}

// ExpireLapsed flips users whose paid period has passed back to inactive.
// Runs from the reconciliation cron.
func (m *Manager) ExpireLapsed(ctx context.Context) (int64, error) {
	_ = ctx
	n, err := m.repo.ExpireLapsed(time.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Printf("[Subscription] expired %d lapsed subscription(s)", n)
	}
	return n, nil
}

// lockUser serializes tier-state mutation per user. The ledger's unique index
// remains the correctness backstop; the lock prevents interleaved partial
// updates between racing confirm/cancel/change calls.
func (m *Manager) lockUser(ctx context.Context, userID uint) (func(), error) {
	if m.rs == nil {
		return func() {}, nil
	}
	mutex := m.rs.NewMutex(
		fmt.Sprintf("tierstate:%d", userID),
		redsync.WithExpiry(userLockExpiry),
		redsync.WithTries(userLockTries),
	)
	if err := mutex.LockContext(ctx); err != nil {
		return nil, fmt.Errorf("acquire tier-state lock for user %d: %w", userID, err)
	}
	return func() {
		if _, err := mutex.UnlockContext(ctx); err != nil {
			log.Printf("[Subscription] failed to release tier-state lock for user %d: %v", userID, err)
		}
	}, nil
}

func newReference() string {
	return "REF_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
