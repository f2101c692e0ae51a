package subscription

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tapcardhq/tapcard/app/models"
	"github.com/tapcardhq/tapcard/internal/pkg/payments"
)

// Repository provides the DB operations behind the catalog, ledger and
// subscription manager.
type Repository interface {
	GetUser(id uint) (*models.User, error)

	GetTierByName(name string) (*models.Tier, error)
	ListTiers() ([]models.Tier, error)

	GetAuthorization(userID uint, provider string) (*models.PaymentAuthorization, error)
	UpsertAuthorization(auth *models.PaymentAuthorization) error

	CreateTransactionIfNotExists(txn *models.Transaction) (bool, error)
	FindTransactionByTransactionID(transactionID string) (*models.Transaction, error)
	ListTransactions(provider string) ([]models.Transaction, error)
	AggregateRevenue() (*RevenueSummary, error)

	// ActivateSubscription records the transaction and flips the user's tier
	// state in one database transaction. Returns ErrDuplicateTransaction when
	// the transaction id was already recorded; no state is touched then.
	ActivateSubscription(txn *models.Transaction, subscriptionCode string) error
	// ClearSubscription atomically resets status, identifiers, expiry and the
	// active subscription reference.
	ClearSubscription(userID uint) error
	// SetChangePending writes the mid-change state: new plan, inactive status,
	// all subscription identifiers cleared.
	SetChangePending(userID uint, newPlan string) error
	// ExpireLapsed clears tier state for users whose paid period has passed.
	ExpireLapsed(now time.Time) (int64, error)

	CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetUser(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, payments.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *gormRepository) GetTierByName(name string) (*models.Tier, error) {
	var tier models.Tier
	if err := r.db.Where("name = ?", name).First(&tier).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, payments.ErrInvalidPlan
		}
		return nil, err
	}
	return &tier, nil
}

func (r *gormRepository) ListTiers() ([]models.Tier, error) {
	var tiers []models.Tier
	err := r.db.Order("monthly_price_foreign ASC").Find(&tiers).Error
	return tiers, err
}

func (r *gormRepository) GetAuthorization(userID uint, provider string) (*models.PaymentAuthorization, error) {
	var auth models.PaymentAuthorization
	err := r.db.Where("user_id = ? AND provider = ?", userID, provider).First(&auth).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &auth, nil
}

func (r *gormRepository) UpsertAuthorization(auth *models.PaymentAuthorization) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"},
			{Name: "provider"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"authorization_code",
			"customer_code",
			"email",
			"card_type",
			"last4",
			"updated_at",
		}),
	}).Create(auth).Error
}

func (r *gormRepository) CreateTransactionIfNotExists(txn *models.Transaction) (bool, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "transaction_id"}},
		DoNothing: true,
	}).Create(txn)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) FindTransactionByTransactionID(transactionID string) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.db.Where("transaction_id = ?", transactionID).First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

func (r *gormRepository) ListTransactions(provider string) ([]models.Transaction, error) {
	q := r.db.Order("created_at DESC")
	if provider != "" {
		q = q.Where("provider = ?", provider)
	}
	var txns []models.Transaction
	err := q.Find(&txns).Error
	return txns, err
}

func (r *gormRepository) AggregateRevenue() (*RevenueSummary, error) {
	summary := &RevenueSummary{TotalsByCurrency: make(map[string]int64)}

	type currencyTotal struct {
		Currency string
		Total    int64
	}
	var totals []currencyTotal
	if err := r.db.Model(&models.Transaction{}).
		Select("currency, SUM(amount) AS total").
		Where("status = ?", models.TransactionStatusSuccess).
		Group("currency").
		Scan(&totals).Error; err != nil {
		return nil, err
	}
	for _, t := range totals {
		summary.TotalsByCurrency[t.Currency] = t.Total
	}

	if err := r.db.Model(&models.Transaction{}).
		Select("provider, currency, SUM(amount) AS amount, COUNT(*) AS count").
		Where("status = ?", models.TransactionStatusSuccess).
		Group("provider, currency").
		Scan(&summary.ByProvider).Error; err != nil {
		return nil, err
	}

	if err := r.db.Model(&models.Transaction{}).
		Select("DATE_FORMAT(paid_at, '%Y-%m') AS month, currency, SUM(amount) AS amount").
		Where("status = ?", models.TransactionStatusSuccess).
		Group("month, currency").
		Order("month ASC").
		Scan(&summary.ByMonth).Error; err != nil {
		return nil, err
	}

	if err := r.db.Model(&models.Transaction{}).
		Select("plan, currency, SUM(amount) AS amount").
		Where("status = ? AND type = ?", models.TransactionStatusSuccess, models.TransactionTypeSubscription).
		Group("plan, currency").
		Scan(&summary.ByPlan).Error; err != nil {
		return nil, err
	}

	return summary, nil
}

func (r *gormRepository) ActivateSubscription(txn *models.Transaction, subscriptionCode string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "transaction_id"}},
			DoNothing: true,
		}).Create(txn)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return payments.ErrDuplicateTransaction
		}

		updates := map[string]any{
			"plan":                    txn.Plan,
			"subscription_status":     models.SubscriptionActive,
			"transaction_id":          txn.TransactionID,
			"subscription_code":       nil,
			"subscription_expires_at": txn.ExpiresAt,

			"subscription_provider":      nil,
			"active_subscription_id":     nil,
			"active_subscription_expiry": nil,
		}
		if subscriptionCode != "" {
			updates["subscription_code"] = subscriptionCode
			updates["subscription_provider"] = txn.Provider
			updates["active_subscription_id"] = subscriptionCode
			updates["active_subscription_expiry"] = txn.ExpiresAt
		}
		res = tx.Model(&models.User{}).Where("id = ?", txn.UserID).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return payments.ErrUserNotFound
		}
		return nil
	})
}

func (r *gormRepository) ClearSubscription(userID uint) error {
	return r.db.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]any{
		"subscription_status":        models.SubscriptionInactive,
		"transaction_id":             nil,
		"subscription_code":          nil,
		"subscription_expires_at":    nil,
		"subscription_provider":      nil,
		"active_subscription_id":     nil,
		"active_subscription_expiry": nil,
	}).Error
}

func (r *gormRepository) SetChangePending(userID uint, newPlan string) error {
	return r.db.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]any{
		"plan":                       newPlan,
		"subscription_status":        models.SubscriptionInactive,
		"transaction_id":             nil,
		"subscription_code":          nil,
		"subscription_expires_at":    nil,
		"subscription_provider":      nil,
		"active_subscription_id":     nil,
		"active_subscription_expiry": nil,
	}).Error
}

func (r *gormRepository) ExpireLapsed(now time.Time) (int64, error) {
	res := r.db.Model(&models.User{}).
		Where("subscription_status = ? AND subscription_expires_at IS NOT NULL AND subscription_expires_at < ?", models.SubscriptionActive, now).
		Updates(map[string]any{
			"subscription_status":        models.SubscriptionInactive,
			"transaction_id":             nil,
			"subscription_code":          nil,
			"subscription_expires_at":    nil,
			"subscription_provider":      nil,
			"active_subscription_id":     nil,
			"active_subscription_expiry": nil,
		})
	return res.RowsAffected, res.Error
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.WebhookEvent
	if err := r.db.Where("provider = ? AND event_id = ?", event.Provider, event.EventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.WebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
