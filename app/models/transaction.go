package models

import "time"

const (
	ProviderPaystack    = "paystack"
	ProviderFlutterwave = "flutterwave"
	ProviderManual      = "manual"
)

const (
	CycleMonthly = "monthly"
	CycleYearly  = "yearly"
)

const (
	TransactionTypeSubscription = "subscription"
	TransactionTypeCardOrder    = "card_order"
)

const (
	TransactionStatusSuccess = "success"
	TransactionStatusPending = "pending"
	TransactionStatusFailed  = "failed"
)

// Transaction is the durable record of a confirmed (or attempted) payment.
// TransactionID is provider-issued and unique; the unique index is what makes
// at-least-once webhook delivery collapse into at-most-once entitlement.
// Rows are never deleted in normal operation.
type Transaction struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	UserID        uint       `gorm:"not null;index" json:"user_id"`
	Plan          string     `gorm:"type:varchar(50);not null;index" json:"plan"`
	BillingCycle  string     `gorm:"type:varchar(16);default:''" json:"billing_cycle"` // empty for card orders
	Amount        int64      `gorm:"not null" json:"amount"`                           // minor units
	Currency      string     `gorm:"type:varchar(3);not null" json:"currency"`
	TransactionID string     `gorm:"type:varchar(191);not null;uniqueIndex:ux_transactions_transaction_id" json:"transaction_id"`
	ReferenceID   string     `gorm:"type:varchar(191);not null;index" json:"reference_id"`
	Type          string     `gorm:"type:varchar(20);not null;default:'subscription'" json:"type"`
	Provider      string     `gorm:"type:varchar(20);not null;index" json:"provider"`
	Status        string     `gorm:"type:varchar(20);not null;default:'success';index" json:"status"`
	PaidAt        time.Time  `gorm:"type:timestamp;not null" json:"paid_at"`
	ExpiresAt     *time.Time `gorm:"type:timestamp;default:null" json:"expires_at,omitempty"`
	CreatedAt     time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func IsValidProvider(provider string) bool {
	switch provider {
	case ProviderPaystack, ProviderFlutterwave, ProviderManual:
		return true
	default:
		return false
	}
}

func IsValidCycle(cycle string) bool {
	return cycle == CycleMonthly || cycle == CycleYearly
}
