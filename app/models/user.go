package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	ROLE_USER       = "user"
	ROLE_ADMIN      = "admin"
	STATUS_ACTIVE   = "active"
	STATUS_INACTIVE = "inactive"
	STATUS_DISABLED = "disabled"
)

const (
	PlanBasic    = "basic"
	PlanPremium  = "premium"
	PlanBusiness = "business"
)

const (
	SubscriptionActive   = "active"
	SubscriptionInactive = "inactive"
)

// User carries the identity columns this service reads plus the tier state it
// exclusively owns. Identity management itself (signup, login, profiles) lives
// in the accounts service; this service only resolves and updates users by id.
type User struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Name   string `gorm:"type:varchar(150)" json:"name" validate:"required,min=3,max=150"`
	Email  string `gorm:"uniqueIndex;type:varchar(200)" json:"email" validate:"required,email,min=5,max=200"`
	Role   string `gorm:"type:varchar(50);default:'user'" json:"role" validate:"oneof=user admin"`
	Status string `gorm:"type:varchar(50);default:'active'" json:"status" validate:"oneof=active inactive disabled"`

	// Tier state. Only the subscription manager writes these columns, and an
	// activation or clear always updates them together in a single statement.
	Plan                  string     `gorm:"type:varchar(50);not null;default:'basic';index" json:"plan"`
	SubscriptionStatus    string     `gorm:"type:varchar(20);not null;default:'inactive';index" json:"subscription_status"`
	TransactionID         *string    `gorm:"type:varchar(191);default:null" json:"transaction_id,omitempty"`
	SubscriptionCode      *string    `gorm:"type:varchar(191);default:null" json:"subscription_code,omitempty"`
	SubscriptionExpiresAt *time.Time `gorm:"type:timestamp;default:null" json:"subscription_expires_at,omitempty"`

	// Active remote subscription reference. Null for manual or one-off
	// payments where no recurring provider subscription exists.
	SubscriptionProvider     *string    `gorm:"type:varchar(20);default:null" json:"subscription_provider,omitempty"`
	ActiveSubscriptionID     *string    `gorm:"type:varchar(191);default:null" json:"active_subscription_id,omitempty"`
	ActiveSubscriptionExpiry *time.Time `gorm:"type:timestamp;default:null" json:"active_subscription_expiry,omitempty"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

// IsActive reports whether the user account itself is active
func (u *User) IsActive() bool {
	return u.Status == STATUS_ACTIVE
}

// HasActiveSubscription reports whether the user currently holds a paid tier.
func (u *User) HasActiveSubscription() bool {
	if u.SubscriptionStatus != SubscriptionActive || u.TransactionID == nil {
		return false
	}
	if u.SubscriptionExpiresAt != nil && u.SubscriptionExpiresAt.Before(time.Now()) {
		return false
	}
	return true
}

// HasRemoteSubscription reports whether a recurring provider subscription is live.
func (u *User) HasRemoteSubscription() bool {
	return u.SubscriptionProvider != nil && u.ActiveSubscriptionID != nil && *u.ActiveSubscriptionID != ""
}

func IsValidPlan(plan string) bool {
	switch plan {
	case PlanBasic, PlanPremium, PlanBusiness:
		return true
	default:
		return false
	}
}
