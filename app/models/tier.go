package models

import "time"

const (
	CurrencyLocal   = "NGN"
	CurrencyForeign = "USD"
)

// TierPricing holds the per-cycle price of a tier. Prices are minor units
// (kobo for NGN, cents for USD). ProviderPlanCode is the remote payment-plan
// handle used when creating recurring subscriptions.
type TierPricing struct {
	PriceLocal       int64  `gorm:"not null;default:0" json:"price_local"`
	PriceForeign     int64  `gorm:"not null;default:0" json:"price_foreign"`
	DurationInDays   int    `gorm:"not null;default:30" json:"duration_in_days"`
	ProviderPlanCode string `gorm:"type:varchar(100);default:''" json:"provider_plan_code"`
}

// Tier is an admin-managed subscription plan definition.
type Tier struct {
	ID              uint        `gorm:"primaryKey" json:"id"`
	Name            string      `gorm:"type:varchar(50);not null;uniqueIndex" json:"name"`
	Description     string      `gorm:"type:text" json:"description"`
	Features        string      `gorm:"type:text" json:"features"` // JSON array of feature strings
	TrialPeriodDays int         `gorm:"not null;default:0" json:"trial_period_days"`
	AutoRenew       bool        `gorm:"default:true" json:"auto_renew"`
	Monthly         TierPricing `gorm:"embedded;embeddedPrefix:monthly_" json:"monthly"`
	Yearly          TierPricing `gorm:"embedded;embeddedPrefix:yearly_" json:"yearly"`
	CreatedAt       time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

// Pricing returns the pricing block for a billing cycle, false if the cycle is unknown.
func (t *Tier) Pricing(cycle string) (TierPricing, bool) {
	switch cycle {
	case CycleMonthly:
		return t.Monthly, true
	case CycleYearly:
		return t.Yearly, true
	default:
		return TierPricing{}, false
	}
}

// Price returns the minor-unit price for a currency.
func (p TierPricing) Price(currency string) int64 {
	if currency == CurrencyLocal {
		return p.PriceLocal
	}
	return p.PriceForeign
}
