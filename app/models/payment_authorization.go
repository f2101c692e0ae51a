package models

import "time"

// PaymentAuthorization is a stored reusable payment-method token issued by a
// provider after a successful charge. When one exists for the chosen provider,
// payment initialization can create a recurring subscription directly instead
// of sending the user through hosted checkout again.
type PaymentAuthorization struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	UserID            uint      `gorm:"not null;index:ux_payment_authorizations_user_provider,unique,priority:1" json:"user_id"`
	Provider          string    `gorm:"type:varchar(20);not null;index:ux_payment_authorizations_user_provider,unique,priority:2" json:"provider"`
	AuthorizationCode string    `gorm:"type:varchar(191);not null" json:"-"`
	CustomerCode      string    `gorm:"type:varchar(191);default:''" json:"-"`
	Email             string    `gorm:"type:varchar(200);default:''" json:"email"`
	CardType          string    `gorm:"type:varchar(32);default:''" json:"card_type"`
	Last4             string    `gorm:"type:varchar(4);default:''" json:"last4"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
