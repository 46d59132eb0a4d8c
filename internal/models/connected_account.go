package models

import (
	"time"
)

// ConnectedAccount maps a chain address to its payout account at the payment
// provider. Created lazily on first payout need, updated from provider status
// checks, never deleted.
type ConnectedAccount struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	UserAddress        string    `gorm:"size:64;uniqueIndex;not null" json:"user_address"`
	ProviderAccountID  string    `gorm:"size:255;not null" json:"provider_account_id"`
	OnboardingComplete bool      `gorm:"not null;default:false" json:"onboarding_complete"`
	ChargesEnabled     bool      `gorm:"not null;default:false" json:"charges_enabled"`
	PayoutsEnabled     bool      `gorm:"not null;default:false" json:"payouts_enabled"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (ConnectedAccount) TableName() string {
	return "connected_accounts"
}
