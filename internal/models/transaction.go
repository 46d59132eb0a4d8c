package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"acmeramp/internal/domain"
)

// Transaction is the settlement record tying a fiat payment to an on-chain
// mint or burn. It is the single source of truth for settlement state and is
// never deleted.
type Transaction struct {
	ID          string `gorm:"primaryKey;size:36" json:"id"`
	Kind        string `gorm:"size:10;not null;index" json:"kind"`           // onramp, offramp
	Status      string `gorm:"size:20;not null;index" json:"status"`         // pending, processing, completed, failed
	UserAddress string `gorm:"size:64;not null;index" json:"user_address"`   // lower-cased chain address

	AmountUsdCents int64  `gorm:"not null" json:"amount_usd_cents"`
	// AmountToken is the token amount in 6-decimal minor units, stored as a
	// decimal string so it survives any scale without float rounding.
	AmountToken string `gorm:"size:78;not null" json:"amount_token"`

	PaymentIntentID *string `gorm:"size:255;uniqueIndex" json:"payment_intent_id,omitempty"` // on-ramp provider ref
	TransferTxHash  *string `gorm:"size:66;uniqueIndex" json:"transfer_tx_hash,omitempty"`   // off-ramp inbound transfer
	MintTxHash      *string `gorm:"size:66" json:"mint_tx_hash,omitempty"`
	BurnTxHash      *string `gorm:"size:66" json:"burn_tx_hash,omitempty"`

	PayoutID     *string `gorm:"size:255" json:"payout_id,omitempty"`
	PayoutStatus string  `gorm:"size:30;not null;default:'not_applicable'" json:"payout_status"`

	ErrorMessage string `gorm:"type:text" json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.PayoutStatus == "" {
		t.PayoutStatus = domain.PayoutNotApplicable
	}
	return nil
}

// ValueTxHash returns the hash of the value-moving action, if it happened.
func (t *Transaction) ValueTxHash() *string {
	if t.Kind == domain.TxKindOnRamp {
		return t.MintTxHash
	}
	return t.BurnTxHash
}
