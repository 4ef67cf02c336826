package models

import (
	"time"

	"github.com/google/uuid"
)

// Wallet holds a merchant's funds. PendingCents is money received from online
// payments for orders that have not completed; BalanceCents is withdrawable.
// Both are kept non-negative by the wallet ledger.
type Wallet struct {
	MerchantID   uuid.UUID `gorm:"column:merchant_id;type:uuid;primaryKey"`
	PendingCents int64     `gorm:"column:pending_cents;not null;default:0"`
	BalanceCents int64     `gorm:"column:balance_cents;not null;default:0"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
