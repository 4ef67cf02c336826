package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/anvo-dev/markethub-backend/pkg/enums"
)

// WalletEntry is the append-only record of one wallet operation. The unique
// index over (merchant, order, operation) is the idempotency key: replaying an
// operation for the same order is detected and skipped.
type WalletEntry struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MerchantID  uuid.UUID             `gorm:"column:merchant_id;type:uuid;not null;uniqueIndex:idx_wallet_entry_op,priority:1"`
	OrderID     uuid.UUID             `gorm:"column:order_id;type:uuid;not null;uniqueIndex:idx_wallet_entry_op,priority:2"`
	Operation   enums.WalletOperation `gorm:"column:operation;type:text;not null;uniqueIndex:idx_wallet_entry_op,priority:3"`
	AmountCents int64                 `gorm:"column:amount_cents;not null"`
	Note        string                `gorm:"column:note"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
}
