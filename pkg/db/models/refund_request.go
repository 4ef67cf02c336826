package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/anvo-dev/markethub-backend/pkg/enums"
	"github.com/anvo-dev/markethub-backend/pkg/types"
)

// RefundRequest is a queue item for refund execution. Gateway refunds can be
// executed automatically; bank transfers wait for an operator. The unique
// (order, source) pair prevents the same flow from enqueueing twice.
type RefundRequest struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID          `gorm:"column:order_id;type:uuid;not null;uniqueIndex:idx_refund_order_source,priority:1"`
	Source        enums.RefundSource `gorm:"column:source;type:text;not null;uniqueIndex:idx_refund_order_source,priority:2"`
	BuyerID       uuid.UUID          `gorm:"column:buyer_id;type:uuid;not null;index"`
	AmountCents   int64              `gorm:"column:amount_cents;not null"`
	Method        enums.RefundMethod `gorm:"column:method;type:text;not null"`
	BankInfo      *types.BankInfo    `gorm:"column:bank_info;type:jsonb;serializer:json"`
	Status        enums.RefundStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	TransactionID *string            `gorm:"column:transaction_id"`
	RejectReason  *string            `gorm:"column:reject_reason"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
