package models

import (
	"time"

	"github.com/google/uuid"
)

// PromotionUsage is an append-only record of one promotion application. The
// unique index makes re-submitting the same order idempotent.
type PromotionUsage struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PromotionID uuid.UUID `gorm:"column:promotion_id;type:uuid;not null;uniqueIndex:idx_promotion_usage_order,priority:1"`
	OrderID     uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex:idx_promotion_usage_order,priority:2"`
	BuyerID     uuid.UUID `gorm:"column:buyer_id;type:uuid;not null;index"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}
