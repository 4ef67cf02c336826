package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/anvo-dev/markethub-backend/pkg/enums"
)

// Promotion is a discount code funded by either a merchant or the platform.
type Promotion struct {
	ID                uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code              string                `gorm:"column:code;not null;uniqueIndex"`
	Issuer            enums.PromotionIssuer `gorm:"column:issuer;type:text;not null"`
	Scope             enums.PromotionScope  `gorm:"column:scope;type:text;not null"`
	DiscountType      enums.DiscountType    `gorm:"column:discount_type;type:text;not null"`
	DiscountValue     int64                 `gorm:"column:discount_value;not null"`
	MaxDiscountCents  *int64                `gorm:"column:max_discount_cents"`
	MinOrderCents     *int64                `gorm:"column:min_order_cents"`
	UsageLimit        *int                  `gorm:"column:usage_limit"`
	UsedCount         int                   `gorm:"column:used_count;not null;default:0"`
	UsageLimitPerUser *int                  `gorm:"column:usage_limit_per_user"`
	NewUserOnly       bool                  `gorm:"column:new_user_only;not null;default:false"`
	StartAt           time.Time             `gorm:"column:start_at;not null"`
	EndAt             time.Time             `gorm:"column:end_at;not null"`
	Status            enums.PromotionStatus `gorm:"column:status;type:text;not null;default:'active'"`
	MerchantID        *uuid.UUID            `gorm:"column:merchant_id;type:uuid"`
	CreatedAt         time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// RemainingUses returns how many applications are left, or -1 when unlimited.
func (p Promotion) RemainingUses() int {
	if p.UsageLimit == nil {
		return -1
	}
	remaining := *p.UsageLimit - p.UsedCount
	if remaining < 0 {
		return 0
	}
	return remaining
}
