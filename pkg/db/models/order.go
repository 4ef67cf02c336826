package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/anvo-dev/markethub-backend/pkg/enums"
	"github.com/anvo-dev/markethub-backend/pkg/types"
)

// Order is the per-merchant order produced from one checkout. Monetary fields
// satisfy: TotalCents = max(SubtotalCents - StoreDiscountCents -
// PlatformDiscountCents + ShippingFeeCents, 0).
type Order struct {
	ID                    uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID               uuid.UUID           `gorm:"column:buyer_id;type:uuid;not null;index"`
	MerchantID            uuid.UUID           `gorm:"column:merchant_id;type:uuid;not null;index"`
	SubtotalCents         int64               `gorm:"column:subtotal_cents;not null"`
	ShippingFeeCents      int64               `gorm:"column:shipping_fee_cents;not null;default:0"`
	StoreDiscountCents    int64               `gorm:"column:store_discount_cents;not null;default:0"`
	PlatformDiscountCents int64               `gorm:"column:platform_discount_cents;not null;default:0"`
	CommissionCents       int64               `gorm:"column:commission_cents;not null;default:0"`
	TotalCents            int64               `gorm:"column:total_cents;not null"`
	AppliedPromotionIDs   types.UUIDList      `gorm:"column:applied_promotion_ids;type:jsonb;serializer:json"`
	PaymentMethod         enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	PaymentStatus         enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'unpaid'"`
	Status                enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	ShippingAddress       *types.Address      `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	ReturnRequestID       *uuid.UUID          `gorm:"column:return_request_id;type:uuid"`
	Items                 []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	DeliveredAt           *time.Time          `gorm:"column:delivered_at"`
	CompletedAt           *time.Time          `gorm:"column:completed_at"`
	CancelledAt           *time.Time          `gorm:"column:cancelled_at"`
	CreatedAt             time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// MerchantRevenueCents is the amount released to the merchant wallet when the
// order completes: subtotal minus the merchant-funded discount and the platform
// commission, plus the shipping fee collected on the merchant's behalf.
func (o Order) MerchantRevenueCents() int64 {
	revenue := o.SubtotalCents - o.StoreDiscountCents - o.CommissionCents + o.ShippingFeeCents
	if revenue < 0 {
		return 0
	}
	return revenue
}
