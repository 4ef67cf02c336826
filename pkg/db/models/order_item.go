package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderItem is the immutable snapshot of one purchased line.
type OrderItem struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID  `gorm:"column:order_id;type:uuid;not null;index"`
	VariantID      uuid.UUID  `gorm:"column:variant_id;type:uuid;not null"`
	ColorID        *uuid.UUID `gorm:"column:color_id;type:uuid"`
	Name           string     `gorm:"column:name;not null"`
	Qty            int        `gorm:"column:qty;not null"`
	UnitPriceCents int64      `gorm:"column:unit_price_cents;not null"`
	WeightGrams    int        `gorm:"column:weight_grams;not null;default:0"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
}
