package models

import (
	"time"

	"github.com/google/uuid"
)

// CartLine is a saved cart row. Checkout deletes the lines it converts.
type CartLine struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID   uuid.UUID  `gorm:"column:buyer_id;type:uuid;not null;index"`
	VariantID uuid.UUID  `gorm:"column:variant_id;type:uuid;not null"`
	ColorID   *uuid.UUID `gorm:"column:color_id;type:uuid"`
	Qty       int        `gorm:"column:qty;not null"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
