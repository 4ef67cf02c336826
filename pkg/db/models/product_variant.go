package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/anvo-dev/markethub-backend/pkg/types"
)

// ProductVariant holds purchasable stock. When Colors is non-empty, TotalStock
// must equal the sum of per-color stocks; the inventory allocator maintains
// that invariant under a row lock.
type ProductVariant struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MerchantID  uuid.UUID          `gorm:"column:merchant_id;type:uuid;not null;index"`
	Name        string             `gorm:"column:name;not null"`
	PriceCents  int64              `gorm:"column:price_cents;not null"`
	TotalStock  int                `gorm:"column:total_stock;not null;default:0"`
	WeightGrams int                `gorm:"column:weight_grams;not null;default:0"`
	Colors      types.ColorOptions `gorm:"column:colors;type:jsonb;serializer:json"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
