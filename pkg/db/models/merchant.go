package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/anvo-dev/markethub-backend/pkg/enums"
	"github.com/anvo-dev/markethub-backend/pkg/types"
)

// Merchant is the seller entity the settlement core reads for eligibility and
// shipping-origin data. Account management lives outside this core.
type Merchant struct {
	ID        uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string               `gorm:"column:name;not null"`
	Status    enums.MerchantStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Address   types.Address        `gorm:"column:address;type:jsonb;serializer:json"`
	CreatedAt time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
