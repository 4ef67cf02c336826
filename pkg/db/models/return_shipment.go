package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/anvo-dev/markethub-backend/pkg/enums"
	"github.com/anvo-dev/markethub-backend/pkg/types"
)

// ReturnShipment moves approved returns from the buyer back to the merchant.
type ReturnShipment struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ReturnRequestID uuid.UUID            `gorm:"column:return_request_id;type:uuid;not null;index"`
	OrderID         uuid.UUID            `gorm:"column:order_id;type:uuid;not null"`
	Origin          types.Address        `gorm:"column:origin;type:jsonb;serializer:json"`
	Destination     types.Address        `gorm:"column:destination;type:jsonb;serializer:json"`
	Status          enums.ShipmentStatus `gorm:"column:status;type:text;not null;default:'pending_pickup'"`
	ReturnedAt      *time.Time           `gorm:"column:returned_at"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
