package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/anvo-dev/markethub-backend/pkg/enums"
	"github.com/anvo-dev/markethub-backend/pkg/types"
)

// Dispute is an arbitration case escalated from a return request. At most one
// active dispute may exist per return request.
type Dispute struct {
	ID              uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ReturnRequestID uuid.UUID              `gorm:"column:return_request_id;type:uuid;not null;index"`
	OrderID         uuid.UUID              `gorm:"column:order_id;type:uuid;not null"`
	BuyerID         uuid.UUID              `gorm:"column:buyer_id;type:uuid;not null"`
	MerchantID      uuid.UUID              `gorm:"column:merchant_id;type:uuid;not null"`
	Type            enums.DisputeType      `gorm:"column:type;type:text;not null"`
	Status          enums.DisputeStatus    `gorm:"column:status;type:text;not null;default:'open'"`
	Messages        types.DisputeMessages  `gorm:"column:messages;type:jsonb;serializer:json"`
	Decision        *enums.DisputeDecision `gorm:"column:decision;type:text"`
	DecisionReason  *string                `gorm:"column:decision_reason"`
	Winner          *enums.DisputeWinner   `gorm:"column:winner;type:text"`
	ResolvedAt      *time.Time             `gorm:"column:resolved_at"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
