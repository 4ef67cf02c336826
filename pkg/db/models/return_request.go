package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/anvo-dev/markethub-backend/pkg/enums"
	"github.com/anvo-dev/markethub-backend/pkg/types"
)

// ReturnRequest is a buyer-initiated request to return delivered goods. At most
// one non-terminal request may exist per order.
type ReturnRequest struct {
	ID            uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID            `gorm:"column:order_id;type:uuid;not null;index"`
	BuyerID       uuid.UUID            `gorm:"column:buyer_id;type:uuid;not null;index"`
	MerchantID    uuid.UUID            `gorm:"column:merchant_id;type:uuid;not null;index"`
	Reason        string               `gorm:"column:reason;not null"`
	EvidenceURLs  []string             `gorm:"column:evidence_urls;type:jsonb;serializer:json"`
	RefundCents   int64                `gorm:"column:refund_cents;not null"`
	Status        enums.ReturnStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	BankInfo      *types.BankInfo      `gorm:"column:bank_info;type:jsonb;serializer:json"`
	StoreResponse *types.StoreResponse `gorm:"column:store_response;type:jsonb;serializer:json"`
	AdminDecision *types.AdminDecision `gorm:"column:admin_decision;type:jsonb;serializer:json"`
	CreatedAt     time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
