package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/anvo-dev/markethub-backend/pkg/enums"
)

// ReconcileTask records a money movement that failed downstream of a committed
// state transition. The persisted order remains the retry source of truth;
// operators (or a re-drive endpoint) replay the wallet credit from here.
type ReconcileTask struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID             `gorm:"column:order_id;type:uuid;not null;index"`
	MerchantID  uuid.UUID             `gorm:"column:merchant_id;type:uuid;not null"`
	AmountCents int64                 `gorm:"column:amount_cents;not null"`
	LastError   string                `gorm:"column:last_error"`
	Attempts    int                   `gorm:"column:attempts;not null;default:0"`
	Status      enums.ReconcileStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	ResolvedAt  *time.Time            `gorm:"column:resolved_at"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
