package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/anvo-dev/markethub-backend/pkg/enums"
)

// Notification is a persisted fire-and-forget message. RecipientID is nil for
// admin broadcasts.
type Notification struct {
	ID          uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Audience    enums.NotificationAudience `gorm:"column:audience;type:text;not null"`
	RecipientID *uuid.UUID                 `gorm:"column:recipient_id;type:uuid;index"`
	Title       string                     `gorm:"column:title;not null"`
	Body        string                     `gorm:"column:body;not null"`
	RefID       uuid.UUID                  `gorm:"column:ref_id;type:uuid"`
	ReadAt      *time.Time                 `gorm:"column:read_at"`
	CreatedAt   time.Time                  `gorm:"column:created_at;autoCreateTime"`
}
