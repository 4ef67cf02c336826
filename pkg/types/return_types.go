package types

import (
	"time"

	"github.com/anvo-dev/markethub-backend/pkg/enums"
	"github.com/google/uuid"
)

// StoreResponse records the merchant's answer to a return request.
type StoreResponse struct {
	Approved    bool      `json:"approved"`
	Reason      string    `json:"reason,omitempty"`
	RespondedAt time.Time `json:"responded_at"`
}

// AdminDecision records the arbitration outcome attached to a return request.
type AdminDecision struct {
	Decision         enums.DisputeDecision `json:"decision"`
	Reason           string                `json:"reason,omitempty"`
	BuyerAmountCents int64                 `json:"buyer_amount_cents,omitempty"`
	DecidedAt        time.Time             `json:"decided_at"`
}

// DisputeMessage is one entry in a dispute's message thread.
type DisputeMessage struct {
	SenderID    uuid.UUID                  `json:"sender_id"`
	SenderType  enums.NotificationAudience `json:"sender_type"`
	Content     string                     `json:"content"`
	Attachments []string                   `json:"attachments,omitempty"`
	SentAt      time.Time                  `json:"sent_at"`
}

// DisputeMessages is the jsonb thread stored on a dispute.
type DisputeMessages []DisputeMessage
