package notifications

import (
	"context"

	"github.com/anvo-dev/markethub-backend/pkg/db/models"
	"github.com/anvo-dev/markethub-backend/pkg/enums"
	"github.com/anvo-dev/markethub-backend/pkg/logger"
	"github.com/google/uuid"
)

// Notifier delivers fire-and-forget notifications. Delivery failures are
// logged and never propagate into the calling operation.
type Notifier interface {
	NotifyBuyer(ctx context.Context, buyerID uuid.UUID, title, body string, refID uuid.UUID)
	NotifyMerchant(ctx context.Context, merchantID uuid.UUID, title, body string, refID uuid.UUID)
	NotifyAdmin(ctx context.Context, title, body string, refID uuid.UUID)
}

type notifier struct {
	repo Repository
	logg *logger.Logger
}

// NewNotifier wires the persisted notifier.
func NewNotifier(repo Repository, logg *logger.Logger) Notifier {
	return &notifier{repo: repo, logg: logg}
}

func (n *notifier) NotifyBuyer(ctx context.Context, buyerID uuid.UUID, title, body string, refID uuid.UUID) {
	n.deliver(ctx, enums.NotificationAudienceBuyer, &buyerID, title, body, refID)
}

func (n *notifier) NotifyMerchant(ctx context.Context, merchantID uuid.UUID, title, body string, refID uuid.UUID) {
	n.deliver(ctx, enums.NotificationAudienceMerchant, &merchantID, title, body, refID)
}

func (n *notifier) NotifyAdmin(ctx context.Context, title, body string, refID uuid.UUID) {
	n.deliver(ctx, enums.NotificationAudienceAdmin, nil, title, body, refID)
}

func (n *notifier) deliver(ctx context.Context, audience enums.NotificationAudience, recipientID *uuid.UUID, title, body string, refID uuid.UUID) {
	notification := &models.Notification{
		Audience:    audience,
		RecipientID: recipientID,
		Title:       title,
		Body:        body,
		RefID:       refID,
	}
	if err := n.repo.Create(ctx, notification); err != nil && n.logg != nil {
		ctx = n.logg.WithFields(ctx, map[string]any{
			"audience": audience,
			"ref_id":   refID,
		})
		n.logg.Error(ctx, "notification delivery failed", err)
	}
}
