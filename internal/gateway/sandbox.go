package gateway

import (
	"context"
	"fmt"

	"github.com/anvo-dev/markethub-backend/pkg/enums"
	"github.com/anvo-dev/markethub-backend/pkg/logger"
	"github.com/google/uuid"
)

// Sandbox is a stand-in provider for development and test environments. Every
// refund succeeds with a synthetic transaction id and every status query
// reports the payment as captured.
type Sandbox struct {
	logg *logger.Logger
}

func NewSandbox(logg *logger.Logger) *Sandbox {
	return &Sandbox{logg: logg}
}

func (s *Sandbox) Refund(ctx context.Context, orderID uuid.UUID, amountCents int64) (string, error) {
	txnID := fmt.Sprintf("sandbox-%s", uuid.NewString())
	if s.logg != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{
			"order_id":       orderID,
			"amount_cents":   amountCents,
			"transaction_id": txnID,
		})
		s.logg.Info(ctx, "sandbox gateway refund issued")
	}
	return txnID, nil
}

func (s *Sandbox) QueryStatus(ctx context.Context, orderID uuid.UUID) (enums.PaymentStatus, error) {
	return enums.PaymentStatusPaid, nil
}
