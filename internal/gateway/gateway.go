package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/anvo-dev/markethub-backend/pkg/config"
	"github.com/anvo-dev/markethub-backend/pkg/enums"
	pkgerrors "github.com/anvo-dev/markethub-backend/pkg/errors"
	"github.com/google/uuid"
)

// PaymentGateway is the narrow surface the settlement core needs from the
// payment provider. The provider-specific protocols live outside this core.
type PaymentGateway interface {
	Refund(ctx context.Context, orderID uuid.UUID, amountCents int64) (string, error)
	QueryStatus(ctx context.Context, orderID uuid.UUID) (enums.PaymentStatus, error)
}

type timeoutGateway struct {
	next PaymentGateway
	cfg  config.GatewayConfig
}

// WithTimeout bounds every outbound gateway call. A deadline hit is reported
// as a dependency error so callers treat the refund as failed-pending and
// queue it for reconciliation instead of assuming success.
func WithTimeout(next PaymentGateway, cfg config.GatewayConfig) PaymentGateway {
	return &timeoutGateway{next: next, cfg: cfg}
}

func (g *timeoutGateway) Refund(ctx context.Context, orderID uuid.UUID, amountCents int64) (string, error) {
	timeout := g.cfg.RefundTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	txnID, err := g.next.Refund(ctx, orderID, amountCents)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "gateway refund timed out")
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "gateway refund failed")
	}
	return txnID, nil
}

func (g *timeoutGateway) QueryStatus(ctx context.Context, orderID uuid.UUID) (enums.PaymentStatus, error) {
	timeout := g.cfg.QueryTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	status, err := g.next.QueryStatus(ctx, orderID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "gateway status query failed")
	}
	return status, nil
}
