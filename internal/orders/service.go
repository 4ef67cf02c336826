package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anvo-dev/markethub-backend/internal/gateway"
	"github.com/anvo-dev/markethub-backend/internal/inventory"
	"github.com/anvo-dev/markethub-backend/internal/notifications"
	"github.com/anvo-dev/markethub-backend/internal/reconcile"
	"github.com/anvo-dev/markethub-backend/internal/refunds"
	"github.com/anvo-dev/markethub-backend/internal/wallet"
	"github.com/anvo-dev/markethub-backend/pkg/db/models"
	"github.com/anvo-dev/markethub-backend/pkg/enums"
	pkgerrors "github.com/anvo-dev/markethub-backend/pkg/errors"
	"github.com/anvo-dev/markethub-backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// transitions is the full lifecycle graph. Anything not listed is rejected
// with a state conflict; a transition into the current status is a no-op.
var transitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:   {enums.OrderStatusConfirmed, enums.OrderStatusCancelled},
	enums.OrderStatusConfirmed: {enums.OrderStatusShipping, enums.OrderStatusCancelled},
	enums.OrderStatusShipping:  {enums.OrderStatusDelivered},
	enums.OrderStatusDelivered: {enums.OrderStatusCompleted, enums.OrderStatusReturning},
	enums.OrderStatusReturning: {enums.OrderStatusReturned},
}

func canTransition(from, to enums.OrderStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Service is the order lifecycle controller. Every transition locks the order
// row, so concurrent transitions on the same order serialize and the loser
// re-evaluates against the committed status.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListForBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Order, error)
	Confirm(ctx context.Context, id uuid.UUID) (*models.Order, error)
	StartShipping(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// MarkDelivered also settles cash-on-delivery payment: the courier
	// collected on handover, so the order flips to paid.
	MarkDelivered(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// Complete releases the merchant's revenue from escrow. The completed
	// status never rolls back: a wallet failure afterwards is queued for
	// reconciliation instead.
	Complete(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// Cancel restores stock for every line and, when the buyer already paid,
	// enqueues a full refund.
	Cancel(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// MarkPaid handles the gateway payment callback for online orders and
	// places the merchant's share into pending escrow.
	MarkPaid(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// MarkPaymentFailed cancels an online order whose payment did not clear.
	MarkPaymentFailed(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// BeginReturn and FinishReturn run inside the caller's transaction; the
	// returns engine drives them together with its own state changes.
	BeginReturn(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Order, error)
	FinishReturn(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Order, error)
	// AttachReturnRequest links the order to its return request. It runs in
	// the caller's transaction alongside the request creation, and the link
	// stays in place after the request closes.
	AttachReturnRequest(ctx context.Context, tx *gorm.DB, id, returnRequestID uuid.UUID) error
}

type service struct {
	repo      Repository
	allocator inventory.Allocator
	gateway   gateway.PaymentGateway
	wallet    wallet.Service
	refunds   refunds.Service
	reconcile reconcile.Service
	notifier  notifications.Notifier
	tx        txRunner
	logg      *logger.Logger
}

// NewService wires the order lifecycle controller.
func NewService(
	repo Repository,
	allocator inventory.Allocator,
	gatewaySvc gateway.PaymentGateway,
	walletSvc wallet.Service,
	refundsSvc refunds.Service,
	reconcileSvc reconcile.Service,
	notifier notifications.Notifier,
	tx txRunner,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if allocator == nil {
		return nil, fmt.Errorf("inventory allocator required")
	}
	if gatewaySvc == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if walletSvc == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if refundsSvc == nil {
		return nil, fmt.Errorf("refund service required")
	}
	if reconcileSvc == nil {
		return nil, fmt.Errorf("reconcile service required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      repo,
		allocator: allocator,
		gateway:   gatewaySvc,
		wallet:    walletSvc,
		refunds:   refundsSvc,
		reconcile: reconcileSvc,
		notifier:  notifier,
		tx:        tx,
		logg:      logg,
	}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) ListForBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Order, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	rows, err := s.repo.ListByBuyer(ctx, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return rows, nil
}

func (s *service) Confirm(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return s.transition(ctx, id, enums.OrderStatusConfirmed, nil)
}

func (s *service) StartShipping(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return s.transition(ctx, id, enums.OrderStatusShipping, nil)
}

func (s *service) MarkDelivered(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var settledCash bool
	order, err := s.transition(ctx, id, enums.OrderStatusDelivered, func(ctx context.Context, tx *gorm.DB, order *models.Order) error {
		if order.PaymentMethod == enums.PaymentMethodCOD && order.PaymentStatus == enums.PaymentStatusUnpaid {
			if err := s.repo.WithTx(tx).UpdatePaymentStatus(ctx, order.ID, enums.PaymentStatusPaid); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle cash payment")
			}
			order.PaymentStatus = enums.PaymentStatusPaid
			settledCash = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if settledCash {
		s.notifier.NotifyMerchant(ctx, order.MerchantID, "Order delivered",
			fmt.Sprintf("Order %s was delivered and cash was collected.", order.ID), order.ID)
	}
	return order, nil
}

func (s *service) Complete(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.transition(ctx, id, enums.OrderStatusCompleted, nil)
	if err != nil {
		return nil, err
	}
	s.settleMerchant(ctx, order)
	return order, nil
}

// settleMerchant moves the merchant's revenue out of escrow after completion
// committed. Failures here never surface to the caller; the reconcile queue
// owns the retry.
func (s *service) settleMerchant(ctx context.Context, order *models.Order) {
	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	revenue := order.MerchantRevenueCents()

	if revenue > 0 {
		if _, err := s.wallet.ReleaseToBalance(ctx, order.MerchantID, order.ID, revenue); err != nil {
			s.logg.Error(ctx, "merchant credit failed after completion, queued for reconciliation", err)
			s.reconcile.EnqueueWalletCredit(ctx, order.ID, order.MerchantID, revenue, err)
			s.notifier.NotifyAdmin(ctx, "Wallet credit failed",
				fmt.Sprintf("Order %s completed but the merchant credit of %d failed.", order.ID, revenue), order.ID)
			return
		}
	}
	if err := s.wallet.RecordCommission(ctx, order.MerchantID, order.ID, order.CommissionCents); err != nil {
		s.logg.Error(ctx, "commission entry failed", err)
	}
	if err := s.wallet.RecordDiscountLoss(ctx, order.MerchantID, order.ID, order.StoreDiscountCents); err != nil {
		s.logg.Error(ctx, "discount loss entry failed", err)
	}
	s.notifier.NotifyMerchant(ctx, order.MerchantID, "Order completed",
		fmt.Sprintf("Order %s completed; %d was released to your balance.", order.ID, revenue), order.ID)
}

func (s *service) Cancel(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var refundEnqueued bool
	order, err := s.transition(ctx, id, enums.OrderStatusCancelled, func(ctx context.Context, tx *gorm.DB, order *models.Order) error {
		for _, item := range order.Items {
			if err := s.allocator.Restore(ctx, tx, item.VariantID, item.ColorID, item.Qty); err != nil {
				return err
			}
		}
		if order.PaymentStatus == enums.PaymentStatusPaid {
			_, err := s.refunds.Enqueue(ctx, tx, refunds.EnqueueInput{
				OrderID:       order.ID,
				Source:        enums.RefundSourceCancellation,
				BuyerID:       order.BuyerID,
				AmountCents:   order.TotalCents,
				PaymentMethod: order.PaymentMethod,
			})
			if err != nil {
				return err
			}
			refundEnqueued = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if refundEnqueued && order.PaymentMethod.IsOnline() {
		// The escrowed share was added at payment time; pull it back out.
		if _, err := s.wallet.DeductPending(ctx, order.MerchantID, order.ID, order.MerchantRevenueCents()); err != nil {
			ctx := s.logg.WithOrderID(ctx, order.ID.String())
			s.logg.Error(ctx, "pending deduction failed after cancellation", err)
			s.notifier.NotifyAdmin(ctx, "Pending deduction failed",
				fmt.Sprintf("Order %s was cancelled but the escrow deduction failed.", order.ID), order.ID)
		}
	}
	s.notifier.NotifyBuyer(ctx, order.BuyerID, "Order cancelled",
		fmt.Sprintf("Order %s has been cancelled.", order.ID), order.ID)
	s.notifier.NotifyMerchant(ctx, order.MerchantID, "Order cancelled",
		fmt.Sprintf("Order %s has been cancelled.", order.ID), order.ID)
	return order, nil
}

func (s *service) MarkPaid(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	// The callback body is unauthenticated; the provider is the source of
	// truth for whether the charge actually captured.
	status, err := s.gateway.QueryStatus(ctx, id)
	if err != nil {
		return nil, err
	}
	if status != enums.PaymentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "gateway does not report the payment as captured").
			WithDetails(map[string]any{"gateway_status": status})
	}

	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if !current.PaymentMethod.IsOnline() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not paid through a gateway")
		}
		if current.PaymentStatus == enums.PaymentStatusPaid {
			order = current
			return nil
		}
		if current.Status == enums.OrderStatusCancelled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is cancelled")
		}
		if err := repo.UpdatePaymentStatus(ctx, current.ID, enums.PaymentStatusPaid); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment status")
		}
		current.PaymentStatus = enums.PaymentStatusPaid
		order = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	if revenue := order.MerchantRevenueCents(); revenue > 0 {
		if _, err := s.wallet.AddPending(ctx, order.MerchantID, order.ID, revenue); err != nil {
			ctx := s.logg.WithOrderID(ctx, order.ID.String())
			s.logg.Error(ctx, "escrow credit failed after payment", err)
			s.notifier.NotifyAdmin(ctx, "Escrow credit failed",
				fmt.Sprintf("Order %s was paid but the pending credit of %d failed.", order.ID, revenue), order.ID)
		}
	}
	return order, nil
}

func (s *service) MarkPaymentFailed(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return s.transition(ctx, id, enums.OrderStatusCancelled, func(ctx context.Context, tx *gorm.DB, order *models.Order) error {
		if !order.PaymentMethod.IsOnline() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not paid through a gateway")
		}
		if order.PaymentStatus == enums.PaymentStatusPaid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is already paid")
		}
		if err := s.repo.WithTx(tx).UpdatePaymentStatus(ctx, order.ID, enums.PaymentStatusFailed); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment status")
		}
		order.PaymentStatus = enums.PaymentStatusFailed
		for _, item := range order.Items {
			if err := s.allocator.Restore(ctx, tx, item.VariantID, item.ColorID, item.Qty); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *service) BeginReturn(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Order, error) {
	return s.transitionInTx(ctx, tx, id, enums.OrderStatusReturning, nil)
}

func (s *service) FinishReturn(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Order, error) {
	return s.transitionInTx(ctx, tx, id, enums.OrderStatusReturned, nil)
}

func (s *service) AttachReturnRequest(ctx context.Context, tx *gorm.DB, id, returnRequestID uuid.UUID) error {
	if err := s.repo.WithTx(tx).SetReturnRequest(ctx, id, &returnRequestID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "link return request")
	}
	return nil
}

type transitionHook func(ctx context.Context, tx *gorm.DB, order *models.Order) error

// transition opens its own transaction around transitionInTx.
func (s *service) transition(ctx context.Context, id uuid.UUID, to enums.OrderStatus, hook transitionHook) (*models.Order, error) {
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		order, txErr = s.transitionInTx(ctx, tx, id, to, hook)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) transitionInTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, to enums.OrderStatus, hook transitionHook) (*models.Order, error) {
	repo := s.repo.WithTx(tx)
	order, err := repo.FindByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	if order.Status == to {
		return order, nil
	}
	if !canTransition(order.Status, to) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot move order from %s to %s", order.Status, to)).
			WithDetails(map[string]any{"from": order.Status, "to": to})
	}

	if hook != nil {
		if err := hook(ctx, tx, order); err != nil {
			return nil, err
		}
	}

	stamp := time.Now().UTC()
	if err := repo.UpdateStatus(ctx, order.ID, to, &stamp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	order.Status = to
	switch to {
	case enums.OrderStatusDelivered:
		order.DeliveredAt = &stamp
	case enums.OrderStatusCompleted:
		order.CompletedAt = &stamp
	case enums.OrderStatusCancelled:
		order.CancelledAt = &stamp
	}
	return order, nil
}
