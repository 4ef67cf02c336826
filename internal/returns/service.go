package returns

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anvo-dev/markethub-backend/internal/merchants"
	"github.com/anvo-dev/markethub-backend/internal/notifications"
	"github.com/anvo-dev/markethub-backend/internal/orders"
	"github.com/anvo-dev/markethub-backend/internal/refunds"
	"github.com/anvo-dev/markethub-backend/internal/wallet"
	"github.com/anvo-dev/markethub-backend/pkg/db/models"
	"github.com/anvo-dev/markethub-backend/pkg/enums"
	pkgerrors "github.com/anvo-dev/markethub-backend/pkg/errors"
	"github.com/anvo-dev/markethub-backend/pkg/logger"
	"github.com/anvo-dev/markethub-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// transitions is the return request state graph. Reaching RETURNED never
// auto-refunds; the refund needs an explicit merchant confirmation or a
// dispute outcome so the merchant can inspect the goods first.
var transitions = map[enums.ReturnStatus][]enums.ReturnStatus{
	enums.ReturnStatusPending:       {enums.ReturnStatusReadyToReturn, enums.ReturnStatusRejected},
	enums.ReturnStatusReadyToReturn: {enums.ReturnStatusReturning},
	enums.ReturnStatusReturning:     {enums.ReturnStatusReturned},
	enums.ReturnStatusReturned:      {enums.ReturnStatusRefunded, enums.ReturnStatusQualityHold},
	enums.ReturnStatusRejected:      {enums.ReturnStatusDisputed},
	enums.ReturnStatusDisputed:      {enums.ReturnStatusReadyToReturn, enums.ReturnStatusClosed},
	enums.ReturnStatusQualityHold:   {enums.ReturnStatusRefundToStore, enums.ReturnStatusRefunded, enums.ReturnStatusPartialRefund},
}

func canTransition(from, to enums.ReturnStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CreateInput is the buyer's return request.
type CreateInput struct {
	OrderID      uuid.UUID
	BuyerID      uuid.UUID
	Reason       string
	EvidenceURLs []string
	BankInfo     *types.BankInfo
}

// Service is the return request state machine.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.ReturnRequest, error)
	Get(ctx context.Context, id uuid.UUID) (*models.ReturnRequest, error)
	// StoreRespond records the merchant's answer. Approval moves the order to
	// returning and spawns the return shipment; rejection requires a reason.
	StoreRespond(ctx context.Context, id, merchantID uuid.UUID, approved bool, reason string) (*models.ReturnRequest, error)
	// ShipmentInTransit and ShipmentReturned are the courier event hooks.
	ShipmentInTransit(ctx context.Context, shipmentID uuid.UUID) (*models.ReturnShipment, error)
	ShipmentReturned(ctx context.Context, shipmentID uuid.UUID) (*models.ReturnShipment, error)
	// ConfirmReturnedGoodsOk is the merchant's inspection sign-off; it refunds
	// the buyer through the payment-method-appropriate path.
	ConfirmReturnedGoodsOk(ctx context.Context, id, merchantID uuid.UUID) (*models.ReturnRequest, error)

	// Dispute-driven transitions, run inside the dispute engine's transaction.
	BeginRejectionDispute(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.ReturnRequest, error)
	BeginQualityDispute(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.ReturnRequest, error)
	ApplyAdminDecision(ctx context.Context, tx *gorm.DB, id uuid.UUID, decision types.AdminDecision) (*models.ReturnRequest, error)
}

type service struct {
	repo      Repository
	orders    orders.Service
	directory merchants.Directory
	refunds   refunds.Service
	wallet    wallet.Service
	notifier  notifications.Notifier
	tx        txRunner
	logg      *logger.Logger
}

// NewService wires the return engine.
func NewService(
	repo Repository,
	ordersSvc orders.Service,
	directory merchants.Directory,
	refundsSvc refunds.Service,
	walletSvc wallet.Service,
	notifier notifications.Notifier,
	tx txRunner,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("return repository required")
	}
	if ordersSvc == nil {
		return nil, fmt.Errorf("order service required")
	}
	if directory == nil {
		return nil, fmt.Errorf("merchant directory required")
	}
	if refundsSvc == nil {
		return nil, fmt.Errorf("refund service required")
	}
	if walletSvc == nil {
		return nil, fmt.Errorf("wallet service required")
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
		orders:    ordersSvc,
		directory: directory,
		refunds:   refundsSvc,
		wallet:    walletSvc,
		notifier:  notifier,
		tx:        tx,
		logg:      logg,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.ReturnRequest, error) {
	if input.Reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return reason required")
	}
	if len(input.EvidenceURLs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one evidence file required")
	}

	order, err := s.orders.Get(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != input.BuyerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another buyer")
	}
	if order.Status != enums.OrderStatusDelivered {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only delivered orders can be returned").
			WithDetails(map[string]any{"status": order.Status})
	}
	if _, err := s.repo.FindActiveByOrder(ctx, order.ID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order already has an active return request")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check active return request")
	}

	request := &models.ReturnRequest{
		OrderID:      order.ID,
		BuyerID:      order.BuyerID,
		MerchantID:   order.MerchantID,
		Reason:       input.Reason,
		EvidenceURLs: input.EvidenceURLs,
		RefundCents:  order.TotalCents,
		Status:       enums.ReturnStatusPending,
		BankInfo:     input.BankInfo,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, request); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create return request")
		}
		return s.orders.AttachReturnRequest(ctx, tx, order.ID, request.ID)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyMerchant(ctx, order.MerchantID, "Return requested",
		fmt.Sprintf("The buyer requested a return for order %s.", order.ID), request.ID)
	return request, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.ReturnRequest, error) {
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "return request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load return request")
	}
	return request, nil
}

func (s *service) StoreRespond(ctx context.Context, id, merchantID uuid.UUID, approved bool, reason string) (*models.ReturnRequest, error) {
	if !approved && reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection reason required")
	}

	var request *models.ReturnRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := s.lockRequest(ctx, repo, id)
		if err != nil {
			return err
		}
		if current.MerchantID != merchantID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "return request belongs to another merchant")
		}
		if current.Status != enums.ReturnStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "return request already answered").
				WithDetails(map[string]any{"status": current.Status})
		}

		current.StoreResponse = &types.StoreResponse{
			Approved:    approved,
			Reason:      reason,
			RespondedAt: time.Now().UTC(),
		}
		if !approved {
			current.Status = enums.ReturnStatusRejected
			if err := repo.Save(ctx, current); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save return request")
			}
			request = current
			return nil
		}

		if err := s.approveReturn(ctx, tx, repo, current); err != nil {
			return err
		}
		request = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	if approved {
		s.notifier.NotifyBuyer(ctx, request.BuyerID, "Return approved",
			fmt.Sprintf("Your return for order %s was approved; a pickup has been scheduled.", request.OrderID), request.ID)
	} else {
		s.notifier.NotifyBuyer(ctx, request.BuyerID, "Return rejected",
			fmt.Sprintf("Your return for order %s was rejected: %s", request.OrderID, reason), request.ID)
	}
	return request, nil
}

// approveReturn moves the request to ready-to-return, flips the order to
// returning, and spawns the pickup shipment from the buyer's delivery address
// back to the merchant.
func (s *service) approveReturn(ctx context.Context, tx *gorm.DB, repo Repository, request *models.ReturnRequest) error {
	request.Status = enums.ReturnStatusReadyToReturn
	if err := repo.Save(ctx, request); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save return request")
	}

	order, err := s.orders.BeginReturn(ctx, tx, request.OrderID)
	if err != nil {
		return err
	}

	merchant, err := s.directory.GetByID(ctx, request.MerchantID)
	if err != nil {
		return err
	}
	var origin types.Address
	if order.ShippingAddress != nil {
		origin = *order.ShippingAddress
	}
	shipment := &models.ReturnShipment{
		ReturnRequestID: request.ID,
		OrderID:         request.OrderID,
		Origin:          origin,
		Destination:     merchant.Address,
		Status:          enums.ShipmentStatusPendingPickup,
	}
	if err := repo.CreateShipment(ctx, shipment); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create return shipment")
	}
	return nil
}

func (s *service) ShipmentInTransit(ctx context.Context, shipmentID uuid.UUID) (*models.ReturnShipment, error) {
	var shipment *models.ReturnShipment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := s.loadShipment(ctx, repo, shipmentID)
		if err != nil {
			return err
		}
		if current.Status == enums.ShipmentStatusInTransit {
			shipment = current
			return nil
		}
		if current.Status != enums.ShipmentStatusPendingPickup {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "shipment cannot move to in transit").
				WithDetails(map[string]any{"status": current.Status})
		}
		current.Status = enums.ShipmentStatusInTransit
		if err := repo.SaveShipment(ctx, current); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save return shipment")
		}
		if _, err := s.transitionInTx(ctx, tx, current.ReturnRequestID, enums.ReturnStatusReturning, nil); err != nil {
			return err
		}
		shipment = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return shipment, nil
}

func (s *service) ShipmentReturned(ctx context.Context, shipmentID uuid.UUID) (*models.ReturnShipment, error) {
	var shipment *models.ReturnShipment
	var request *models.ReturnRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := s.loadShipment(ctx, repo, shipmentID)
		if err != nil {
			return err
		}
		if current.Status == enums.ShipmentStatusReturned {
			shipment = current
			return nil
		}
		returnedAt := time.Now().UTC()
		current.Status = enums.ShipmentStatusReturned
		current.ReturnedAt = &returnedAt
		if err := repo.SaveShipment(ctx, current); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save return shipment")
		}
		request, err = s.transitionInTx(ctx, tx, current.ReturnRequestID, enums.ReturnStatusReturned, nil)
		if err != nil {
			return err
		}
		if _, err := s.orders.FinishReturn(ctx, tx, current.OrderID); err != nil {
			return err
		}
		shipment = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	if request != nil {
		s.notifier.NotifyMerchant(ctx, request.MerchantID, "Return delivered",
			fmt.Sprintf("The returned goods for order %s arrived; please inspect them.", request.OrderID), request.ID)
	}
	return shipment, nil
}

func (s *service) ConfirmReturnedGoodsOk(ctx context.Context, id, merchantID uuid.UUID) (*models.ReturnRequest, error) {
	var request *models.ReturnRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		request, txErr = s.transitionInTx(ctx, tx, id, enums.ReturnStatusRefunded, func(current *models.ReturnRequest) error {
			if current.MerchantID != merchantID {
				return pkgerrors.New(pkgerrors.CodeForbidden, "return request belongs to another merchant")
			}
			if current.Status != enums.ReturnStatusReturned {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "goods have not been returned yet").
					WithDetails(map[string]any{"status": current.Status})
			}
			return nil
		})
		if txErr != nil {
			return txErr
		}
		order, txErr := s.orders.Get(ctx, request.OrderID)
		if txErr != nil {
			return txErr
		}
		_, txErr = s.refunds.Enqueue(ctx, tx, refunds.EnqueueInput{
			OrderID:       request.OrderID,
			Source:        enums.RefundSourceReturn,
			BuyerID:       request.BuyerID,
			AmountCents:   request.RefundCents,
			PaymentMethod: order.PaymentMethod,
			BankInfo:      request.BankInfo,
		})
		return txErr
	})
	if err != nil {
		return nil, err
	}

	s.settleReturnedOrder(ctx, request)
	s.notifier.NotifyBuyer(ctx, request.BuyerID, "Return accepted",
		fmt.Sprintf("Your return for order %s was accepted; the refund is on its way.", request.OrderID), request.ID)
	return request, nil
}

// settleReturnedOrder pulls the merchant's escrowed share back out of pending
// for online-paid orders whose goods came back. Failures are logged for the
// operator; the refund queue itself is already persisted.
func (s *service) settleReturnedOrder(ctx context.Context, request *models.ReturnRequest) {
	order, err := s.orders.Get(ctx, request.OrderID)
	if err != nil {
		s.logg.Error(ctx, "failed to load order for return settlement", err)
		return
	}
	if !order.PaymentMethod.IsOnline() || order.PaymentStatus != enums.PaymentStatusPaid {
		return
	}
	if revenue := order.MerchantRevenueCents(); revenue > 0 {
		if _, err := s.wallet.DeductPending(ctx, order.MerchantID, order.ID, revenue); err != nil {
			ctx := s.logg.WithOrderID(ctx, order.ID.String())
			s.logg.Error(ctx, "pending deduction failed after return", err)
			s.notifier.NotifyAdmin(ctx, "Pending deduction failed",
				fmt.Sprintf("Order %s was returned but the escrow deduction failed.", order.ID), request.ID)
		}
	}
}

func (s *service) BeginRejectionDispute(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.ReturnRequest, error) {
	return s.transitionInTx(ctx, tx, id, enums.ReturnStatusDisputed, nil)
}

func (s *service) BeginQualityDispute(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.ReturnRequest, error) {
	return s.transitionInTx(ctx, tx, id, enums.ReturnStatusQualityHold, nil)
}

// ApplyAdminDecision records the arbitration outcome and moves the request to
// the status the decision dictates. Money movement stays with the dispute
// engine; re-approved returns get their pickup shipment here.
func (s *service) ApplyAdminDecision(ctx context.Context, tx *gorm.DB, id uuid.UUID, decision types.AdminDecision) (*models.ReturnRequest, error) {
	var target enums.ReturnStatus
	switch decision.Decision {
	case enums.DisputeDecisionApproveReturn:
		target = enums.ReturnStatusReadyToReturn
	case enums.DisputeDecisionRejectReturn:
		target = enums.ReturnStatusClosed
	case enums.DisputeDecisionApproveStore:
		target = enums.ReturnStatusRefundToStore
	case enums.DisputeDecisionRejectStore:
		target = enums.ReturnStatusRefunded
	case enums.DisputeDecisionPartialRefund:
		target = enums.ReturnStatusPartialRefund
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid dispute decision")
	}

	repo := s.repo.WithTx(tx)
	request, err := s.lockRequest(ctx, repo, id)
	if err != nil {
		return nil, err
	}
	if request.Status == target {
		return request, nil
	}
	if !canTransition(request.Status, target) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot move return request from %s to %s", request.Status, target)).
			WithDetails(map[string]any{"from": request.Status, "to": target})
	}

	request.AdminDecision = &decision
	if decision.Decision == enums.DisputeDecisionApproveReturn {
		return request, s.approveReturn(ctx, tx, repo, request)
	}
	request.Status = target
	if err := repo.Save(ctx, request); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save return request")
	}
	return request, nil
}

type transitionGuard func(current *models.ReturnRequest) error

func (s *service) transitionInTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, to enums.ReturnStatus, guard transitionGuard) (*models.ReturnRequest, error) {
	repo := s.repo.WithTx(tx)
	request, err := s.lockRequest(ctx, repo, id)
	if err != nil {
		return nil, err
	}
	if request.Status == to {
		return request, nil
	}
	if guard != nil {
		if err := guard(request); err != nil {
			return nil, err
		}
	}
	if !canTransition(request.Status, to) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot move return request from %s to %s", request.Status, to)).
			WithDetails(map[string]any{"from": request.Status, "to": to})
	}
	request.Status = to
	if err := repo.Save(ctx, request); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save return request")
	}
	return request, nil
}

func (s *service) lockRequest(ctx context.Context, repo Repository, id uuid.UUID) (*models.ReturnRequest, error) {
	request, err := repo.FindByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "return request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load return request")
	}
	return request, nil
}

func (s *service) loadShipment(ctx context.Context, repo Repository, id uuid.UUID) (*models.ReturnShipment, error) {
	shipment, err := repo.FindShipmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "return shipment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load return shipment")
	}
	return shipment, nil
}
