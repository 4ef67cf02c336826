package refunds

import (
	"context"
	"fmt"

	"github.com/anvo-dev/markethub-backend/internal/gateway"
	"github.com/anvo-dev/markethub-backend/internal/notifications"
	"github.com/anvo-dev/markethub-backend/pkg/db"
	"github.com/anvo-dev/markethub-backend/pkg/db/models"
	"github.com/anvo-dev/markethub-backend/pkg/enums"
	pkgerrors "github.com/anvo-dev/markethub-backend/pkg/errors"
	"github.com/anvo-dev/markethub-backend/pkg/logger"
	"github.com/anvo-dev/markethub-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EnqueueInput describes a refund owed to a buyer.
type EnqueueInput struct {
	OrderID       uuid.UUID
	Source        enums.RefundSource
	BuyerID       uuid.UUID
	AmountCents   int64
	PaymentMethod enums.PaymentMethod
	BankInfo      *types.BankInfo
}

// Service manages the refund queue. Enqueueing is idempotent per (order,
// source); replays return the existing request untouched.
type Service interface {
	// Enqueue records the refund inside the caller's transaction. The refund
	// method follows the original payment: gateway reversal for online
	// payments, bank transfer for cash on delivery.
	Enqueue(ctx context.Context, tx *gorm.DB, input EnqueueInput) (*models.RefundRequest, error)
	// Execute attempts a gateway reversal for a pending gateway refund. A
	// failure keeps the request pending and alerts an operator.
	Execute(ctx context.Context, id uuid.UUID) (*models.RefundRequest, error)
	// Complete records an operator-executed refund, typically a bank transfer.
	Complete(ctx context.Context, id uuid.UUID, transactionID string) (*models.RefundRequest, error)
	Reject(ctx context.Context, id uuid.UUID, reason string) (*models.RefundRequest, error)
	ListPending(ctx context.Context) ([]models.RefundRequest, error)
}

type service struct {
	repo     Repository
	gateway  gateway.PaymentGateway
	notifier notifications.Notifier
	logg     *logger.Logger
}

// NewService wires the refund queue.
func NewService(repo Repository, gw gateway.PaymentGateway, notifier notifications.Notifier, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("refund repository required")
	}
	if gw == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, gateway: gw, notifier: notifier, logg: logg}, nil
}

func (s *service) Enqueue(ctx context.Context, tx *gorm.DB, input EnqueueInput) (*models.RefundRequest, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	if input.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}
	if !input.Source.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid refund source")
	}

	repo := s.repo.WithTx(tx)
	request := &models.RefundRequest{
		OrderID:     input.OrderID,
		Source:      input.Source,
		BuyerID:     input.BuyerID,
		AmountCents: input.AmountCents,
		Method:      enums.RefundMethodFor(input.PaymentMethod),
		BankInfo:    input.BankInfo,
		Status:      enums.RefundStatusPending,
	}
	if err := repo.Create(ctx, request); err != nil {
		if db.IsUniqueViolation(err, "") {
			return repo.FindByOrderAndSource(ctx, input.OrderID, input.Source)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "enqueue refund")
	}
	return request, nil
}

func (s *service) Execute(ctx context.Context, id uuid.UUID) (*models.RefundRequest, error) {
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "refund request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load refund request")
	}
	if request.Status == enums.RefundStatusCompleted {
		return request, nil
	}
	if request.Status != enums.RefundStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "refund request is not pending").
			WithDetails(map[string]any{"status": request.Status})
	}
	if request.Method != enums.RefundMethodGateway {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "refund requires a manual bank transfer")
	}

	transactionID, err := s.gateway.Refund(ctx, request.OrderID, request.AmountCents)
	if err != nil {
		s.logg.Error(s.logg.WithOrderID(ctx, request.OrderID.String()), "gateway refund failed, request stays pending", err)
		s.notifier.NotifyAdmin(ctx, "Gateway refund failed",
			fmt.Sprintf("Refund for order %s failed and needs attention: %v", request.OrderID, err), request.ID)
		return nil, err
	}
	request.Status = enums.RefundStatusCompleted
	request.TransactionID = &transactionID
	if err := s.repo.Save(ctx, request); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save refund request")
	}
	s.notifier.NotifyBuyer(ctx, request.BuyerID, "Refund issued",
		fmt.Sprintf("Your refund for order %s has been processed.", request.OrderID), request.OrderID)
	return request, nil
}

func (s *service) Complete(ctx context.Context, id uuid.UUID, transactionID string) (*models.RefundRequest, error) {
	if transactionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id required")
	}
	return s.finish(ctx, id, func(request *models.RefundRequest) {
		request.Status = enums.RefundStatusCompleted
		request.TransactionID = &transactionID
	})
}

func (s *service) Reject(ctx context.Context, id uuid.UUID, reason string) (*models.RefundRequest, error) {
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reject reason required")
	}
	return s.finish(ctx, id, func(request *models.RefundRequest) {
		request.Status = enums.RefundStatusRejected
		request.RejectReason = &reason
	})
}

func (s *service) ListPending(ctx context.Context) ([]models.RefundRequest, error) {
	rows, err := s.repo.ListByStatus(ctx, enums.RefundStatusPending)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending refunds")
	}
	return rows, nil
}

func (s *service) finish(ctx context.Context, id uuid.UUID, mutate func(request *models.RefundRequest)) (*models.RefundRequest, error) {
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "refund request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load refund request")
	}
	if request.Status != enums.RefundStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "refund request is not pending").
			WithDetails(map[string]any{"status": request.Status})
	}
	mutate(request)
	if err := s.repo.Save(ctx, request); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save refund request")
	}
	return request, nil
}
