package disputes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anvo-dev/markethub-backend/internal/notifications"
	"github.com/anvo-dev/markethub-backend/internal/orders"
	"github.com/anvo-dev/markethub-backend/internal/reconcile"
	"github.com/anvo-dev/markethub-backend/internal/refunds"
	"github.com/anvo-dev/markethub-backend/internal/returns"
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

// Message is one entry added to a dispute thread.
type Message struct {
	SenderID    uuid.UUID
	SenderType  enums.NotificationAudience
	Content     string
	Attachments []string
}

// Resolution is the admin ruling on a dispute.
type Resolution struct {
	Decision enums.DisputeDecision
	Reason   string
	// BuyerAmountCents is required for a partial refund and must be strictly
	// between zero and the return's refund amount.
	BuyerAmountCents int64
}

// Service is the dispute resolution engine. Both dispute types share the same
// entity; resolving is terminal and idempotent on replay.
type Service interface {
	// CreateRejectionDispute escalates a merchant-rejected return on the
	// buyer's behalf.
	CreateRejectionDispute(ctx context.Context, returnRequestID, buyerID uuid.UUID, message Message) (*models.Dispute, error)
	// CreateQualityDispute escalates returned goods the merchant claims are
	// damaged or incorrect.
	CreateQualityDispute(ctx context.Context, returnRequestID, merchantID uuid.UUID, message Message) (*models.Dispute, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	AddMessage(ctx context.Context, id uuid.UUID, message Message) (*models.Dispute, error)
	// Resolve applies the admin decision: it moves the return request, routes
	// the money to the winning side, and closes the dispute.
	Resolve(ctx context.Context, id uuid.UUID, resolution Resolution) (*models.Dispute, error)
}

type service struct {
	repo      Repository
	returns   returns.Service
	orders    orders.Service
	wallet    wallet.Service
	refunds   refunds.Service
	reconcile reconcile.Service
	notifier  notifications.Notifier
	tx        txRunner
	logg      *logger.Logger
}

// NewService wires the dispute engine.
func NewService(
	repo Repository,
	returnsSvc returns.Service,
	ordersSvc orders.Service,
	walletSvc wallet.Service,
	refundsSvc refunds.Service,
	reconcileSvc reconcile.Service,
	notifier notifications.Notifier,
	tx txRunner,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("dispute repository required")
	}
	if returnsSvc == nil {
		return nil, fmt.Errorf("return service required")
	}
	if ordersSvc == nil {
		return nil, fmt.Errorf("order service required")
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
		returns:   returnsSvc,
		orders:    ordersSvc,
		wallet:    walletSvc,
		refunds:   refundsSvc,
		reconcile: reconcileSvc,
		notifier:  notifier,
		tx:        tx,
		logg:      logg,
	}, nil
}

func (s *service) CreateRejectionDispute(ctx context.Context, returnRequestID, buyerID uuid.UUID, message Message) (*models.Dispute, error) {
	request, err := s.returns.Get(ctx, returnRequestID)
	if err != nil {
		return nil, err
	}
	if request.BuyerID != buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "return request belongs to another buyer")
	}
	if request.Status != enums.ReturnStatusRejected {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only rejected returns can be disputed").
			WithDetails(map[string]any{"status": request.Status})
	}
	return s.create(ctx, request, enums.DisputeTypeReturnRejection, message, func(tx *gorm.DB) error {
		_, err := s.returns.BeginRejectionDispute(ctx, tx, request.ID)
		return err
	})
}

func (s *service) CreateQualityDispute(ctx context.Context, returnRequestID, merchantID uuid.UUID, message Message) (*models.Dispute, error) {
	request, err := s.returns.Get(ctx, returnRequestID)
	if err != nil {
		return nil, err
	}
	if request.MerchantID != merchantID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "return request belongs to another merchant")
	}
	if request.Status != enums.ReturnStatusReturned {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only returned goods can be quality-disputed").
			WithDetails(map[string]any{"status": request.Status})
	}
	return s.create(ctx, request, enums.DisputeTypeReturnQuality, message, func(tx *gorm.DB) error {
		_, err := s.returns.BeginQualityDispute(ctx, tx, request.ID)
		return err
	})
}

func (s *service) create(ctx context.Context, request *models.ReturnRequest, disputeType enums.DisputeType, message Message, moveReturn func(tx *gorm.DB) error) (*models.Dispute, error) {
	if _, err := s.repo.FindActiveByReturn(ctx, request.ID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "return request already has an active dispute")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check active dispute")
	}

	dispute := &models.Dispute{
		ReturnRequestID: request.ID,
		OrderID:         request.OrderID,
		BuyerID:         request.BuyerID,
		MerchantID:      request.MerchantID,
		Type:            disputeType,
		Status:          enums.DisputeStatusOpen,
	}
	if message.Content != "" {
		dispute.Messages = types.DisputeMessages{newMessage(message)}
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := moveReturn(tx); err != nil {
			return err
		}
		if err := s.repo.WithTx(tx).Create(ctx, dispute); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create dispute")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyAdmin(ctx, "Dispute opened",
		fmt.Sprintf("A %s dispute was opened for order %s.", disputeType, request.OrderID), dispute.ID)
	return dispute, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	dispute, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "dispute not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dispute")
	}
	return dispute, nil
}

func (s *service) AddMessage(ctx context.Context, id uuid.UUID, message Message) (*models.Dispute, error) {
	if message.Content == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message content required")
	}
	var dispute *models.Dispute
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := s.lockDispute(ctx, repo, id)
		if err != nil {
			return err
		}
		if !current.Status.IsActive() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "dispute is no longer active").
				WithDetails(map[string]any{"status": current.Status})
		}
		if message.SenderID != current.BuyerID && message.SenderID != current.MerchantID &&
			message.SenderType != enums.NotificationAudienceAdmin {
			return pkgerrors.New(pkgerrors.CodeForbidden, "sender is not a party to this dispute")
		}
		current.Messages = append(current.Messages, newMessage(message))
		if current.Status == enums.DisputeStatusOpen {
			current.Status = enums.DisputeStatusInReview
		}
		if err := repo.Save(ctx, current); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save dispute")
		}
		dispute = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dispute, nil
}

func (s *service) Resolve(ctx context.Context, id uuid.UUID, resolution Resolution) (*models.Dispute, error) {
	dispute, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if dispute.Status == enums.DisputeStatusResolved {
		return dispute, nil
	}
	if !dispute.Status.IsActive() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "dispute is closed").
			WithDetails(map[string]any{"status": dispute.Status})
	}
	if !resolution.Decision.AppliesTo(dispute.Type) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("decision %s does not apply to a %s dispute", resolution.Decision, dispute.Type))
	}

	request, err := s.returns.Get(ctx, dispute.ReturnRequestID)
	if err != nil {
		return nil, err
	}
	if resolution.Decision == enums.DisputeDecisionPartialRefund {
		if resolution.BuyerAmountCents <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "partial refund amount must be positive")
		}
		if resolution.BuyerAmountCents >= request.RefundCents {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				"partial refund must be below the full amount; use reject_store for a full refund").
				WithDetails(map[string]any{
					"buyer_amount_cents": resolution.BuyerAmountCents,
					"refund_cents":       request.RefundCents,
				})
		}
	}

	order, err := s.orders.Get(ctx, dispute.OrderID)
	if err != nil {
		return nil, err
	}

	winner := winnerFor(resolution.Decision)
	resolvedAt := time.Now().UTC()
	decision := types.AdminDecision{
		Decision:         resolution.Decision,
		Reason:           resolution.Reason,
		BuyerAmountCents: resolution.BuyerAmountCents,
		DecidedAt:        resolvedAt,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := s.lockDispute(ctx, repo, id)
		if err != nil {
			return err
		}
		if current.Status == enums.DisputeStatusResolved {
			dispute = current
			return nil
		}

		if _, err := s.returns.ApplyAdminDecision(ctx, tx, dispute.ReturnRequestID, decision); err != nil {
			return err
		}
		if buyerAmount := buyerRefundFor(resolution, request); buyerAmount > 0 {
			_, err := s.refunds.Enqueue(ctx, tx, refunds.EnqueueInput{
				OrderID:       dispute.OrderID,
				Source:        enums.RefundSourceDispute,
				BuyerID:       dispute.BuyerID,
				AmountCents:   buyerAmount,
				PaymentMethod: order.PaymentMethod,
				BankInfo:      request.BankInfo,
			})
			if err != nil {
				return err
			}
		}

		current.Status = enums.DisputeStatusResolved
		current.Decision = &resolution.Decision
		current.DecisionReason = &resolution.Reason
		current.Winner = &winner
		current.ResolvedAt = &resolvedAt
		if err := repo.Save(ctx, current); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save dispute")
		}
		dispute = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.settle(ctx, dispute, request, order, resolution)
	s.notifier.NotifyBuyer(ctx, dispute.BuyerID, "Dispute resolved",
		fmt.Sprintf("The dispute for order %s was resolved: %s.", dispute.OrderID, resolution.Decision), dispute.ID)
	s.notifier.NotifyMerchant(ctx, dispute.MerchantID, "Dispute resolved",
		fmt.Sprintf("The dispute for order %s was resolved: %s.", dispute.OrderID, resolution.Decision), dispute.ID)
	return dispute, nil
}

// settle routes the money after the resolution committed. The resolved status
// is ground truth; a wallet failure here goes to the reconcile queue instead
// of rolling anything back.
func (s *service) settle(ctx context.Context, dispute *models.Dispute, request *models.ReturnRequest, order *models.Order, resolution Resolution) {
	var merchantAmount int64
	switch resolution.Decision {
	case enums.DisputeDecisionApproveStore:
		merchantAmount = request.RefundCents
	case enums.DisputeDecisionPartialRefund:
		merchantAmount = request.RefundCents - resolution.BuyerAmountCents
	case enums.DisputeDecisionRejectStore:
	default:
		return
	}

	if merchantAmount > 0 {
		if _, err := s.wallet.ReleaseToBalance(ctx, dispute.MerchantID, dispute.OrderID, merchantAmount); err != nil {
			ctx := s.logg.WithOrderID(ctx, dispute.OrderID.String())
			s.logg.Error(ctx, "merchant credit failed after dispute resolution, queued for reconciliation", err)
			s.reconcile.EnqueueWalletCredit(ctx, dispute.OrderID, dispute.MerchantID, merchantAmount, err)
			s.notifier.NotifyAdmin(ctx, "Wallet credit failed",
				fmt.Sprintf("Dispute for order %s resolved but the merchant credit of %d failed.", dispute.OrderID, merchantAmount), dispute.ID)
		}
	}
	s.clearEscrow(ctx, dispute, order, merchantAmount)
}

// clearEscrow deducts whatever the merchant award left behind in the order's
// escrowed revenue, so a buyer-favoring ruling does not strand pending funds.
func (s *service) clearEscrow(ctx context.Context, dispute *models.Dispute, order *models.Order, merchantAmount int64) {
	if !order.PaymentMethod.IsOnline() || order.PaymentStatus != enums.PaymentStatusPaid {
		return
	}
	residual := order.MerchantRevenueCents() - merchantAmount
	if residual <= 0 {
		return
	}
	if _, err := s.wallet.DeductPending(ctx, dispute.MerchantID, dispute.OrderID, residual); err != nil {
		ctx := s.logg.WithOrderID(ctx, dispute.OrderID.String())
		s.logg.Error(ctx, "escrow deduction failed after dispute resolution", err)
		s.notifier.NotifyAdmin(ctx, "Pending deduction failed",
			fmt.Sprintf("Dispute for order %s resolved but the escrow deduction of %d failed.", dispute.OrderID, residual), dispute.ID)
	}
}

func (s *service) lockDispute(ctx context.Context, repo Repository, id uuid.UUID) (*models.Dispute, error) {
	dispute, err := repo.FindByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "dispute not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dispute")
	}
	return dispute, nil
}

func newMessage(message Message) types.DisputeMessage {
	return types.DisputeMessage{
		SenderID:    message.SenderID,
		SenderType:  message.SenderType,
		Content:     message.Content,
		Attachments: message.Attachments,
		SentAt:      time.Now().UTC(),
	}
}

// buyerRefundFor returns how much the buyer is owed under a decision.
func buyerRefundFor(resolution Resolution, request *models.ReturnRequest) int64 {
	switch resolution.Decision {
	case enums.DisputeDecisionRejectStore:
		return request.RefundCents
	case enums.DisputeDecisionPartialRefund:
		return resolution.BuyerAmountCents
	}
	return 0
}

func winnerFor(decision enums.DisputeDecision) enums.DisputeWinner {
	switch decision {
	case enums.DisputeDecisionApproveReturn, enums.DisputeDecisionRejectStore:
		return enums.DisputeWinnerBuyer
	}
	// Rejecting the buyer's escalation, approving the store's claim, and a
	// partial refund all leave the store ahead.
	return enums.DisputeWinnerStore
}
