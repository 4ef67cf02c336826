package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/anvo-dev/markethub-backend/internal/wallet"
	"github.com/anvo-dev/markethub-backend/pkg/db/models"
	"github.com/anvo-dev/markethub-backend/pkg/enums"
	pkgerrors "github.com/anvo-dev/markethub-backend/pkg/errors"
	"github.com/anvo-dev/markethub-backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service is the repair queue for wallet credits that failed after an order
// was already marked completed. Completion never rolls back, so the missing
// credit is replayed from here.
type Service interface {
	// EnqueueWalletCredit records a failed merchant credit for later replay.
	// It must not fail the caller, so errors are logged and swallowed.
	EnqueueWalletCredit(ctx context.Context, orderID, merchantID uuid.UUID, amountCents int64, cause error)
	ListPending(ctx context.Context) ([]models.ReconcileTask, error)
	// Redrive replays the wallet credit for one task. The ledger's own
	// idempotency makes a duplicate replay harmless.
	Redrive(ctx context.Context, taskID uuid.UUID) (*models.ReconcileTask, error)
}

type service struct {
	repo   Repository
	wallet wallet.Service
	logg   *logger.Logger
}

// NewService wires the reconciliation queue.
func NewService(repo Repository, walletSvc wallet.Service, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reconcile repository required")
	}
	if walletSvc == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, wallet: walletSvc, logg: logg}, nil
}

func (s *service) EnqueueWalletCredit(ctx context.Context, orderID, merchantID uuid.UUID, amountCents int64, cause error) {
	task := &models.ReconcileTask{
		OrderID:     orderID,
		MerchantID:  merchantID,
		AmountCents: amountCents,
		Attempts:    1,
		Status:      enums.ReconcileStatusPending,
	}
	if cause != nil {
		task.LastError = cause.Error()
	}
	if err := s.repo.Create(ctx, task); err != nil {
		ctx = s.logg.WithOrderID(ctx, orderID.String())
		s.logg.Error(ctx, "failed to enqueue wallet credit reconciliation", err)
	}
}

func (s *service) ListPending(ctx context.Context) ([]models.ReconcileTask, error) {
	rows, err := s.repo.ListByStatus(ctx, enums.ReconcileStatusPending)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending reconcile tasks")
	}
	return rows, nil
}

func (s *service) Redrive(ctx context.Context, taskID uuid.UUID) (*models.ReconcileTask, error) {
	task, err := s.repo.FindByID(ctx, taskID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "reconcile task not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reconcile task")
	}
	if task.Status == enums.ReconcileStatusResolved {
		return task, nil
	}

	task.Attempts++
	if _, err := s.wallet.ReleaseToBalance(ctx, task.MerchantID, task.OrderID, task.AmountCents); err != nil {
		task.LastError = err.Error()
		if saveErr := s.repo.Save(ctx, task); saveErr != nil {
			s.logg.Error(ctx, "failed to record reconcile attempt", saveErr)
		}
		return nil, err
	}

	resolvedAt := time.Now().UTC()
	task.Status = enums.ReconcileStatusResolved
	task.ResolvedAt = &resolvedAt
	task.LastError = ""
	if err := s.repo.Save(ctx, task); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save reconcile task")
	}
	return task, nil
}
