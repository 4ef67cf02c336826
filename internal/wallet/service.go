package wallet

import (
	"context"
	"fmt"

	"github.com/anvo-dev/markethub-backend/pkg/db/models"
	"github.com/anvo-dev/markethub-backend/pkg/enums"
	pkgerrors "github.com/anvo-dev/markethub-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service is the merchant wallet ledger. Every operation is atomic, serialized
// per merchant by a row lock, and idempotent per (merchant, order, operation):
// replaying an already-recorded operation returns the current wallet unchanged.
type Service interface {
	AddPending(ctx context.Context, merchantID, orderID uuid.UUID, amountCents int64) (*models.Wallet, error)
	DeductPending(ctx context.Context, merchantID, orderID uuid.UUID, amountCents int64) (*models.Wallet, error)
	// ReleaseToBalance credits order funds to the withdrawable balance,
	// draining whatever is still escrowed for that order from pending first.
	// When the amount exceeds the order's escrowed share (a dispute award
	// topped up by the platform) or nothing was ever pending (cash on
	// delivery), the remainder is credited directly.
	ReleaseToBalance(ctx context.Context, merchantID, orderID uuid.UUID, amountCents int64) (*models.Wallet, error)
	CreditBalance(ctx context.Context, merchantID, orderID uuid.UUID, amountCents int64, note string) (*models.Wallet, error)
	RecordCommission(ctx context.Context, merchantID, orderID uuid.UUID, amountCents int64) error
	RecordDiscountLoss(ctx context.Context, merchantID, orderID uuid.UUID, amountCents int64) error
	Statement(ctx context.Context, merchantID uuid.UUID) (*models.Wallet, []models.WalletEntry, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService wires the wallet ledger.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) AddPending(ctx context.Context, merchantID, orderID uuid.UUID, amountCents int64) (*models.Wallet, error) {
	return s.apply(ctx, merchantID, orderID, enums.WalletOperationAddPending, amountCents, "", func(w *models.Wallet) error {
		w.PendingCents += amountCents
		return nil
	})
}

func (s *service) DeductPending(ctx context.Context, merchantID, orderID uuid.UUID, amountCents int64) (*models.Wallet, error) {
	return s.apply(ctx, merchantID, orderID, enums.WalletOperationDeductPending, amountCents, "", func(w *models.Wallet) error {
		if w.PendingCents < amountCents {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "deduction exceeds pending amount")
		}
		w.PendingCents -= amountCents
		return nil
	})
}

func (s *service) ReleaseToBalance(ctx context.Context, merchantID, orderID uuid.UUID, amountCents int64) (*models.Wallet, error) {
	if err := validateOp(merchantID, orderID, amountCents); err != nil {
		return nil, err
	}

	var result *models.Wallet
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		wallet, err := repo.LockWallet(ctx, merchantID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock wallet")
		}

		done, err := repo.HasEntry(ctx, merchantID, orderID, enums.WalletOperationRelease)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check wallet entry")
		}
		if done {
			result = wallet
			return nil
		}

		escrowed, err := repo.EntryAmount(ctx, merchantID, orderID, enums.WalletOperationAddPending)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check pending entry")
		}
		deducted, err := repo.EntryAmount(ctx, merchantID, orderID, enums.WalletOperationDeductPending)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check deduction entry")
		}

		// Only the order's own escrow leaves pending; other orders' funds are
		// untouched even when the wallet-level pending balance is larger.
		fromPending := escrowed - deducted
		if fromPending > amountCents {
			fromPending = amountCents
		}
		if fromPending > wallet.PendingCents {
			fromPending = wallet.PendingCents
		}
		if fromPending > 0 {
			wallet.PendingCents -= fromPending
		}
		wallet.BalanceCents += amountCents

		if err := repo.SaveWallet(ctx, wallet); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save wallet")
		}
		entry := &models.WalletEntry{
			MerchantID:  merchantID,
			OrderID:     orderID,
			Operation:   enums.WalletOperationRelease,
			AmountCents: amountCents,
		}
		if err := repo.CreateEntry(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record wallet entry")
		}
		result = wallet
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) CreditBalance(ctx context.Context, merchantID, orderID uuid.UUID, amountCents int64, note string) (*models.Wallet, error) {
	return s.apply(ctx, merchantID, orderID, enums.WalletOperationCreditBalance, amountCents, note, func(w *models.Wallet) error {
		w.BalanceCents += amountCents
		return nil
	})
}

func (s *service) RecordCommission(ctx context.Context, merchantID, orderID uuid.UUID, amountCents int64) error {
	if amountCents == 0 {
		return nil
	}
	_, err := s.apply(ctx, merchantID, orderID, enums.WalletOperationCommission, amountCents, "platform commission", func(w *models.Wallet) error {
		return nil
	})
	return err
}

func (s *service) RecordDiscountLoss(ctx context.Context, merchantID, orderID uuid.UUID, amountCents int64) error {
	if amountCents == 0 {
		return nil
	}
	_, err := s.apply(ctx, merchantID, orderID, enums.WalletOperationDiscountLoss, amountCents, "merchant-funded discount", func(w *models.Wallet) error {
		return nil
	})
	return err
}

func (s *service) Statement(ctx context.Context, merchantID uuid.UUID) (*models.Wallet, []models.WalletEntry, error) {
	if merchantID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "merchant id required")
	}
	wallet, err := s.repo.FindWallet(ctx, merchantID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			wallet = &models.Wallet{MerchantID: merchantID}
		} else {
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
		}
	}
	entries, err := s.repo.ListEntries(ctx, merchantID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wallet entries")
	}
	return wallet, entries, nil
}

// apply runs one idempotent ledger operation: lock wallet, skip if the entry
// already exists, mutate, persist wallet and entry together.
func (s *service) apply(
	ctx context.Context,
	merchantID, orderID uuid.UUID,
	op enums.WalletOperation,
	amountCents int64,
	note string,
	mutate func(w *models.Wallet) error,
) (*models.Wallet, error) {
	if err := validateOp(merchantID, orderID, amountCents); err != nil {
		return nil, err
	}

	var result *models.Wallet
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		wallet, err := repo.LockWallet(ctx, merchantID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock wallet")
		}

		done, err := repo.HasEntry(ctx, merchantID, orderID, op)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check wallet entry")
		}
		if done {
			result = wallet
			return nil
		}

		if err := mutate(wallet); err != nil {
			return err
		}
		if wallet.PendingCents < 0 || wallet.BalanceCents < 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "wallet balance would go negative")
		}

		if err := repo.SaveWallet(ctx, wallet); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save wallet")
		}
		entry := &models.WalletEntry{
			MerchantID:  merchantID,
			OrderID:     orderID,
			Operation:   op,
			AmountCents: amountCents,
			Note:        note,
		}
		if err := repo.CreateEntry(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record wallet entry")
		}
		result = wallet
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func validateOp(merchantID, orderID uuid.UUID, amountCents int64) error {
	if merchantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "merchant id required")
	}
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if amountCents <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	return nil
}
