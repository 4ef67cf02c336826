package wallet

import (
	"context"
	"errors"

	"github.com/anvo-dev/markethub-backend/pkg/db/models"
	"github.com/anvo-dev/markethub-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository manages wallet rows and their append-only entry ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// LockWallet loads the merchant's wallet under a row lock, creating it on
	// first use. Per-merchant mutations serialize on this lock.
	LockWallet(ctx context.Context, merchantID uuid.UUID) (*models.Wallet, error)
	SaveWallet(ctx context.Context, wallet *models.Wallet) error
	FindWallet(ctx context.Context, merchantID uuid.UUID) (*models.Wallet, error)
	HasEntry(ctx context.Context, merchantID, orderID uuid.UUID, op enums.WalletOperation) (bool, error)
	// EntryAmount returns the recorded amount for the (merchant, order,
	// operation) ledger entry, or zero when no such entry exists.
	EntryAmount(ctx context.Context, merchantID, orderID uuid.UUID, op enums.WalletOperation) (int64, error)
	CreateEntry(ctx context.Context, entry *models.WalletEntry) error
	ListEntries(ctx context.Context, merchantID uuid.UUID) ([]models.WalletEntry, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a wallet repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) LockWallet(ctx context.Context, merchantID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&wallet, "merchant_id = ?", merchantID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		wallet = models.Wallet{MerchantID: merchantID}
		if err := r.db.WithContext(ctx).Create(&wallet).Error; err != nil {
			return nil, err
		}
		return &wallet, nil
	}
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *repository) SaveWallet(ctx context.Context, wallet *models.Wallet) error {
	return r.db.WithContext(ctx).
		Model(wallet).
		Select("pending_cents", "balance_cents").
		Updates(wallet).Error
}

func (r *repository) FindWallet(ctx context.Context, merchantID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.WithContext(ctx).First(&wallet, "merchant_id = ?", merchantID).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *repository) HasEntry(ctx context.Context, merchantID, orderID uuid.UUID, op enums.WalletOperation) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.WalletEntry{}).
		Where("merchant_id = ? AND order_id = ? AND operation = ?", merchantID, orderID, op).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) EntryAmount(ctx context.Context, merchantID, orderID uuid.UUID, op enums.WalletOperation) (int64, error) {
	var entry models.WalletEntry
	err := r.db.WithContext(ctx).
		Where("merchant_id = ? AND order_id = ? AND operation = ?", merchantID, orderID, op).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return entry.AmountCents, nil
}

func (r *repository) CreateEntry(ctx context.Context, entry *models.WalletEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListEntries(ctx context.Context, merchantID uuid.UUID) ([]models.WalletEntry, error) {
	var entries []models.WalletEntry
	err := r.db.WithContext(ctx).
		Where("merchant_id = ?", merchantID).
		Order("created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
