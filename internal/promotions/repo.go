package promotions

import (
	"context"

	"github.com/anvo-dev/markethub-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository manages persistence for promotions and their usage records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByCode(ctx context.Context, code string) (*models.Promotion, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Promotion, error)
	// IncrementUsage bumps used_count while re-checking the usage limit. It
	// returns false when the limit was already exhausted.
	IncrementUsage(ctx context.Context, id uuid.UUID) (bool, error)
	CreateUsage(ctx context.Context, usage *models.PromotionUsage) error
	CountUsageByBuyer(ctx context.Context, promotionID, buyerID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a promotion repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.Promotion, error) {
	var promo models.Promotion
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&promo).Error; err != nil {
		return nil, err
	}
	return &promo, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Promotion, error) {
	var promo models.Promotion
	if err := r.db.WithContext(ctx).First(&promo, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &promo, nil
}

func (r *repository) IncrementUsage(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Promotion{}).
		Where("id = ? AND (usage_limit IS NULL OR used_count < usage_limit)", id).
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) CreateUsage(ctx context.Context, usage *models.PromotionUsage) error {
	return r.db.WithContext(ctx).Create(usage).Error
}

func (r *repository) CountUsageByBuyer(ctx context.Context, promotionID, buyerID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PromotionUsage{}).
		Where("promotion_id = ? AND buyer_id = ?", promotionID, buyerID).
		Count(&count).Error
	return count, err
}
