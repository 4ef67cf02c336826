package refunds

import (
	"context"

	"github.com/anvo-dev/markethub-backend/pkg/db/models"
	"github.com/anvo-dev/markethub-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository manages persistence for the refund queue.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, request *models.RefundRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.RefundRequest, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.RefundRequest, error)
	FindByOrderAndSource(ctx context.Context, orderID uuid.UUID, source enums.RefundSource) (*models.RefundRequest, error)
	ListByStatus(ctx context.Context, status enums.RefundStatus) ([]models.RefundRequest, error)
	Save(ctx context.Context, request *models.RefundRequest) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a refund repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, request *models.RefundRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.RefundRequest, error) {
	var request models.RefundRequest
	if err := r.db.WithContext(ctx).First(&request, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.RefundRequest, error) {
	var request models.RefundRequest
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&request, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) FindByOrderAndSource(ctx context.Context, orderID uuid.UUID, source enums.RefundSource) (*models.RefundRequest, error) {
	var request models.RefundRequest
	err := r.db.WithContext(ctx).
		First(&request, "order_id = ? AND source = ?", orderID, source).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) ListByStatus(ctx context.Context, status enums.RefundStatus) ([]models.RefundRequest, error) {
	var rows []models.RefundRequest
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Save(ctx context.Context, request *models.RefundRequest) error {
	return r.db.WithContext(ctx).
		Model(request).
		Select("status", "transaction_id", "reject_reason").
		Updates(request).Error
}
