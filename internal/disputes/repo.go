package disputes

import (
	"context"

	"github.com/anvo-dev/markethub-backend/pkg/db/models"
	"github.com/anvo-dev/markethub-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository manages persistence for disputes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, dispute *models.Dispute) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	// FindActiveByReturn returns the open or in-review dispute for a return
	// request, if any.
	FindActiveByReturn(ctx context.Context, returnRequestID uuid.UUID) (*models.Dispute, error)
	Save(ctx context.Context, dispute *models.Dispute) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a dispute repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, dispute *models.Dispute) error {
	return r.db.WithContext(ctx).Create(dispute).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	var dispute models.Dispute
	if err := r.db.WithContext(ctx).First(&dispute, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &dispute, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	var dispute models.Dispute
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&dispute, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &dispute, nil
}

func (r *repository) FindActiveByReturn(ctx context.Context, returnRequestID uuid.UUID) (*models.Dispute, error) {
	active := []enums.DisputeStatus{enums.DisputeStatusOpen, enums.DisputeStatusInReview}
	var dispute models.Dispute
	err := r.db.WithContext(ctx).
		Where("return_request_id = ? AND status IN ?", returnRequestID, active).
		First(&dispute).Error
	if err != nil {
		return nil, err
	}
	return &dispute, nil
}

func (r *repository) Save(ctx context.Context, dispute *models.Dispute) error {
	return r.db.WithContext(ctx).
		Model(dispute).
		Select("status", "messages", "decision", "decision_reason", "winner", "resolved_at").
		Updates(dispute).Error
}
