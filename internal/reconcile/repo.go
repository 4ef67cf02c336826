package reconcile

import (
	"context"

	"github.com/anvo-dev/markethub-backend/pkg/db/models"
	"github.com/anvo-dev/markethub-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository manages persistence for reconciliation tasks.
type Repository interface {
	Create(ctx context.Context, task *models.ReconcileTask) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.ReconcileTask, error)
	ListByStatus(ctx context.Context, status enums.ReconcileStatus) ([]models.ReconcileTask, error)
	Save(ctx context.Context, task *models.ReconcileTask) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a reconcile repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, task *models.ReconcileTask) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ReconcileTask, error) {
	var task models.ReconcileTask
	if err := r.db.WithContext(ctx).First(&task, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *repository) ListByStatus(ctx context.Context, status enums.ReconcileStatus) ([]models.ReconcileTask, error) {
	var rows []models.ReconcileTask
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Save(ctx context.Context, task *models.ReconcileTask) error {
	return r.db.WithContext(ctx).
		Model(task).
		Select("last_error", "attempts", "status", "resolved_at").
		Updates(map[string]any{
			"last_error":  task.LastError,
			"attempts":    task.Attempts,
			"status":      task.Status,
			"resolved_at": task.ResolvedAt,
		}).Error
}
