package returns

import (
	"context"

	"github.com/anvo-dev/markethub-backend/pkg/db/models"
	"github.com/anvo-dev/markethub-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository manages persistence for return requests and their shipments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, request *models.ReturnRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.ReturnRequest, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.ReturnRequest, error)
	// FindActiveByOrder returns the order's non-terminal request, if any.
	FindActiveByOrder(ctx context.Context, orderID uuid.UUID) (*models.ReturnRequest, error)
	Save(ctx context.Context, request *models.ReturnRequest) error
	CreateShipment(ctx context.Context, shipment *models.ReturnShipment) error
	FindShipmentByID(ctx context.Context, id uuid.UUID) (*models.ReturnShipment, error)
	FindShipmentByReturn(ctx context.Context, returnRequestID uuid.UUID) (*models.ReturnShipment, error)
	SaveShipment(ctx context.Context, shipment *models.ReturnShipment) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a return repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, request *models.ReturnRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ReturnRequest, error) {
	var request models.ReturnRequest
	if err := r.db.WithContext(ctx).First(&request, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.ReturnRequest, error) {
	var request models.ReturnRequest
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&request, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) FindActiveByOrder(ctx context.Context, orderID uuid.UUID) (*models.ReturnRequest, error) {
	terminal := []enums.ReturnStatus{
		enums.ReturnStatusRefunded,
		enums.ReturnStatusRefundToStore,
		enums.ReturnStatusPartialRefund,
		enums.ReturnStatusClosed,
	}
	var request models.ReturnRequest
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND status NOT IN ?", orderID, terminal).
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) Save(ctx context.Context, request *models.ReturnRequest) error {
	return r.db.WithContext(ctx).
		Model(request).
		Select("status", "bank_info", "store_response", "admin_decision").
		Updates(request).Error
}

func (r *repository) CreateShipment(ctx context.Context, shipment *models.ReturnShipment) error {
	return r.db.WithContext(ctx).Create(shipment).Error
}

func (r *repository) FindShipmentByID(ctx context.Context, id uuid.UUID) (*models.ReturnShipment, error) {
	var shipment models.ReturnShipment
	if err := r.db.WithContext(ctx).First(&shipment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &shipment, nil
}

func (r *repository) FindShipmentByReturn(ctx context.Context, returnRequestID uuid.UUID) (*models.ReturnShipment, error) {
	var shipment models.ReturnShipment
	err := r.db.WithContext(ctx).
		Where("return_request_id = ?", returnRequestID).
		Order("created_at DESC").
		First(&shipment).Error
	if err != nil {
		return nil, err
	}
	return &shipment, nil
}

func (r *repository) SaveShipment(ctx context.Context, shipment *models.ReturnShipment) error {
	return r.db.WithContext(ctx).
		Model(shipment).
		Select("status", "returned_at").
		Updates(map[string]any{
			"status":      shipment.Status,
			"returned_at": shipment.ReturnedAt,
		}).Error
}
