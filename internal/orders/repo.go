package orders

import (
	"context"
	"time"

	"github.com/anvo-dev/markethub-backend/pkg/db/models"
	"github.com/anvo-dev/markethub-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository manages persistence for orders and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// FindByIDForUpdate locks the order row for a status transition.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus, stamp *time.Time) error
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status enums.PaymentStatus) error
	SetReturnRequest(ctx context.Context, id uuid.UUID, returnRequestID *uuid.UUID) error
	// HasPriorOrders reports whether the buyer has any prior non-cancelled
	// order; promotions use it for new-buyer eligibility.
	HasPriorOrders(ctx context.Context, buyerID uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an order repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	var items []models.OrderItem
	if err := r.db.WithContext(ctx).Where("order_id = ?", id).Find(&items).Error; err != nil {
		return nil, err
	}
	order.Items = items
	return &order, nil
}

func (r *repository) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus, stamp *time.Time) error {
	updates := map[string]any{"status": status}
	switch status {
	case enums.OrderStatusDelivered:
		updates["delivered_at"] = stamp
	case enums.OrderStatusCompleted:
		updates["completed_at"] = stamp
	case enums.OrderStatusCancelled:
		updates["cancelled_at"] = stamp
	}
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status enums.PaymentStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		UpdateColumn("payment_status", status).Error
}

func (r *repository) SetReturnRequest(ctx context.Context, id uuid.UUID, returnRequestID *uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		UpdateColumn("return_request_id", returnRequestID).Error
}

func (r *repository) HasPriorOrders(ctx context.Context, buyerID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("buyer_id = ? AND status <> ?", buyerID, enums.OrderStatusCancelled).
		Count(&count).Error
	return count > 0, err
}
