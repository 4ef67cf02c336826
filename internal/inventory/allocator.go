package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/anvo-dev/markethub-backend/pkg/db/models"
	pkgerrors "github.com/anvo-dev/markethub-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Allocator reserves and restores variant stock. Both operations lock the
// variant row, so concurrent checkouts of the same variant serialize and can
// never both succeed against insufficient stock.
type Allocator interface {
	Reserve(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, colorID *uuid.UUID, qty int) error
	Restore(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, colorID *uuid.UUID, qty int) error
}

type allocator struct{}

// NewAllocator returns the stock allocator.
func NewAllocator() Allocator {
	return allocator{}
}

func (allocator) Reserve(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, colorID *uuid.UUID, qty int) error {
	return adjustStock(ctx, tx, variantID, colorID, -qty)
}

func (allocator) Restore(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, colorID *uuid.UUID, qty int) error {
	return adjustStock(ctx, tx, variantID, colorID, qty)
}

func adjustStock(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, colorID *uuid.UUID, delta int) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "transaction required")
	}
	if delta == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var variant models.ProductVariant
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&variant, "id = ?", variantID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product variant not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock product variant")
	}

	if colorID != nil {
		idx := variant.Colors.Find(*colorID)
		if idx < 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "color option not found")
		}
		next := variant.Colors[idx].Stock + delta
		if next < 0 {
			return insufficientStock(variant.ID, variant.Colors[idx].Stock, -delta)
		}
		variant.Colors[idx].Stock = next
		variant.TotalStock = variant.Colors.TotalStock()
	} else {
		next := variant.TotalStock + delta
		if next < 0 {
			return insufficientStock(variant.ID, variant.TotalStock, -delta)
		}
		variant.TotalStock = next
	}

	err = tx.WithContext(ctx).
		Model(&variant).
		Select("total_stock", "colors").
		Updates(&variant).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update variant stock")
	}
	return nil
}

func insufficientStock(variantID uuid.UUID, available, requested int) error {
	return pkgerrors.New(
		pkgerrors.CodeValidation,
		fmt.Sprintf("insufficient stock for variant %s", variantID),
	).WithDetails(map[string]any{
		"variant_id": variantID,
		"available":  available,
		"requested":  requested,
	})
}
