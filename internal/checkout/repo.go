package checkout

import (
	"context"

	"github.com/anvo-dev/markethub-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Catalog is the read-only variant lookup checkout prices against. Stock
// verification here is advisory; the authoritative check happens under the
// allocator's row lock.
type Catalog interface {
	FindVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error)
}

type catalog struct {
	db *gorm.DB
}

// NewCatalog returns a Catalog backed by the product variants table.
func NewCatalog(db *gorm.DB) Catalog {
	return &catalog{db: db}
}

func (c *catalog) FindVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	if err := c.db.WithContext(ctx).First(&variant, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &variant, nil
}

// CartStore removes purchased lines from the buyer's saved cart.
type CartStore interface {
	RemoveLines(ctx context.Context, buyerID uuid.UUID, variantIDs []uuid.UUID) error
}

type cartStore struct {
	db *gorm.DB
}

// NewCartStore returns a CartStore backed by the cart lines table.
func NewCartStore(db *gorm.DB) CartStore {
	return &cartStore{db: db}
}

func (c *cartStore) RemoveLines(ctx context.Context, buyerID uuid.UUID, variantIDs []uuid.UUID) error {
	if len(variantIDs) == 0 {
		return nil
	}
	return c.db.WithContext(ctx).
		Where("buyer_id = ? AND variant_id IN ?", buyerID, variantIDs).
		Delete(&models.CartLine{}).Error
}
