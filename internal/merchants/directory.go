package merchants

import (
	"context"
	"errors"
	"fmt"

	"github.com/anvo-dev/markethub-backend/pkg/db/models"
	"github.com/anvo-dev/markethub-backend/pkg/enums"
	pkgerrors "github.com/anvo-dev/markethub-backend/pkg/errors"
	"github.com/anvo-dev/markethub-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MerchantDTO is the read-only view the settlement core needs of a seller.
type MerchantDTO struct {
	ID      uuid.UUID            `json:"id"`
	Name    string               `json:"name"`
	Status  enums.MerchantStatus `json:"status"`
	Address types.Address        `json:"address"`
}

// Region returns the merchant's shipping-origin region.
func (m MerchantDTO) Region() string {
	return m.Address.Region
}

// Directory is the read-only merchant lookup consumed by checkout and the
// return engine.
type Directory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*MerchantDTO, error)
}

type directory struct {
	db *gorm.DB
}

// NewDirectory returns a Directory backed by the merchants table.
func NewDirectory(db *gorm.DB) (Directory, error) {
	if db == nil {
		return nil, fmt.Errorf("database required")
	}
	return &directory{db: db}, nil
}

func (d *directory) GetByID(ctx context.Context, id uuid.UUID) (*MerchantDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merchant id required")
	}
	var merchant models.Merchant
	if err := d.db.WithContext(ctx).First(&merchant, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "merchant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load merchant")
	}
	return &MerchantDTO{
		ID:      merchant.ID,
		Name:    merchant.Name,
		Status:  merchant.Status,
		Address: merchant.Address,
	}, nil
}
