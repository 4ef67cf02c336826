package promotions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anvo-dev/markethub-backend/pkg/db"
	"github.com/anvo-dev/markethub-backend/pkg/db/models"
	"github.com/anvo-dev/markethub-backend/pkg/enums"
	pkgerrors "github.com/anvo-dev/markethub-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BuyerHistory answers the new-user-only eligibility question.
type BuyerHistory interface {
	HasPriorOrders(ctx context.Context, buyerID uuid.UUID) (bool, error)
}

// ValidationInput carries everything needed to decide whether a promotion may
// be applied to one merchant group.
type ValidationInput struct {
	BuyerID       uuid.UUID
	MerchantID    uuid.UUID
	SubtotalCents int64
	ExpectIssuer  enums.PromotionIssuer
	ExpectScope   enums.PromotionScope
	// RequiredUses is how many applications this checkout needs (a shipping
	// code applied to N merchant groups consumes N uses).
	RequiredUses int
	Now          time.Time
}

// Service validates, prices, and records promotion applications.
type Service interface {
	ResolveCode(ctx context.Context, code string) (*models.Promotion, error)
	Validate(ctx context.Context, promo *models.Promotion, input ValidationInput) error
	RecordUsage(ctx context.Context, tx *gorm.DB, promo *models.Promotion, buyerID, orderID uuid.UUID) error
}

type service struct {
	repo    Repository
	history BuyerHistory
}

// NewService wires the promotion service.
func NewService(repo Repository, history BuyerHistory) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("promotions repository required")
	}
	if history == nil {
		return nil, fmt.Errorf("buyer history required")
	}
	return &service{repo: repo, history: history}, nil
}

func (s *service) ResolveCode(ctx context.Context, code string) (*models.Promotion, error) {
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "promotion code required")
	}
	promo, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("promotion %q not found", code))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load promotion")
	}
	return promo, nil
}

func (s *service) Validate(ctx context.Context, promo *models.Promotion, input ValidationInput) error {
	if promo == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "promotion not found")
	}
	now := input.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	if promo.Status != enums.PromotionStatusActive {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("promotion %s is not active", promo.Code))
	}
	if now.Before(promo.StartAt) || now.After(promo.EndAt) {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("promotion %s is outside its validity window", promo.Code))
	}
	if input.ExpectIssuer != "" && promo.Issuer != input.ExpectIssuer {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("promotion %s issuer mismatch", promo.Code))
	}
	if input.ExpectScope != "" && promo.Scope != input.ExpectScope {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("promotion %s does not apply to %s", promo.Code, input.ExpectScope))
	}
	if promo.MerchantID != nil && input.MerchantID != uuid.Nil && *promo.MerchantID != input.MerchantID {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("promotion %s belongs to another merchant", promo.Code))
	}
	if promo.MinOrderCents != nil && input.SubtotalCents < *promo.MinOrderCents {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("order below minimum for promotion %s", promo.Code))
	}

	required := input.RequiredUses
	if required <= 0 {
		required = 1
	}
	if remaining := promo.RemainingUses(); remaining >= 0 && remaining < required {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("promotion %s usage exhausted", promo.Code))
	}

	if promo.UsageLimitPerUser != nil && input.BuyerID != uuid.Nil {
		used, err := s.repo.CountUsageByBuyer(ctx, promo.ID, input.BuyerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count promotion usage")
		}
		if used >= int64(*promo.UsageLimitPerUser) {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("promotion %s already used the maximum times", promo.Code))
		}
	}

	if promo.NewUserOnly && input.BuyerID != uuid.Nil {
		prior, err := s.history.HasPriorOrders(ctx, input.BuyerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check buyer history")
		}
		if prior {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("promotion %s is for new buyers only", promo.Code))
		}
	}

	return nil
}

// RecordUsage persists one application inside the caller's transaction. The
// unique (promotion, order) index makes replays a no-op, and the guarded
// increment re-checks the global usage limit at write time.
func (s *service) RecordUsage(ctx context.Context, tx *gorm.DB, promo *models.Promotion, buyerID, orderID uuid.UUID) error {
	if promo == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "promotion required")
	}
	repo := s.repo.WithTx(tx)

	usage := &models.PromotionUsage{
		PromotionID: promo.ID,
		OrderID:     orderID,
		BuyerID:     buyerID,
	}
	if err := repo.CreateUsage(ctx, usage); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record promotion usage")
	}

	bumped, err := repo.IncrementUsage(ctx, promo.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment promotion usage")
	}
	if !bumped {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("promotion %s usage exhausted", promo.Code))
	}
	return nil
}

// CalculateDiscount prices a promotion against a base amount. Percentage
// discounts round down to the minor unit and honor the per-application cap;
// fixed discounts never exceed the base.
func CalculateDiscount(baseCents int64, promo *models.Promotion) int64 {
	if promo == nil || baseCents <= 0 {
		return 0
	}
	var discount int64
	switch promo.DiscountType {
	case enums.DiscountTypePercentage:
		discount = decimal.NewFromInt(baseCents).
			Mul(decimal.NewFromInt(promo.DiscountValue)).
			Div(decimal.NewFromInt(100)).
			Floor().
			IntPart()
		if promo.MaxDiscountCents != nil && discount > *promo.MaxDiscountCents {
			discount = *promo.MaxDiscountCents
		}
	case enums.DiscountTypeFixed:
		discount = promo.DiscountValue
	default:
		return 0
	}
	if discount > baseCents {
		discount = baseCents
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}
