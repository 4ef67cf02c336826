package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/anvo-dev/markethub-backend/internal/checkout/helpers"
	"github.com/anvo-dev/markethub-backend/internal/inventory"
	"github.com/anvo-dev/markethub-backend/internal/merchants"
	"github.com/anvo-dev/markethub-backend/internal/notifications"
	"github.com/anvo-dev/markethub-backend/internal/orders"
	"github.com/anvo-dev/markethub-backend/internal/promotions"
	"github.com/anvo-dev/markethub-backend/internal/shipping"
	"github.com/anvo-dev/markethub-backend/pkg/db/models"
	"github.com/anvo-dev/markethub-backend/pkg/enums"
	pkgerrors "github.com/anvo-dev/markethub-backend/pkg/errors"
	"github.com/anvo-dev/markethub-backend/pkg/logger"
	"github.com/anvo-dev/markethub-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// LineSelection is one cart line the buyer is checking out.
type LineSelection struct {
	VariantID uuid.UUID
	ColorID   *uuid.UUID
	Qty       int
}

// Input carries one checkout request across all its merchant groups.
type Input struct {
	BuyerID         uuid.UUID
	Lines           []LineSelection
	ShippingAddress types.Address
	PaymentMethod   enums.PaymentMethod
	// MerchantPromoCodes maps a merchant id to the order code applied to that
	// merchant's group.
	MerchantPromoCodes map[uuid.UUID]string
	PlatformOrderCode  string
	ShippingCode       string
	// ShippingTargets limits the shipping code to specific merchant groups.
	// Empty means every group in the checkout.
	ShippingTargets []uuid.UUID
}

// Service is the checkout orchestrator. Validation failures abort the whole
// checkout before anything persists; a failure after earlier merchant groups
// already committed leaves those orders standing and reports partial success.
type Service interface {
	Checkout(ctx context.Context, input Input) ([]models.Order, error)
}

type service struct {
	catalog   Catalog
	cart      CartStore
	directory merchants.Directory
	shipping  *shipping.Calculator
	promos    promotions.Service
	allocator inventory.Allocator
	orders    orders.Repository
	notifier  notifications.Notifier
	tx        txRunner
	logg      *logger.Logger
}

// NewService wires the checkout orchestrator.
func NewService(
	catalog Catalog,
	cart CartStore,
	directory merchants.Directory,
	shippingCalc *shipping.Calculator,
	promos promotions.Service,
	allocator inventory.Allocator,
	ordersRepo orders.Repository,
	notifier notifications.Notifier,
	tx txRunner,
	logg *logger.Logger,
) (Service, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}
	if cart == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if directory == nil {
		return nil, fmt.Errorf("merchant directory required")
	}
	if shippingCalc == nil {
		return nil, fmt.Errorf("shipping calculator required")
	}
	if promos == nil {
		return nil, fmt.Errorf("promotion service required")
	}
	if allocator == nil {
		return nil, fmt.Errorf("inventory allocator required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		catalog:   catalog,
		cart:      cart,
		directory: directory,
		shipping:  shippingCalc,
		promos:    promos,
		allocator: allocator,
		orders:    ordersRepo,
		notifier:  notifier,
		tx:        tx,
		logg:      logg,
	}, nil
}

// groupPromos is the promotion set resolved for one merchant group.
type groupPromos struct {
	merchant *models.Promotion
	platform *models.Promotion
	shipping *models.Promotion
}

func (p groupPromos) ids() types.UUIDList {
	var ids types.UUIDList
	for _, promo := range []*models.Promotion{p.merchant, p.platform, p.shipping} {
		if promo != nil {
			ids = append(ids, promo.ID)
		}
	}
	return ids
}

func (p groupPromos) each() []*models.Promotion {
	var out []*models.Promotion
	for _, promo := range []*models.Promotion{p.merchant, p.platform, p.shipping} {
		if promo != nil {
			out = append(out, promo)
		}
	}
	return out
}

func (s *service) Checkout(ctx context.Context, input Input) ([]models.Order, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	ctx = s.logg.WithBuyerID(ctx, input.BuyerID.String())

	lines, merchantByID, err := s.resolveLines(ctx, input)
	if err != nil {
		return nil, err
	}
	groups := helpers.GroupByMerchant(lines)

	merchantPromos, err := s.resolveMerchantCodes(ctx, input, groups)
	if err != nil {
		return nil, err
	}
	platformPromo, err := s.resolvePlatformCode(ctx, input, groups, merchantPromos)
	if err != nil {
		return nil, err
	}
	shippingPromo, shippingTargets, err := s.resolveShippingCode(ctx, input, groups)
	if err != nil {
		return nil, err
	}

	created := make([]models.Order, 0, len(groups))
	for _, group := range groups {
		promos := groupPromos{merchant: merchantPromos[group.MerchantID]}
		// The platform order code targets the highest-subtotal group only.
		if platformPromo != nil && group.MerchantID == groups[0].MerchantID {
			promos.platform = platformPromo
		}
		if shippingPromo != nil && shippingTargets[group.MerchantID] && meetsMinOrder(shippingPromo, group.SubtotalCents()) {
			promos.shipping = shippingPromo
		}

		order, err := s.placeGroup(ctx, input, group, merchantByID[group.MerchantID], promos)
		if err != nil {
			if len(created) == 0 {
				return nil, err
			}
			createdIDs := make([]uuid.UUID, 0, len(created))
			for _, o := range created {
				createdIDs = append(createdIDs, o.ID)
			}
			return created, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "checkout partially completed").
				WithDetails(map[string]any{
					"created_order_ids":  createdIDs,
					"failed_merchant_id": group.MerchantID,
				})
		}
		created = append(created, *order)
	}

	s.clearCart(ctx, input, created)
	for _, order := range created {
		s.notifier.NotifyBuyer(ctx, order.BuyerID, "Order placed",
			fmt.Sprintf("Your order %s has been placed.", order.ID), order.ID)
		s.notifier.NotifyMerchant(ctx, order.MerchantID, "New order",
			fmt.Sprintf("You received a new order %s.", order.ID), order.ID)
	}
	return created, nil
}

func validateInput(input Input) error {
	if input.BuyerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	if !input.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if len(input.Lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "no cart lines selected")
	}
	for _, line := range input.Lines {
		if line.VariantID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "variant id required")
		}
		if line.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
	}
	return input.ShippingAddress.Validate()
}

// resolveLines loads every variant, resolves the color-specific price, checks
// advisory stock, and confirms the owning merchant can sell.
func (s *service) resolveLines(ctx context.Context, input Input) ([]helpers.Line, map[uuid.UUID]*merchants.MerchantDTO, error) {
	merchantByID := make(map[uuid.UUID]*merchants.MerchantDTO)
	lines := make([]helpers.Line, 0, len(input.Lines))

	for _, selection := range input.Lines {
		variant, err := s.catalog.FindVariant(ctx, selection.VariantID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "product variant not found").
					WithDetails(map[string]any{"variant_id": selection.VariantID})
			}
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product variant")
		}

		price := variant.PriceCents
		available := variant.TotalStock
		if selection.ColorID != nil {
			idx := variant.Colors.Find(*selection.ColorID)
			if idx < 0 {
				return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "color option not found").
					WithDetails(map[string]any{"variant_id": variant.ID, "color_id": *selection.ColorID})
			}
			if variant.Colors[idx].PriceCents > 0 {
				price = variant.Colors[idx].PriceCents
			}
			available = variant.Colors[idx].Stock
		}
		if available < selection.Qty {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("insufficient stock for variant %s", variant.ID)).
				WithDetails(map[string]any{
					"variant_id": variant.ID,
					"available":  available,
					"requested":  selection.Qty,
				})
		}

		merchant, ok := merchantByID[variant.MerchantID]
		if !ok {
			merchant, err = s.directory.GetByID(ctx, variant.MerchantID)
			if err != nil {
				return nil, nil, err
			}
			merchantByID[variant.MerchantID] = merchant
		}
		if !merchant.Status.CanSell() {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("merchant %s is not available", merchant.Name)).
				WithDetails(map[string]any{"merchant_id": merchant.ID, "status": merchant.Status})
		}

		lines = append(lines, helpers.Line{
			MerchantID:     variant.MerchantID,
			VariantID:      variant.ID,
			ColorID:        selection.ColorID,
			Name:           variant.Name,
			Qty:            selection.Qty,
			UnitPriceCents: price,
			WeightGrams:    variant.WeightGrams,
		})
	}
	return lines, merchantByID, nil
}

func (s *service) resolveMerchantCodes(ctx context.Context, input Input, groups []helpers.Group) (map[uuid.UUID]*models.Promotion, error) {
	resolved := make(map[uuid.UUID]*models.Promotion, len(input.MerchantPromoCodes))
	for merchantID, code := range input.MerchantPromoCodes {
		group := findGroup(groups, merchantID)
		if group == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				"promotion code supplied for a merchant not in this checkout").
				WithDetails(map[string]any{"merchant_id": merchantID})
		}
		promo, err := s.promos.ResolveCode(ctx, code)
		if err != nil {
			return nil, err
		}
		err = s.promos.Validate(ctx, promo, promotions.ValidationInput{
			BuyerID:       input.BuyerID,
			MerchantID:    merchantID,
			SubtotalCents: group.SubtotalCents(),
			ExpectScope:   enums.PromotionScopeOrder,
			RequiredUses:  1,
		})
		if err != nil {
			return nil, err
		}
		resolved[merchantID] = promo
	}
	return resolved, nil
}

// resolvePlatformCode validates the platform order code against the group it
// will apply to: the highest-subtotal group, priced after that group's
// merchant discount.
func (s *service) resolvePlatformCode(ctx context.Context, input Input, groups []helpers.Group, merchantPromos map[uuid.UUID]*models.Promotion) (*models.Promotion, error) {
	if input.PlatformOrderCode == "" {
		return nil, nil
	}
	promo, err := s.promos.ResolveCode(ctx, input.PlatformOrderCode)
	if err != nil {
		return nil, err
	}
	target := groups[0]
	base := target.SubtotalCents() - promotions.CalculateDiscount(target.SubtotalCents(), merchantPromos[target.MerchantID])
	err = s.promos.Validate(ctx, promo, promotions.ValidationInput{
		BuyerID:       input.BuyerID,
		SubtotalCents: base,
		ExpectIssuer:  enums.PromotionIssuerPlatform,
		ExpectScope:   enums.PromotionScopeOrder,
		RequiredUses:  1,
	})
	if err != nil {
		return nil, err
	}
	return promo, nil
}

// resolveShippingCode validates the shipping code once for eligibility and
// usage headroom across every target group. The per-group minimum-order check
// happens at application time against each group's raw subtotal.
func (s *service) resolveShippingCode(ctx context.Context, input Input, groups []helpers.Group) (*models.Promotion, map[uuid.UUID]bool, error) {
	if input.ShippingCode == "" {
		return nil, nil, nil
	}

	targets := make(map[uuid.UUID]bool)
	if len(input.ShippingTargets) == 0 {
		for _, group := range groups {
			targets[group.MerchantID] = true
		}
	} else {
		for _, merchantID := range input.ShippingTargets {
			if findGroup(groups, merchantID) == nil {
				return nil, nil, pkgerrors.New(pkgerrors.CodeValidation,
					"shipping code targets a merchant not in this checkout").
					WithDetails(map[string]any{"merchant_id": merchantID})
			}
			targets[merchantID] = true
		}
	}

	promo, err := s.promos.ResolveCode(ctx, input.ShippingCode)
	if err != nil {
		return nil, nil, err
	}
	var maxSubtotal int64
	for _, group := range groups {
		if targets[group.MerchantID] && group.SubtotalCents() > maxSubtotal {
			maxSubtotal = group.SubtotalCents()
		}
	}
	err = s.promos.Validate(ctx, promo, promotions.ValidationInput{
		BuyerID:       input.BuyerID,
		SubtotalCents: maxSubtotal,
		ExpectIssuer:  enums.PromotionIssuerPlatform,
		ExpectScope:   enums.PromotionScopeShipping,
		RequiredUses:  len(targets),
	})
	if err != nil {
		return nil, nil, err
	}
	return promo, targets, nil
}

// placeGroup prices one merchant group and persists its order atomically with
// the stock deduction and promotion usage.
func (s *service) placeGroup(ctx context.Context, input Input, group helpers.Group, merchant *merchants.MerchantDTO, promos groupPromos) (*models.Order, error) {
	fee := s.shipping.Fee(merchant.Region(), input.ShippingAddress.Region, group.WeightGrams())
	pricing := helpers.ResolvePricing(helpers.PricingInput{
		SubtotalCents:    group.SubtotalCents(),
		ShippingFeeCents: fee,
		MerchantPromo:    promos.merchant,
		PlatformPromo:    promos.platform,
		ShippingPromo:    promos.shipping,
	})

	address := input.ShippingAddress
	order := &models.Order{
		BuyerID:               input.BuyerID,
		MerchantID:            group.MerchantID,
		SubtotalCents:         pricing.SubtotalCents,
		ShippingFeeCents:      pricing.ShippingFeeCents,
		StoreDiscountCents:    pricing.StoreDiscountCents,
		PlatformDiscountCents: pricing.PlatformDiscountCents,
		CommissionCents:       pricing.CommissionCents,
		TotalCents:            pricing.TotalCents,
		AppliedPromotionIDs:   promos.ids(),
		PaymentMethod:         input.PaymentMethod,
		PaymentStatus:         enums.PaymentStatusUnpaid,
		Status:                enums.OrderStatusPending,
		ShippingAddress:       &address,
	}
	for _, line := range group.Lines {
		order.Items = append(order.Items, models.OrderItem{
			VariantID:      line.VariantID,
			ColorID:        line.ColorID,
			Name:           line.Name,
			Qty:            line.Qty,
			UnitPriceCents: line.UnitPriceCents,
			WeightGrams:    line.WeightGrams,
		})
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		for _, line := range group.Lines {
			if err := s.allocator.Reserve(ctx, tx, line.VariantID, line.ColorID, line.Qty); err != nil {
				return err
			}
		}
		if err := s.orders.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		for _, promo := range promos.each() {
			if err := s.promos.RecordUsage(ctx, tx, promo, input.BuyerID, order.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// clearCart drops the purchased lines from the saved cart. Best effort: the
// orders already exist, so a failure here is only logged.
func (s *service) clearCart(ctx context.Context, input Input, created []models.Order) {
	variantIDs := make([]uuid.UUID, 0, len(input.Lines))
	for _, order := range created {
		for _, item := range order.Items {
			variantIDs = append(variantIDs, item.VariantID)
		}
	}
	if err := s.cart.RemoveLines(ctx, input.BuyerID, variantIDs); err != nil {
		s.logg.Error(ctx, "failed to clear purchased cart lines", err)
	}
}

func findGroup(groups []helpers.Group, merchantID uuid.UUID) *helpers.Group {
	for i := range groups {
		if groups[i].MerchantID == merchantID {
			return &groups[i]
		}
	}
	return nil
}

func meetsMinOrder(promo *models.Promotion, subtotalCents int64) bool {
	return promo.MinOrderCents == nil || subtotalCents >= *promo.MinOrderCents
}
