package checkout

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/anvo-dev/markethub-backend/internal/inventory"
	"github.com/anvo-dev/markethub-backend/internal/merchants"
	"github.com/anvo-dev/markethub-backend/internal/orders"
	"github.com/anvo-dev/markethub-backend/internal/promotions"
	"github.com/anvo-dev/markethub-backend/internal/shipping"
	"github.com/anvo-dev/markethub-backend/pkg/db/models"
	"github.com/anvo-dev/markethub-backend/pkg/enums"
	pkgerrors "github.com/anvo-dev/markethub-backend/pkg/errors"
	"github.com/anvo-dev/markethub-backend/pkg/logger"
	"github.com/anvo-dev/markethub-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type gormRunner struct {
	db *gorm.DB
}

func (r gormRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type fakeDirectory struct {
	regions  map[uuid.UUID]string
	statuses map[uuid.UUID]enums.MerchantStatus
}

func (f *fakeDirectory) GetByID(ctx context.Context, id uuid.UUID) (*merchants.MerchantDTO, error) {
	status, ok := f.statuses[id]
	if !ok {
		status = enums.MerchantStatusActive
	}
	region := f.regions[id]
	if region == "" {
		region = "hanoi"
	}
	return &merchants.MerchantDTO{
		ID:      id,
		Name:    "checkout test store",
		Status:  status,
		Address: types.Address{Line1: "1 Hang Bac", Region: region},
	}, nil
}

type fakeNotifier struct {
	titles []string
}

func (f *fakeNotifier) NotifyBuyer(ctx context.Context, buyerID uuid.UUID, title, body string, refID uuid.UUID) {
	f.titles = append(f.titles, title)
}

func (f *fakeNotifier) NotifyMerchant(ctx context.Context, merchantID uuid.UUID, title, body string, refID uuid.UUID) {
	f.titles = append(f.titles, title)
}

func (f *fakeNotifier) NotifyAdmin(ctx context.Context, title, body string, refID uuid.UUID) {
	f.titles = append(f.titles, title)
}

type testHarness struct {
	db        *gorm.DB
	svc       Service
	directory *fakeDirectory
	notifier  *fakeNotifier
	buyerID   uuid.UUID
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	dsn := "file:checkout_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE product_variants (
  id TEXT PRIMARY KEY,
  merchant_id TEXT NOT NULL,
  name TEXT NOT NULL,
  price_cents INTEGER NOT NULL,
  total_stock INTEGER NOT NULL DEFAULT 0,
  weight_grams INTEGER NOT NULL DEFAULT 0,
  colors TEXT,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE orders (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(4)) || '-' || hex(randomblob(2)) || '-' || hex(randomblob(2)) || '-' || hex(randomblob(2)) || '-' || hex(randomblob(6)))),
  buyer_id TEXT NOT NULL,
  merchant_id TEXT NOT NULL,
  subtotal_cents INTEGER NOT NULL,
  shipping_fee_cents INTEGER NOT NULL DEFAULT 0,
  store_discount_cents INTEGER NOT NULL DEFAULT 0,
  platform_discount_cents INTEGER NOT NULL DEFAULT 0,
  commission_cents INTEGER NOT NULL DEFAULT 0,
  total_cents INTEGER NOT NULL,
  applied_promotion_ids TEXT,
  payment_method TEXT NOT NULL,
  payment_status TEXT NOT NULL DEFAULT 'unpaid',
  status TEXT NOT NULL DEFAULT 'pending',
  shipping_address TEXT,
  return_request_id TEXT,
  delivered_at DATETIME,
  completed_at DATETIME,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE order_items (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(4)) || '-' || hex(randomblob(2)) || '-' || hex(randomblob(2)) || '-' || hex(randomblob(2)) || '-' || hex(randomblob(6)))),
  order_id TEXT NOT NULL,
  variant_id TEXT NOT NULL,
  color_id TEXT,
  name TEXT NOT NULL,
  qty INTEGER NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  weight_grams INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME
);
CREATE TABLE promotions (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  issuer TEXT NOT NULL,
  scope TEXT NOT NULL,
  discount_type TEXT NOT NULL,
  discount_value INTEGER NOT NULL,
  max_discount_cents INTEGER,
  min_order_cents INTEGER,
  usage_limit INTEGER,
  used_count INTEGER NOT NULL DEFAULT 0,
  usage_limit_per_user INTEGER,
  new_user_only INTEGER NOT NULL DEFAULT 0,
  start_at DATETIME NOT NULL,
  end_at DATETIME NOT NULL,
  status TEXT NOT NULL DEFAULT 'active',
  merchant_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE promotion_usages (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(4)) || '-' || hex(randomblob(2)) || '-' || hex(randomblob(2)) || '-' || hex(randomblob(2)) || '-' || hex(randomblob(6)))),
  promotion_id TEXT NOT NULL,
  order_id TEXT NOT NULL,
  buyer_id TEXT NOT NULL,
  created_at DATETIME
);
CREATE UNIQUE INDEX idx_promotion_usage_order ON promotion_usages (promotion_id, order_id);
CREATE TABLE cart_lines (
  id TEXT PRIMARY KEY,
  buyer_id TEXT NOT NULL,
  variant_id TEXT NOT NULL,
  color_id TEXT,
  qty INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)

	h := &testHarness{
		db: db,
		directory: &fakeDirectory{
			regions:  map[uuid.UUID]string{},
			statuses: map[uuid.UUID]enums.MerchantStatus{},
		},
		notifier: &fakeNotifier{},
		buyerID:  uuid.New(),
	}

	ordersRepo := orders.NewRepository(db)
	promosSvc, err := promotions.NewService(promotions.NewRepository(db), ordersRepo)
	require.NoError(t, err)

	logg := logger.New(logger.Options{ServiceName: "checkout-test", Output: io.Discard})
	svc, err := NewService(
		NewCatalog(db),
		NewCartStore(db),
		h.directory,
		shipping.NewCalculator(shipping.DefaultZones()),
		promosSvc,
		inventory.NewAllocator(),
		ordersRepo,
		h.notifier,
		gormRunner{db: db},
		logg,
	)
	require.NoError(t, err)
	h.svc = svc
	return h
}

func (h *testHarness) seedVariant(t *testing.T, merchantID uuid.UUID, priceCents int64, stock, weightGrams int) *models.ProductVariant {
	t.Helper()
	variant := &models.ProductVariant{
		ID:          uuid.New(),
		MerchantID:  merchantID,
		Name:        "linen shirt",
		PriceCents:  priceCents,
		TotalStock:  stock,
		WeightGrams: weightGrams,
	}
	require.NoError(t, h.db.Create(variant).Error)
	return variant
}

func (h *testHarness) seedPromo(t *testing.T, mutate func(p *models.Promotion)) *models.Promotion {
	t.Helper()
	promo := &models.Promotion{
		ID:            uuid.New(),
		Code:          "CODE-" + uuid.NewString()[:8],
		Issuer:        enums.PromotionIssuerPlatform,
		Scope:         enums.PromotionScopeOrder,
		DiscountType:  enums.DiscountTypeFixed,
		DiscountValue: 20_000,
		StartAt:       time.Now().Add(-time.Hour),
		EndAt:         time.Now().Add(time.Hour),
		Status:        enums.PromotionStatusActive,
	}
	if mutate != nil {
		mutate(promo)
	}
	require.NoError(t, h.db.Create(promo).Error)
	return promo
}

func (h *testHarness) address() types.Address {
	return types.Address{Line1: "9 Nguyen Trai", Region: "hanoi"}
}

func (h *testHarness) stock(t *testing.T, variantID uuid.UUID) int {
	t.Helper()
	var variant models.ProductVariant
	require.NoError(t, h.db.First(&variant, "id = ?", variantID).Error)
	return variant.TotalStock
}

func TestCheckoutSingleMerchant(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	merchantID := uuid.New()
	variant := h.seedVariant(t, merchantID, 150_000, 10, 400)

	created, err := h.svc.Checkout(context.Background(), Input{
		BuyerID:         h.buyerID,
		Lines:           []LineSelection{{VariantID: variant.ID, Qty: 2}},
		ShippingAddress: h.address(),
		PaymentMethod:   enums.PaymentMethodCOD,
	})
	require.NoError(t, err)
	require.Len(t, created, 1)

	order := created[0]
	require.Equal(t, int64(300_000), order.SubtotalCents)
	// Merchant and buyer share a region, so the base fee applies.
	require.Equal(t, int64(15_000), order.ShippingFeeCents)
	require.Equal(t, int64(15_000), order.CommissionCents)
	require.Equal(t, int64(315_000), order.TotalCents)
	require.Equal(t, enums.OrderStatusPending, order.Status)
	require.Equal(t, enums.PaymentStatusUnpaid, order.PaymentStatus)
	require.Len(t, order.Items, 1)

	require.Equal(t, 8, h.stock(t, variant.ID))
	require.Contains(t, h.notifier.titles, "Order placed")
	require.Contains(t, h.notifier.titles, "New order")
}

func TestCheckoutSplitsPerMerchant(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	merchantA := uuid.New()
	merchantB := uuid.New()
	variantA := h.seedVariant(t, merchantA, 100_000, 5, 300)
	variantB := h.seedVariant(t, merchantB, 250_000, 5, 500)

	created, err := h.svc.Checkout(context.Background(), Input{
		BuyerID: h.buyerID,
		Lines: []LineSelection{
			{VariantID: variantA.ID, Qty: 1},
			{VariantID: variantB.ID, Qty: 1},
		},
		ShippingAddress: h.address(),
		PaymentMethod:   enums.PaymentMethodVNPay,
	})
	require.NoError(t, err)
	require.Len(t, created, 2)

	// Groups come back ordered by subtotal, largest first.
	require.Equal(t, merchantB, created[0].MerchantID)
	require.Equal(t, merchantA, created[1].MerchantID)
	for _, order := range created {
		require.Len(t, order.Items, 1)
		require.Equal(t, h.buyerID, order.BuyerID)
	}
}

func TestCheckoutAppliesStackedCodes(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	merchantID := uuid.New()
	variant := h.seedVariant(t, merchantID, 450_000, 10, 400)

	merchantPromo := h.seedPromo(t, func(p *models.Promotion) {
		p.Issuer = enums.PromotionIssuerStore
		p.MerchantID = &merchantID
		p.DiscountType = enums.DiscountTypePercentage
		p.DiscountValue = 10
	})
	platformPromo := h.seedPromo(t, func(p *models.Promotion) {
		p.DiscountValue = 50_000
	})
	shippingPromo := h.seedPromo(t, func(p *models.Promotion) {
		p.Scope = enums.PromotionScopeShipping
		p.DiscountValue = 20_000
	})

	created, err := h.svc.Checkout(context.Background(), Input{
		BuyerID:            h.buyerID,
		Lines:              []LineSelection{{VariantID: variant.ID, Qty: 2}},
		ShippingAddress:    h.address(),
		PaymentMethod:      enums.PaymentMethodMomo,
		MerchantPromoCodes: map[uuid.UUID]string{merchantID: merchantPromo.Code},
		PlatformOrderCode:  platformPromo.Code,
		ShippingCode:       shippingPromo.Code,
	})
	require.NoError(t, err)
	require.Len(t, created, 1)

	order := created[0]
	require.Equal(t, int64(900_000), order.SubtotalCents)
	require.Equal(t, int64(90_000), order.StoreDiscountCents)
	require.Equal(t, int64(50_000), order.PlatformDiscountCents)
	// Base fee 15000 minus the 20000 shipping code floors at zero.
	require.Equal(t, int64(0), order.ShippingFeeCents)
	// Commission prices against the subtotal net of the merchant discount.
	require.Equal(t, int64(40_500), order.CommissionCents)
	require.Equal(t, int64(760_000), order.TotalCents)
	require.Len(t, order.AppliedPromotionIDs, 3)

	// Every applied code left a usage record and consumed headroom.
	var usageCount int64
	require.NoError(t, h.db.Model(&models.PromotionUsage{}).Where("order_id = ?", order.ID).Count(&usageCount).Error)
	require.Equal(t, int64(3), usageCount)

	var reloaded models.Promotion
	require.NoError(t, h.db.First(&reloaded, "id = ?", merchantPromo.ID).Error)
	require.Equal(t, 1, reloaded.UsedCount)
}

func TestCheckoutPlatformCodeTargetsLargestGroupOnly(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	merchantA := uuid.New()
	merchantB := uuid.New()
	variantA := h.seedVariant(t, merchantA, 1_000_000, 5, 300)
	variantB := h.seedVariant(t, merchantB, 500_000, 5, 300)

	maxDiscount := int64(80_000)
	minOrder := int64(800_000)
	promo := h.seedPromo(t, func(p *models.Promotion) {
		p.DiscountType = enums.DiscountTypePercentage
		p.DiscountValue = 10
		p.MaxDiscountCents = &maxDiscount
		p.MinOrderCents = &minOrder
	})

	created, err := h.svc.Checkout(context.Background(), Input{
		BuyerID: h.buyerID,
		Lines: []LineSelection{
			{VariantID: variantA.ID, Qty: 1},
			{VariantID: variantB.ID, Qty: 1},
		},
		ShippingAddress:   h.address(),
		PaymentMethod:     enums.PaymentMethodCOD,
		PlatformOrderCode: promo.Code,
	})
	require.NoError(t, err)
	require.Len(t, created, 2)

	// 10% of 1000000 caps at 80000 and lands on the larger group only.
	require.Equal(t, merchantA, created[0].MerchantID)
	require.Equal(t, int64(80_000), created[0].PlatformDiscountCents)
	require.Equal(t, int64(0), created[1].PlatformDiscountCents)
	require.Empty(t, created[1].AppliedPromotionIDs)
}

func TestCheckoutRejectsStoreCodeAsPlatformCode(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	merchantID := uuid.New()
	variant := h.seedVariant(t, merchantID, 200_000, 5, 300)
	storePromo := h.seedPromo(t, func(p *models.Promotion) {
		p.Issuer = enums.PromotionIssuerStore
		p.MerchantID = &merchantID
	})

	_, err := h.svc.Checkout(context.Background(), Input{
		BuyerID:           h.buyerID,
		Lines:             []LineSelection{{VariantID: variant.ID, Qty: 1}},
		ShippingAddress:   h.address(),
		PaymentMethod:     enums.PaymentMethodCOD,
		PlatformOrderCode: storePromo.Code,
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())

	var orderCount int64
	require.NoError(t, h.db.Model(&models.Order{}).Count(&orderCount).Error)
	require.Zero(t, orderCount)
}

func TestCheckoutRejectsExhaustedShippingCodeAcrossGroups(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	merchantA := uuid.New()
	merchantB := uuid.New()
	variantA := h.seedVariant(t, merchantA, 100_000, 5, 300)
	variantB := h.seedVariant(t, merchantB, 200_000, 5, 300)

	// One remaining use, but the code targets both merchant groups.
	oneUse := 1
	shippingPromo := h.seedPromo(t, func(p *models.Promotion) {
		p.Scope = enums.PromotionScopeShipping
		p.UsageLimit = &oneUse
	})

	_, err := h.svc.Checkout(context.Background(), Input{
		BuyerID: h.buyerID,
		Lines: []LineSelection{
			{VariantID: variantA.ID, Qty: 1},
			{VariantID: variantB.ID, Qty: 1},
		},
		ShippingAddress: h.address(),
		PaymentMethod:   enums.PaymentMethodCOD,
		ShippingCode:    shippingPromo.Code,
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())

	// Nothing persisted: validation failed before any group committed.
	var orderCount int64
	require.NoError(t, h.db.Model(&models.Order{}).Count(&orderCount).Error)
	require.Zero(t, orderCount)
	require.Equal(t, 5, h.stock(t, variantA.ID))
}

func TestCheckoutInsufficientStockAbortsBeforePersisting(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	merchantID := uuid.New()
	variant := h.seedVariant(t, merchantID, 100_000, 1, 300)

	_, err := h.svc.Checkout(context.Background(), Input{
		BuyerID:         h.buyerID,
		Lines:           []LineSelection{{VariantID: variant.ID, Qty: 3}},
		ShippingAddress: h.address(),
		PaymentMethod:   enums.PaymentMethodCOD,
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())

	var orderCount int64
	require.NoError(t, h.db.Model(&models.Order{}).Count(&orderCount).Error)
	require.Zero(t, orderCount)
}

func TestCheckoutRejectsSuspendedMerchant(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	merchantID := uuid.New()
	variant := h.seedVariant(t, merchantID, 100_000, 5, 300)
	h.directory.statuses[merchantID] = enums.MerchantStatusSuspended

	_, err := h.svc.Checkout(context.Background(), Input{
		BuyerID:         h.buyerID,
		Lines:           []LineSelection{{VariantID: variant.ID, Qty: 1}},
		ShippingAddress: h.address(),
		PaymentMethod:   enums.PaymentMethodCOD,
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestCheckoutValidatesInput(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		input Input
	}{
		{"missing buyer", Input{PaymentMethod: enums.PaymentMethodCOD, Lines: []LineSelection{{VariantID: uuid.New(), Qty: 1}}, ShippingAddress: h.address()}},
		{"bad payment method", Input{BuyerID: uuid.New(), PaymentMethod: "wire", Lines: []LineSelection{{VariantID: uuid.New(), Qty: 1}}, ShippingAddress: h.address()}},
		{"no lines", Input{BuyerID: uuid.New(), PaymentMethod: enums.PaymentMethodCOD, ShippingAddress: h.address()}},
		{"non-positive qty", Input{BuyerID: uuid.New(), PaymentMethod: enums.PaymentMethodCOD, Lines: []LineSelection{{VariantID: uuid.New()}}, ShippingAddress: h.address()}},
		{"missing address region", Input{BuyerID: uuid.New(), PaymentMethod: enums.PaymentMethodCOD, Lines: []LineSelection{{VariantID: uuid.New(), Qty: 1}}, ShippingAddress: types.Address{Line1: "x"}}},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.Checkout(ctx, tt.input)
			require.Error(t, err)
		})
	}
}

func TestCheckoutClearsPurchasedCartLines(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	merchantID := uuid.New()
	purchased := h.seedVariant(t, merchantID, 100_000, 5, 300)
	kept := h.seedVariant(t, merchantID, 80_000, 5, 300)

	for _, variantID := range []uuid.UUID{purchased.ID, kept.ID} {
		require.NoError(t, h.db.Create(&models.CartLine{
			ID:        uuid.New(),
			BuyerID:   h.buyerID,
			VariantID: variantID,
			Qty:       1,
		}).Error)
	}

	_, err := h.svc.Checkout(context.Background(), Input{
		BuyerID:         h.buyerID,
		Lines:           []LineSelection{{VariantID: purchased.ID, Qty: 1}},
		ShippingAddress: h.address(),
		PaymentMethod:   enums.PaymentMethodCOD,
	})
	require.NoError(t, err)

	var remaining []models.CartLine
	require.NoError(t, h.db.Where("buyer_id = ?", h.buyerID).Find(&remaining).Error)
	require.Len(t, remaining, 1)
	require.Equal(t, kept.ID, remaining[0].VariantID)
}
