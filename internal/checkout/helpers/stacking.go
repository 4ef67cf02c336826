package helpers

import (
	"github.com/anvo-dev/markethub-backend/internal/promotions"
	"github.com/anvo-dev/markethub-backend/pkg/db/models"
	"github.com/shopspring/decimal"
)

// Commission bounds: 5% of the merchant's discounted subtotal, capped.
const (
	commissionPercent  = 5
	commissionCapCents = 500_000
)

// PricingInput feeds the discount stacking resolver for one merchant group.
// A nil promotion means that slot is not applied to this group.
type PricingInput struct {
	SubtotalCents    int64
	ShippingFeeCents int64
	MerchantPromo    *models.Promotion
	PlatformPromo    *models.Promotion
	ShippingPromo    *models.Promotion
}

// Pricing is the resolved money breakdown of one merchant order.
type Pricing struct {
	SubtotalCents         int64
	StoreDiscountCents    int64
	PlatformDiscountCents int64
	ShippingFeeCents      int64
	CommissionCents       int64
	TotalCents            int64
}

// ResolvePricing stacks discounts in their fixed order. The order matters
// because each step changes the base the next step prices against: the
// merchant code discounts the raw subtotal, the platform order code discounts
// what remains, and the shipping code reduces the shipping fee, floored at
// zero. Eligibility is the caller's job; this resolver only does arithmetic.
func ResolvePricing(input PricingInput) Pricing {
	pricing := Pricing{
		SubtotalCents:    input.SubtotalCents,
		ShippingFeeCents: input.ShippingFeeCents,
	}

	pricing.StoreDiscountCents = promotions.CalculateDiscount(pricing.SubtotalCents, input.MerchantPromo)

	afterStore := pricing.SubtotalCents - pricing.StoreDiscountCents
	pricing.PlatformDiscountCents = promotions.CalculateDiscount(afterStore, input.PlatformPromo)

	shippingDiscount := promotions.CalculateDiscount(pricing.ShippingFeeCents, input.ShippingPromo)
	pricing.ShippingFeeCents -= shippingDiscount
	if pricing.ShippingFeeCents < 0 {
		pricing.ShippingFeeCents = 0
	}

	pricing.CommissionCents = Commission(pricing.SubtotalCents, pricing.StoreDiscountCents)

	total := pricing.SubtotalCents - pricing.StoreDiscountCents - pricing.PlatformDiscountCents + pricing.ShippingFeeCents
	if total < 0 {
		total = 0
	}
	pricing.TotalCents = total
	return pricing
}

// Commission computes the platform's cut of one merchant order: 5% of the
// subtotal net of the merchant-funded discount, rounded down, capped at
// 500000. Charged to the merchant regardless of any promotion.
func Commission(subtotalCents, storeDiscountCents int64) int64 {
	base := subtotalCents - storeDiscountCents
	if base <= 0 {
		return 0
	}
	commission := decimal.NewFromInt(base).
		Mul(decimal.NewFromInt(commissionPercent)).
		Div(decimal.NewFromInt(100)).
		Floor().
		IntPart()
	if commission > commissionCapCents {
		commission = commissionCapCents
	}
	return commission
}
