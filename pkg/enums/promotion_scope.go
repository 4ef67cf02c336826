package enums

import "fmt"

// PromotionScope identifies what a promotion discounts: the product subtotal
// or the shipping fee.
type PromotionScope string

const (
	PromotionScopeOrder    PromotionScope = "order"
	PromotionScopeShipping PromotionScope = "shipping"
)

var validPromotionScopes = []PromotionScope{
	PromotionScopeOrder,
	PromotionScopeShipping,
}

// String implements fmt.Stringer.
func (s PromotionScope) String() string {
	return string(s)
}

// IsValid reports whether the value is a known PromotionScope.
func (s PromotionScope) IsValid() bool {
	for _, candidate := range validPromotionScopes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParsePromotionScope converts raw input into a PromotionScope.
func ParsePromotionScope(value string) (PromotionScope, error) {
	for _, candidate := range validPromotionScopes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid promotion scope %q", value)
}
