package enums

import "fmt"

// PromotionIssuer identifies who funds a promotion's discount.
type PromotionIssuer string

const (
	PromotionIssuerStore    PromotionIssuer = "store"
	PromotionIssuerPlatform PromotionIssuer = "platform"
)

var validPromotionIssuers = []PromotionIssuer{
	PromotionIssuerStore,
	PromotionIssuerPlatform,
}

// String implements fmt.Stringer.
func (i PromotionIssuer) String() string {
	return string(i)
}

// IsValid reports whether the value is a known PromotionIssuer.
func (i PromotionIssuer) IsValid() bool {
	for _, candidate := range validPromotionIssuers {
		if candidate == i {
			return true
		}
	}
	return false
}

// ParsePromotionIssuer converts raw input into a PromotionIssuer.
func ParsePromotionIssuer(value string) (PromotionIssuer, error) {
	for _, candidate := range validPromotionIssuers {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid promotion issuer %q", value)
}
