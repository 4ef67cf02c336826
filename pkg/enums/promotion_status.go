package enums

import "fmt"

// PromotionStatus tracks whether a promotion can still be applied.
type PromotionStatus string

const (
	PromotionStatusActive   PromotionStatus = "active"
	PromotionStatusInactive PromotionStatus = "inactive"
	PromotionStatusDeleted  PromotionStatus = "deleted"
)

var validPromotionStatuses = []PromotionStatus{
	PromotionStatusActive,
	PromotionStatusInactive,
	PromotionStatusDeleted,
}

// String implements fmt.Stringer.
func (s PromotionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known PromotionStatus.
func (s PromotionStatus) IsValid() bool {
	for _, candidate := range validPromotionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParsePromotionStatus converts raw input into a PromotionStatus.
func ParsePromotionStatus(value string) (PromotionStatus, error) {
	for _, candidate := range validPromotionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid promotion status %q", value)
}
