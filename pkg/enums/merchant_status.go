package enums

import "fmt"

// MerchantStatus tracks a seller's standing on the platform.
type MerchantStatus string

const (
	MerchantStatusPending   MerchantStatus = "pending"
	MerchantStatusActive    MerchantStatus = "active"
	MerchantStatusApproved  MerchantStatus = "approved"
	MerchantStatusSuspended MerchantStatus = "suspended"
)

var validMerchantStatuses = []MerchantStatus{
	MerchantStatusPending,
	MerchantStatusActive,
	MerchantStatusApproved,
	MerchantStatusSuspended,
}

// String implements fmt.Stringer.
func (s MerchantStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known MerchantStatus.
func (s MerchantStatus) IsValid() bool {
	for _, candidate := range validMerchantStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanSell reports whether orders may be placed against this merchant.
func (s MerchantStatus) CanSell() bool {
	return s == MerchantStatusActive || s == MerchantStatusApproved
}

// ParseMerchantStatus converts raw input into a MerchantStatus.
func ParseMerchantStatus(value string) (MerchantStatus, error) {
	for _, candidate := range validMerchantStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid merchant status %q", value)
}
