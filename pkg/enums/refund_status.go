package enums

import "fmt"

// RefundStatus tracks a queued refund request.
type RefundStatus string

const (
	RefundStatusPending   RefundStatus = "pending"
	RefundStatusCompleted RefundStatus = "completed"
	RefundStatusRejected  RefundStatus = "rejected"
)

var validRefundStatuses = []RefundStatus{
	RefundStatusPending,
	RefundStatusCompleted,
	RefundStatusRejected,
}

// String implements fmt.Stringer.
func (s RefundStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known RefundStatus.
func (s RefundStatus) IsValid() bool {
	for _, candidate := range validRefundStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseRefundStatus converts raw input into a RefundStatus.
func ParseRefundStatus(value string) (RefundStatus, error) {
	for _, candidate := range validRefundStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid refund status %q", value)
}
