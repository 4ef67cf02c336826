package enums

import "fmt"

// RefundSource records which flow enqueued a refund request.
type RefundSource string

const (
	RefundSourceCancellation RefundSource = "cancellation"
	RefundSourceReturn       RefundSource = "return"
	RefundSourceDispute      RefundSource = "dispute"
)

var validRefundSources = []RefundSource{
	RefundSourceCancellation,
	RefundSourceReturn,
	RefundSourceDispute,
}

// String implements fmt.Stringer.
func (s RefundSource) String() string {
	return string(s)
}

// IsValid reports whether the value is a known RefundSource.
func (s RefundSource) IsValid() bool {
	for _, candidate := range validRefundSources {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseRefundSource converts raw input into a RefundSource.
func ParseRefundSource(value string) (RefundSource, error) {
	for _, candidate := range validRefundSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid refund source %q", value)
}
