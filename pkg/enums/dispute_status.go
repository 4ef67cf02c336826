package enums

import "fmt"

// DisputeStatus tracks arbitration progress.
type DisputeStatus string

const (
	DisputeStatusOpen     DisputeStatus = "open"
	DisputeStatusInReview DisputeStatus = "in_review"
	DisputeStatusResolved DisputeStatus = "resolved"
	DisputeStatusClosed   DisputeStatus = "closed"
)

var validDisputeStatuses = []DisputeStatus{
	DisputeStatusOpen,
	DisputeStatusInReview,
	DisputeStatusResolved,
	DisputeStatusClosed,
}

// String implements fmt.Stringer.
func (s DisputeStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known DisputeStatus.
func (s DisputeStatus) IsValid() bool {
	for _, candidate := range validDisputeStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsActive reports whether messages may still be added and a decision issued.
func (s DisputeStatus) IsActive() bool {
	return s == DisputeStatusOpen || s == DisputeStatusInReview
}

// ParseDisputeStatus converts raw input into a DisputeStatus.
func ParseDisputeStatus(value string) (DisputeStatus, error) {
	for _, candidate := range validDisputeStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid dispute status %q", value)
}
