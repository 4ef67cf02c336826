package enums

import "fmt"

// ReconcileStatus tracks an operator reconciliation task.
type ReconcileStatus string

const (
	ReconcileStatusPending  ReconcileStatus = "pending"
	ReconcileStatusResolved ReconcileStatus = "resolved"
)

var validReconcileStatuses = []ReconcileStatus{
	ReconcileStatusPending,
	ReconcileStatusResolved,
}

// String implements fmt.Stringer.
func (s ReconcileStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ReconcileStatus.
func (s ReconcileStatus) IsValid() bool {
	for _, candidate := range validReconcileStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseReconcileStatus converts raw input into a ReconcileStatus.
func ParseReconcileStatus(value string) (ReconcileStatus, error) {
	for _, candidate := range validReconcileStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reconcile status %q", value)
}
