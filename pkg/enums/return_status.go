package enums

import "fmt"

// ReturnStatus tracks the lifecycle of a return request.
type ReturnStatus string

const (
	ReturnStatusPending       ReturnStatus = "pending"
	ReturnStatusReadyToReturn ReturnStatus = "ready_to_return"
	ReturnStatusRejected      ReturnStatus = "rejected"
	ReturnStatusReturning     ReturnStatus = "returning"
	ReturnStatusReturned      ReturnStatus = "returned"
	ReturnStatusDisputed      ReturnStatus = "disputed"
	ReturnStatusQualityHold   ReturnStatus = "return_disputed"
	ReturnStatusRefunded      ReturnStatus = "refunded"
	ReturnStatusRefundToStore ReturnStatus = "refund_to_store"
	ReturnStatusPartialRefund ReturnStatus = "partial_refund"
	ReturnStatusClosed        ReturnStatus = "closed"
)

var validReturnStatuses = []ReturnStatus{
	ReturnStatusPending,
	ReturnStatusReadyToReturn,
	ReturnStatusRejected,
	ReturnStatusReturning,
	ReturnStatusReturned,
	ReturnStatusDisputed,
	ReturnStatusQualityHold,
	ReturnStatusRefunded,
	ReturnStatusRefundToStore,
	ReturnStatusPartialRefund,
	ReturnStatusClosed,
}

// String implements fmt.Stringer.
func (s ReturnStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ReturnStatus.
func (s ReturnStatus) IsValid() bool {
	for _, candidate := range validReturnStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the return request has reached a final outcome.
func (s ReturnStatus) IsTerminal() bool {
	switch s {
	case ReturnStatusRefunded, ReturnStatusRefundToStore, ReturnStatusPartialRefund, ReturnStatusClosed:
		return true
	}
	return false
}

// ParseReturnStatus converts raw input into a ReturnStatus.
func ParseReturnStatus(value string) (ReturnStatus, error) {
	for _, candidate := range validReturnStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid return status %q", value)
}
