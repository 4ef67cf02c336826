package enums

import "fmt"

// DisputeDecision is the admin ruling that resolves a dispute.
type DisputeDecision string

const (
	DisputeDecisionApproveReturn DisputeDecision = "approve_return"
	DisputeDecisionRejectReturn  DisputeDecision = "reject_return"
	DisputeDecisionApproveStore  DisputeDecision = "approve_store"
	DisputeDecisionRejectStore   DisputeDecision = "reject_store"
	DisputeDecisionPartialRefund DisputeDecision = "partial_refund"
)

var validDisputeDecisions = []DisputeDecision{
	DisputeDecisionApproveReturn,
	DisputeDecisionRejectReturn,
	DisputeDecisionApproveStore,
	DisputeDecisionRejectStore,
	DisputeDecisionPartialRefund,
}

// String implements fmt.Stringer.
func (d DisputeDecision) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DisputeDecision.
func (d DisputeDecision) IsValid() bool {
	for _, candidate := range validDisputeDecisions {
		if candidate == d {
			return true
		}
	}
	return false
}

// AppliesTo reports whether the decision belongs to the given dispute type.
func (d DisputeDecision) AppliesTo(t DisputeType) bool {
	switch t {
	case DisputeTypeReturnRejection:
		return d == DisputeDecisionApproveReturn || d == DisputeDecisionRejectReturn
	case DisputeTypeReturnQuality:
		return d == DisputeDecisionApproveStore || d == DisputeDecisionRejectStore || d == DisputeDecisionPartialRefund
	}
	return false
}

// ParseDisputeDecision converts raw input into a DisputeDecision.
func ParseDisputeDecision(value string) (DisputeDecision, error) {
	for _, candidate := range validDisputeDecisions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid dispute decision %q", value)
}
