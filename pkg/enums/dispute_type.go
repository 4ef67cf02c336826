package enums

import "fmt"

// DisputeType distinguishes the two arbitration flows.
type DisputeType string

const (
	// DisputeTypeReturnRejection is raised by the buyer against a merchant's
	// refusal to accept a return.
	DisputeTypeReturnRejection DisputeType = "return_rejection"
	// DisputeTypeReturnQuality is raised by the merchant claiming the returned
	// goods are damaged or incorrect.
	DisputeTypeReturnQuality DisputeType = "return_quality"
)

var validDisputeTypes = []DisputeType{
	DisputeTypeReturnRejection,
	DisputeTypeReturnQuality,
}

// String implements fmt.Stringer.
func (t DisputeType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known DisputeType.
func (t DisputeType) IsValid() bool {
	for _, candidate := range validDisputeTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseDisputeType converts raw input into a DisputeType.
func ParseDisputeType(value string) (DisputeType, error) {
	for _, candidate := range validDisputeTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid dispute type %q", value)
}
