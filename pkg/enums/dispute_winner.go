package enums

import "fmt"

// DisputeWinner records which party an arbitration favored.
type DisputeWinner string

const (
	DisputeWinnerBuyer DisputeWinner = "buyer"
	DisputeWinnerStore DisputeWinner = "store"
)

var validDisputeWinners = []DisputeWinner{
	DisputeWinnerBuyer,
	DisputeWinnerStore,
}

// String implements fmt.Stringer.
func (w DisputeWinner) String() string {
	return string(w)
}

// IsValid reports whether the value is a known DisputeWinner.
func (w DisputeWinner) IsValid() bool {
	for _, candidate := range validDisputeWinners {
		if candidate == w {
			return true
		}
	}
	return false
}

// ParseDisputeWinner converts raw input into a DisputeWinner.
func ParseDisputeWinner(value string) (DisputeWinner, error) {
	for _, candidate := range validDisputeWinners {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid dispute winner %q", value)
}
