package types

import "strings"

// Address is a delivery or pickup address stored as jsonb. Region drives the
// shipping fee zones.
type Address struct {
	Line1      string `json:"line1"`
	Ward       string `json:"ward,omitempty"`
	District   string `json:"district,omitempty"`
	Region     string `json:"region"`
	PostalCode string `json:"postal_code,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Contact    string `json:"contact,omitempty"`
}

// IsZero reports whether the address carries no usable data.
func (a Address) IsZero() bool {
	return strings.TrimSpace(a.Line1) == "" && strings.TrimSpace(a.Region) == ""
}

// Validate checks the fields checkout depends on.
func (a Address) Validate() error {
	if strings.TrimSpace(a.Line1) == "" {
		return errMissing("line1")
	}
	if strings.TrimSpace(a.Region) == "" {
		return errMissing("region")
	}
	return nil
}

type missingFieldError string

func errMissing(field string) error {
	return missingFieldError(field)
}

func (e missingFieldError) Error() string {
	return "address: missing " + string(e)
}
