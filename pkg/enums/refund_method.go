package enums

import "fmt"

// RefundMethod identifies how money is returned to the buyer.
type RefundMethod string

const (
	RefundMethodGateway      RefundMethod = "gateway"
	RefundMethodBankTransfer RefundMethod = "bank_transfer"
)

var validRefundMethods = []RefundMethod{
	RefundMethodGateway,
	RefundMethodBankTransfer,
}

// String implements fmt.Stringer.
func (m RefundMethod) String() string {
	return string(m)
}

// IsValid reports whether the value is a known RefundMethod.
func (m RefundMethod) IsValid() bool {
	for _, candidate := range validRefundMethods {
		if candidate == m {
			return true
		}
	}
	return false
}

// RefundMethodFor picks the refund path appropriate for the payment method:
// bank transfer for cash orders, a gateway reversal otherwise.
func RefundMethodFor(payment PaymentMethod) RefundMethod {
	if payment.IsOnline() {
		return RefundMethodGateway
	}
	return RefundMethodBankTransfer
}

// ParseRefundMethod converts raw input into a RefundMethod.
func ParseRefundMethod(value string) (RefundMethod, error) {
	for _, candidate := range validRefundMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid refund method %q", value)
}
