package enums

import "fmt"

// PaymentMethod identifies how the buyer pays for an order.
type PaymentMethod string

const (
	PaymentMethodCOD   PaymentMethod = "cod"
	PaymentMethodVNPay PaymentMethod = "vnpay"
	PaymentMethodMomo  PaymentMethod = "momo"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodCOD,
	PaymentMethodVNPay,
	PaymentMethodMomo,
}

// String implements fmt.Stringer.
func (m PaymentMethod) String() string {
	return string(m)
}

// IsValid reports whether the value is a known PaymentMethod.
func (m PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == m {
			return true
		}
	}
	return false
}

// IsOnline reports whether the method settles through a payment gateway
// before delivery (as opposed to cash on delivery).
func (m PaymentMethod) IsOnline() bool {
	return m == PaymentMethodVNPay || m == PaymentMethodMomo
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
