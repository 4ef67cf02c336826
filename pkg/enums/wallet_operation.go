package enums

import "fmt"

// WalletOperation identifies an entry in a merchant's wallet ledger. The first
// four mutate balances; commission and discount-loss entries are accounting
// records that explain where merchant revenue went.
type WalletOperation string

const (
	WalletOperationAddPending    WalletOperation = "add_pending"
	WalletOperationDeductPending WalletOperation = "deduct_pending"
	WalletOperationRelease       WalletOperation = "release_to_balance"
	WalletOperationCreditBalance WalletOperation = "credit_balance"
	WalletOperationCommission    WalletOperation = "commission"
	WalletOperationDiscountLoss  WalletOperation = "discount_loss"
)

var validWalletOperations = []WalletOperation{
	WalletOperationAddPending,
	WalletOperationDeductPending,
	WalletOperationRelease,
	WalletOperationCreditBalance,
	WalletOperationCommission,
	WalletOperationDiscountLoss,
}

// String implements fmt.Stringer.
func (o WalletOperation) String() string {
	return string(o)
}

// IsValid reports whether the value is a known WalletOperation.
func (o WalletOperation) IsValid() bool {
	for _, candidate := range validWalletOperations {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseWalletOperation converts raw input into a WalletOperation.
func ParseWalletOperation(value string) (WalletOperation, error) {
	for _, candidate := range validWalletOperations {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet operation %q", value)
}
