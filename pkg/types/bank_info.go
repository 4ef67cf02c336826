package types

import "strings"

// BankInfo carries the buyer's bank account for manual refund transfers
// (cash-on-delivery orders have no gateway transaction to reverse).
type BankInfo struct {
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	AccountHolder string `json:"account_holder"`
}

// IsComplete reports whether all transfer fields are present.
func (b BankInfo) IsComplete() bool {
	return strings.TrimSpace(b.BankName) != "" &&
		strings.TrimSpace(b.AccountNumber) != "" &&
		strings.TrimSpace(b.AccountHolder) != ""
}
