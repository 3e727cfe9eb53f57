package renderer

import (
	"fmt"

	"github.com/etnz/ledger"
)

// Transaction describes a transaction in a few words.
func Transaction(tx ledger.Transaction) string {
	var s string
	switch v := tx.(type) {
	case ledger.CashTransaction:
		switch {
		case v.TransferTo != "":
			s = fmt.Sprintf("Transfer to %s", v.TransferTo)
		case v.TransferID != "":
			s = "Transfer received"
		case v.Amount.IsNegative():
			s = "Withdrawal"
		default:
			s = "Deposit"
		}
	case ledger.InvestmentTransaction:
		verb, q := "Bought", v.Quantity
		if q.IsNegative() {
			verb, q = "Sold", q.Neg()
		}
		s = fmt.Sprintf("%s %s %s at %s", verb, q, v.Security, v.Price)
		if !v.Fees.IsZero() {
			s += fmt.Sprintf(" (fees %s)", v.Fees)
		}
	default:
		return fmt.Sprintf("%T", tx)
	}
	if h := tx.Head(); h.Memo != "" {
		s += ": " + h.Memo
	}
	return s
}

// Amount is the signed cash amount of a cash transaction, or the traded
// value of an investment.
func Amount(tx ledger.Transaction) string {
	switch v := tx.(type) {
	case ledger.CashTransaction:
		return v.Amount.SignedString()
	case ledger.InvestmentTransaction:
		return v.Price.Mul(v.Quantity).SignedString()
	default:
		return ""
	}
}
