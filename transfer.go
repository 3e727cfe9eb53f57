package ledger

import (
	"fmt"

	"github.com/etnz/ledger/date"
)

// TransferPair holds both legs of a transfer between two cash accounts.
// Posting it with Book.PostTransfer, or a store's PostTransfer, writes both
// legs or none.
type TransferPair struct {
	From, To         ID
	Source, Mirrored CashTransaction
}

// NewTransfer builds the pair of transactions moving amount from one cash
// account to another. Both accounts must share the amount currency.
func NewTransfer(from, to Account, on date.Date, amount Money, memo string) (TransferPair, error) {
	if from.ID == to.ID {
		return TransferPair{}, fmt.Errorf("cannot transfer from %q to itself", from.ID)
	}
	if from.Kind != Cash || to.Kind != Cash {
		return TransferPair{}, fmt.Errorf("transfer between %s and %s accounts: %w", from.Kind, to.Kind, ErrKindMismatch)
	}
	if amount.Currency() == "" {
		amount = M(amount.Decimal(), from.Currency)
	}
	if from.Currency != amount.Currency() || to.Currency != amount.Currency() {
		return TransferPair{}, fmt.Errorf("transfer of %s from %s to %s: %w", amount.Currency(), from.Currency, to.Currency, ErrCurrencyMismatch)
	}
	if !amount.IsPositive() {
		return TransferPair{}, fmt.Errorf("transfer amount must be positive, got %s", amount.Decimal())
	}

	link := NewID()
	src := NewCash(on, amount.Neg(), memo)
	src.TransferTo, src.TransferID = to.ID, link
	dst := NewCash(on, amount, memo)
	dst.TransferID = link
	return TransferPair{From: from.ID, To: to.ID, Source: src, Mirrored: dst}, nil
}
