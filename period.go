package ledger

import (
	"fmt"
	"slices"

	"github.com/etnz/ledger/date"
)

// AccountPeriod is a bounded span of an account's life. It starts from an
// opening balance and, once closed, ends at a recorded closing balance.
//
// A period without CloseDate is open: it is the only one new transactions
// are posted into.
type AccountPeriod struct {
	ID             ID
	Account        ID
	OpeningBalance Money
	ClosingBalance Money // only meaningful when the period is closed.
	Start          date.Date
	End            date.Date // zero while open.
	CloseDate      date.Date // zero while open.
	Transactions   []Transaction
}

// NewPeriod creates an open period.
func NewPeriod(account ID, start date.Date, opening Money) AccountPeriod {
	return AccountPeriod{
		ID:             NewID(),
		Account:        account,
		OpeningBalance: opening,
		Start:          start,
	}
}

// FirstPeriod returns the period opening account a on start with the
// initial balance. An initial balance without currency is in the account's.
func FirstPeriod(a Account, start date.Date, initial Money) (AccountPeriod, error) {
	if initial.Currency() == "" {
		initial = M(initial.Decimal(), a.Currency)
	}
	if initial.Currency() != a.Currency {
		return AccountPeriod{}, fmt.Errorf("initial balance in %s for account in %s: %w", initial.Currency(), a.Currency, ErrCurrencyMismatch)
	}
	if !initial.fitsIn(initial.places()) {
		return AccountPeriod{}, fmt.Errorf("initial balance %s has more than %d decimals in %s", initial.Decimal(), initial.places(), initial.Currency())
	}
	if start.IsZero() {
		return AccountPeriod{}, fmt.Errorf("account %q start date is missing", a.ID)
	}
	return NewPeriod(a.ID, start, initial), nil
}

// IsOpen reports whether the period has no close date.
func (p AccountPeriod) IsOpen() bool { return p.CloseDate.IsZero() }

// Range returns the dates covered by the period.
func (p AccountPeriod) Range() date.Range { return date.Range{From: p.Start, To: p.End} }

// Closing returns the recorded closing balance, and false for an open period.
func (p AccountPeriod) Closing() (Money, bool) {
	if p.IsOpen() {
		return Money{}, false
	}
	return p.ClosingBalance, true
}

// Accept checks that tx can be posted into the period.
func (p AccountPeriod) Accept(tx Transaction) error {
	if !p.IsOpen() {
		return fmt.Errorf("period %q closed on %s: %w", p.ID, p.CloseDate, ErrPeriodClosed)
	}
	if on := tx.When(); !p.Range().Contains(on) {
		return fmt.Errorf("transaction on %s is outside period %s", on, p.Range())
	}
	return nil
}

// post appends tx to the period. It returns a copy, the receiver is left untouched.
func (p AccountPeriod) post(tx Transaction) (AccountPeriod, error) {
	if err := p.Accept(tx); err != nil {
		return p, err
	}
	p.Transactions = append(slices.Clip(p.Transactions), tx)
	return p, nil
}

// Close returns the closed period and the next open one. closing is
// rounded to the currency convention: it is the recorded balance and the
// next period opening.
func (p AccountPeriod) Close(on date.Date, closing Money) (closed, next AccountPeriod, err error) {
	if !p.IsOpen() {
		return p, next, fmt.Errorf("period %q: %w", p.ID, ErrPeriodClosed)
	}
	if on.Before(p.Start) {
		return p, next, fmt.Errorf("cannot close period %q on %s before its start %s", p.ID, on, p.Start)
	}
	for _, tx := range p.Transactions {
		if tx.When().After(on) {
			return p, next, fmt.Errorf("cannot close period %q on %s: transaction %q is dated %s", p.ID, on, tx.Head().ID, tx.When())
		}
	}
	closing = closing.Round()
	closed = p
	closed.End = on
	closed.CloseDate = on
	closed.ClosingBalance = closing
	next = NewPeriod(p.Account, on.Add(1), closing)
	return closed, next, nil
}

// OpenPeriod selects the single open period among periods.
//
// It returns ErrNoOpenPeriod when none is open, and ErrAmbiguousOpenPeriod
// when several are.
func OpenPeriod(periods []AccountPeriod) (AccountPeriod, error) {
	var open []AccountPeriod
	for _, p := range periods {
		if p.IsOpen() {
			open = append(open, p)
		}
	}
	switch len(open) {
	case 0:
		return AccountPeriod{}, ErrNoOpenPeriod
	case 1:
		return open[0], nil
	default:
		ids := make([]ID, len(open))
		for i, p := range open {
			ids[i] = p.ID
		}
		return AccountPeriod{}, fmt.Errorf("%w: %v", ErrAmbiguousOpenPeriod, ids)
	}
}

// CheckContinuity verifies that each period opens with the closing balance
// of the previous one. periods must be sorted by start date.
func CheckContinuity(periods []AccountPeriod) error {
	for i := 1; i < len(periods); i++ {
		prev, cur := periods[i-1], periods[i]
		closing, ok := prev.Closing()
		if !ok {
			return fmt.Errorf("period %q follows period %q which is still open: %w", cur.ID, prev.ID, ErrBrokenContinuity)
		}
		if !closing.Equal(cur.OpeningBalance) {
			return fmt.Errorf("period %q opens at %s but period %q closed at %s: %w", cur.ID, cur.OpeningBalance, prev.ID, closing, ErrBrokenContinuity)
		}
		if !cur.Start.After(prev.End) {
			return fmt.Errorf("period %q starts on %s, not after %q ended on %s: %w", cur.ID, cur.Start, prev.ID, prev.End, ErrBrokenContinuity)
		}
	}
	return nil
}
