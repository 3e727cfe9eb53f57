package ledger

import (
	"errors"
	"fmt"

	"github.com/etnz/ledger/date"
)

// TransactionType is a lookup reference (e.g. "deposit", "buy"), it has no
// effect on balances.
type TransactionType string

// TransactionCategory is a lookup reference (e.g. "groceries"), it has no
// effect on balances.
type TransactionCategory string

// Header holds the fields shared by every kind of transaction.
type Header struct {
	ID       ID                  `json:"id"`
	Period   ID                  `json:"period,omitempty"`
	Date     date.Date           `json:"date"`
	Type     TransactionType     `json:"type,omitempty"`
	Category TransactionCategory `json:"category,omitempty"`
	Memo     string              `json:"memo,omitempty"`
}

// Head returns the header itself, it is promoted to every transaction.
func (h Header) Head() Header { return h }

// When returns the date of the transaction.
func (h Header) When() date.Date { return h.Date }

func (h Header) validate() error {
	if h.Date.IsZero() {
		return errors.New("transaction date is missing")
	}
	return nil
}

// Transaction is either a CashTransaction or an InvestmentTransaction.
//
// The set is closed: balance computations switch on the concrete type.
type Transaction interface {
	Head() Header
	When() date.Date
	// Validate checks the transaction against the account it is posted into
	// and returns a copy with quick fixes applied.
	Validate(account Account, securities map[ID]Security) (Transaction, error)
	isTransaction()
}

// CashTransaction moves a signed amount in or out of a cash account.
//
// When TransferTo is set, the row is the source leg of a transfer: it only
// affects its own account. The destination carries its own mirrored row.
type CashTransaction struct {
	Header
	Amount     Money
	TransferTo ID // destination account of a transfer, if any.
	TransferID ID // links both legs of a transfer.
}

// NewCash creates a cash transaction.
func NewCash(on date.Date, amount Money, memo string) CashTransaction {
	return CashTransaction{Header: Header{Date: on, Memo: memo}, Amount: amount}
}

func (CashTransaction) isTransaction() {}

// Validate checks that the transaction fits a cash account.
func (t CashTransaction) Validate(account Account, _ map[ID]Security) (Transaction, error) {
	if err := t.Header.validate(); err != nil {
		return t, err
	}
	if account.Kind != Cash {
		return t, fmt.Errorf("cash transaction into %s account %q: %w", account.Kind, account.ID, ErrKindMismatch)
	}
	// quick fix: the currency defaults to the account's.
	if t.Amount.Currency() == "" {
		t.Amount = M(t.Amount.Decimal(), account.Currency)
	}
	if t.Amount.Currency() != account.Currency {
		return t, fmt.Errorf("amount in %s for account in %s: %w", t.Amount.Currency(), account.Currency, ErrCurrencyMismatch)
	}
	if !t.Amount.fitsIn(t.Amount.places()) {
		return t, fmt.Errorf("amount %s has more than %d decimals in %s", t.Amount.Decimal(), t.Amount.places(), t.Amount.Currency())
	}
	if t.TransferTo != "" && t.TransferTo == account.ID {
		return t, fmt.Errorf("cannot transfer from %q to itself", account.ID)
	}
	return t, nil
}

// InvestmentTransaction buys (positive quantity) or sells (negative
// quantity) units of a security.
type InvestmentTransaction struct {
	Header
	Security ID
	Quantity Quantity
	Price    Money // per unit, in the security currency.
	Fees     Money // optional fees or commission, in the security currency.
}

// NewInvestment creates an investment transaction.
func NewInvestment(on date.Date, security ID, quantity Quantity, price Money) InvestmentTransaction {
	return InvestmentTransaction{
		Header:   Header{Date: on},
		Security: security,
		Quantity: quantity,
		Price:    price.exact(),
	}
}

func (InvestmentTransaction) isTransaction() {}

// Validate checks that the transaction fits an investment account.
func (t InvestmentTransaction) Validate(account Account, securities map[ID]Security) (Transaction, error) {
	if err := t.Header.validate(); err != nil {
		return t, err
	}
	if account.Kind != Investment {
		return t, fmt.Errorf("investment transaction into %s account %q: %w", account.Kind, account.ID, ErrKindMismatch)
	}
	sec, ok := securities[t.Security]
	if !ok {
		return t, fmt.Errorf("security %q: %w", t.Security, ErrUnknownSecurity)
	}
	if t.Quantity.IsZero() {
		return t, errors.New("investment quantity must not be zero")
	}
	if !t.Quantity.fitsIn(PricePlaces) {
		return t, fmt.Errorf("quantity %s has more than %d decimals", t.Quantity, PricePlaces)
	}

	if t.Price.Currency() == "" {
		t.Price = M(t.Price.Decimal(), sec.Currency)
	}
	t.Price = t.Price.exact()
	if t.Price.Currency() != sec.Currency {
		return t, fmt.Errorf("price in %s for security in %s: %w", t.Price.Currency(), sec.Currency, ErrCurrencyMismatch)
	}
	if t.Price.IsNegative() {
		return t, fmt.Errorf("price must not be negative, got %s", t.Price.Decimal())
	}
	if !t.Price.fitsIn(PricePlaces) {
		return t, fmt.Errorf("price %s has more than %d decimals", t.Price.Decimal(), PricePlaces)
	}

	if !t.Fees.IsZero() || t.Fees.Currency() != "" {
		if t.Fees.Currency() == "" {
			t.Fees = M(t.Fees.Decimal(), sec.Currency)
		}
		if t.Fees.Currency() != sec.Currency {
			return t, fmt.Errorf("fees in %s for security in %s: %w", t.Fees.Currency(), sec.Currency, ErrCurrencyMismatch)
		}
		if t.Fees.IsNegative() {
			return t, fmt.Errorf("fees must not be negative, got %s", t.Fees.Decimal())
		}
		if !t.Fees.fitsIn(t.Fees.places()) {
			return t, fmt.Errorf("fees %s has more than %d decimals in %s", t.Fees.Decimal(), t.Fees.places(), t.Fees.Currency())
		}
	}
	return t, nil
}

// WithHeader returns a copy of tx with its header replaced.
func WithHeader(tx Transaction, h Header) Transaction {
	switch v := tx.(type) {
	case CashTransaction:
		v.Header = h
		return v
	case InvestmentTransaction:
		v.Header = h
		return v
	default:
		panic(fmt.Sprintf("unsupported transaction type %T", tx))
	}
}
