package ledger

import (
	"errors"
	"fmt"
	"strings"
)

// AccountKind tells how the transactions of an account contribute to its balance.
type AccountKind int

const (
	// Cash accounts sum signed amounts.
	Cash AccountKind = iota
	// Investment accounts value quantities at the price and rate of the
	// transaction date.
	Investment
)

func (k AccountKind) String() string {
	switch k {
	case Cash:
		return "cash"
	case Investment:
		return "investment"
	default:
		return "unknown"
	}
}

// ParseAccountKind parses "cash" or "investment".
func ParseAccountKind(s string) (AccountKind, error) {
	switch strings.ToLower(s) {
	case "cash":
		return Cash, nil
	case "investment":
		return Investment, nil
	default:
		return 0, fmt.Errorf("unknown account kind: %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k AccountKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *AccountKind) UnmarshalText(text []byte) error {
	v, err := ParseAccountKind(string(text))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Account is a cash or investment account kept in a single currency.
type Account struct {
	ID       ID          `json:"id"`
	Name     string      `json:"name"`
	Currency string      `json:"currency"`
	Kind     AccountKind `json:"kind"`
	Active   bool        `json:"active"`
}

// Validate checks the account fields.
func (a Account) Validate() error {
	var errs error
	if a.ID == "" {
		errs = errors.Join(errs, errors.New("account id is missing"))
	}
	if err := ValidateCurrency(a.Currency); err != nil {
		errs = errors.Join(errs, err)
	}
	if a.Kind != Cash && a.Kind != Investment {
		errs = errors.Join(errs, fmt.Errorf("invalid account kind %d", a.Kind))
	}
	if errs != nil {
		return fmt.Errorf("invalid account %q: %w", a.ID, errs)
	}
	return nil
}

// Security is a tradable instrument priced in its own settlement currency.
type Security struct {
	ID       ID     `json:"id"`
	Ticker   string `json:"ticker,omitempty"`
	Currency string `json:"currency"`
}

// Validate checks the security fields.
func (s Security) Validate() error {
	if s.ID == "" {
		return errors.New("security id is missing")
	}
	if err := ValidateCurrency(s.Currency); err != nil {
		return fmt.Errorf("invalid security %q: %w", s.ID, err)
	}
	return nil
}
