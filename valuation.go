package ledger

import (
	"errors"
	"fmt"

	"github.com/etnz/ledger/date"
	"github.com/shopspring/decimal"
)

// DegradationKind tells which market data was missing.
type DegradationKind int

const (
	// MissingPriceData means no price existed on or before the transaction
	// date, the transaction contributed 0.
	MissingPriceData DegradationKind = iota
	// MissingFxRate means no rate existed on or before the transaction date,
	// the amount was taken unconverted (rate 1).
	MissingFxRate
)

func (k DegradationKind) String() string {
	switch k {
	case MissingPriceData:
		return "missing-price"
	case MissingFxRate:
		return "missing-fx-rate"
	default:
		return "unknown"
	}
}

// Degradation records a default value used in place of missing market data.
// It is an error wrapping ErrMissingPriceData or ErrMissingFxRate.
type Degradation struct {
	Kind        DegradationKind
	Transaction ID
	Security    ID        // for MissingPriceData
	From, To    string    // for MissingFxRate
	On          date.Date // the as-of date that was looked up
	Default     decimal.Decimal
}

func (d Degradation) Error() string {
	switch d.Kind {
	case MissingPriceData:
		return fmt.Sprintf("transaction %q: no price for %q as of %s, valued at %s", d.Transaction, d.Security, d.On, d.Default)
	case MissingFxRate:
		return fmt.Sprintf("transaction %q: no %s/%s rate as of %s, converted at %s", d.Transaction, d.From, d.To, d.On, d.Default)
	default:
		return fmt.Sprintf("transaction %q: degraded valuation", d.Transaction)
	}
}

// Unwrap makes errors.Is(d, ErrMissingPriceData) and friends work.
func (d Degradation) Unwrap() error {
	switch d.Kind {
	case MissingPriceData:
		return ErrMissingPriceData
	case MissingFxRate:
		return ErrMissingFxRate
	default:
		return nil
	}
}

// Valuation is the balance of a period together with every default that
// was used to compute it.
type Valuation struct {
	Account      ID
	Period       ID
	Balance      Money // full precision, see Rounded.
	Degradations []Degradation
}

// Rounded returns the balance rounded to the account currency convention.
func (v Valuation) Rounded() Money { return v.Balance.Round() }

// Degraded reports whether any default was used.
func (v Valuation) Degraded() bool { return len(v.Degradations) > 0 }

// Err joins all the degradations, or returns nil.
func (v Valuation) Err() error {
	if !v.Degraded() {
		return nil
	}
	errs := make([]error, len(v.Degradations))
	for i, d := range v.Degradations {
		errs[i] = d
	}
	return errors.Join(errs...)
}

// MissingDataPolicy decides what a degraded valuation turns into.
type MissingDataPolicy int

const (
	// Warn returns degraded valuations and logs every degradation.
	Warn MissingDataPolicy = iota
	// Reject turns degraded valuations into errors.
	Reject
)

func (p MissingDataPolicy) String() string {
	switch p {
	case Warn:
		return "warn"
	case Reject:
		return "reject"
	default:
		return "unknown"
	}
}

// ParseMissingDataPolicy parses "warn" or "reject".
func ParseMissingDataPolicy(s string) (MissingDataPolicy, error) {
	switch s {
	case "warn", "":
		return Warn, nil
	case "reject":
		return Reject, nil
	default:
		return Warn, fmt.Errorf("unknown missing data policy: %q", s)
	}
}
