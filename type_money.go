package ledger

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// MoneyPlaces is the fixed-point precision of cash amounts and balances.
const MoneyPlaces = 2

// PricePlaces is the fixed-point precision of investment prices and quantities.
const PricePlaces = 6

// currencyCodeRegex checks for the format: 3 uppercase letters.
var currencyCodeRegex = regexp.MustCompile(`^[A-Z]{3}$`)

// ValidateCurrency checks that code is a known ISO 4217 currency code.
func ValidateCurrency(code string) error {
	if !currencyCodeRegex.MatchString(code) {
		return fmt.Errorf("invalid currency %q: must be 3 uppercase letters", code)
	}
	if money.GetCurrency(code) == nil {
		return fmt.Errorf("invalid currency %q: unknown ISO 4217 code", code)
	}
	return nil
}

// Money represents a monetary value.
//
// Arithmetic keeps every digit, rounding to the currency convention only
// happens in Round, String and when persisting.
type Money struct {
	value      decimal.Decimal // as major unit value
	cur        string
	fractional bool // true to persist in full digits
}

// number is the set of types accepted by the M and Q factories.
type number interface {
	float32 | float64 | int | int32 | int64 | uint | uint32 | uint64 | decimal.Decimal
}

// newDecimal is a convenient factory for decimal.Decimal
func newDecimal[T number](value T) decimal.Decimal {
	switch v := any(value).(type) {
	case decimal.Decimal:
		return v
	case float32:
		return decimal.NewFromFloat32(v)
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int32:
		return decimal.NewFromInt32(v)
	case int64:
		return decimal.NewFromInt(v)
	case uint:
		return decimal.NewFromUint64(uint64(v))
	case uint32:
		return decimal.NewFromUint64(uint64(v))
	case uint64:
		return decimal.NewFromUint64(v)
	default:
		panic("unsupported type")
	}
}

// M returns a Money of value in currency.
func M[T number](value T, currency string) Money {
	return Money{value: newDecimal(value), cur: currency}
}

// ParseMoney parses a decimal string into Money.
func ParseMoney(s, currency string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return M(d, currency), nil
}

// fraction returns the number of minor digits of the money's currency.
func (m Money) fraction() int32 {
	if c := money.GetCurrency(m.cur); c != nil {
		return int32(c.Fraction)
	}
	return MoneyPlaces
}

func (m Money) Currency() string         { return m.cur }
func (m Money) Decimal() decimal.Decimal { return m.value }
func (m Money) Equal(n Money) bool       { return m.value.Equal(n.value) && m.cur == n.cur }
func (m Money) IsZero() bool             { return m.value.IsZero() }
func (m Money) IsPositive() bool         { return m.value.IsPositive() }
func (m Money) IsNegative() bool         { return m.value.IsNegative() }
func (m Money) LessThan(n Money) bool    { return m.value.LessThan(n.value) }
func (m Money) GreaterThan(n Money) bool { return m.value.GreaterThan(n.value) }
func (m Money) Neg() Money               { return Money{value: m.value.Neg(), cur: m.cur} }
func (m Money) Mul(q Quantity) Money     { return Money{value: m.value.Mul(q.value), cur: m.cur} }
func (m Money) Convert(rate decimal.Decimal, to string) Money {
	return Money{value: m.value.Mul(rate), cur: to}
}

// binary operators.
func (m Money) Add(n Money) Money { return Money{value: m.value.Add(n.value), cur: cur(m, n)} }
func (m Money) Sub(n Money) Money { return Money{value: m.value.Sub(n.value), cur: cur(m, n)} }

// makes the "" currency totally weak.
func cur(a, b Money) string {
	if a.cur == "" {
		return b.cur
	}
	if b.cur == "" {
		return a.cur
	}
	if a.cur != b.cur {
		panic("currency mismatch " + a.cur + "!=" + b.cur)
	}
	return a.cur
}

// Round returns m rounded to its currency's minor unit (banker's rounding).
func (m Money) Round() Money {
	return Money{value: m.value.RoundBank(m.fraction()), cur: m.cur}
}

// places returns the decimals a cash amount may carry in m's currency:
// the currency minor unit, capped at MoneyPlaces.
func (m Money) places() int32 { return min(m.fraction(), MoneyPlaces) }

// fitsIn reports whether m has no more than places decimals.
func (m Money) fitsIn(places int32) bool { return m.value.Equal(m.value.Truncate(places)) }

// String returns the string representation of the rounded money value.
func (m Money) String() string {
	c := money.GetCurrency(m.cur)
	if c == nil {
		return m.value.StringFixed(MoneyPlaces) + " " + m.cur
	}
	dec := m.value.Shift(int32(c.Fraction)).RoundBank(0)
	return c.Formatter().Format(dec.IntPart())
}

// SignedString returns the string representation of the money value with a sign.
func (m Money) SignedString() string {
	if m.value.IsPositive() {
		return "+" + m.String()
	}
	return m.String()
}

// exact return a copy of money that will be persisted with all the digits.
func (m Money) exact() Money {
	m.fractional = true
	return m
}

// MarshalJSON writes {"currency":..., "amount":...}.
func (m Money) MarshalJSON() ([]byte, error) {
	var w objectWriter
	w.Optional("currency", m.cur)
	amount := m.value
	if !m.fractional {
		amount = m.value.RoundBank(m.fraction())
	}
	w.Append("amount", amount)
	return w.MarshalJSON()
}

// UnmarshalJSON reads the format written by MarshalJSON.
func (m *Money) UnmarshalJSON(data []byte) error {
	var j struct {
		Currency string          `json:"currency"`
		Amount   decimal.Decimal `json:"amount"`
	}
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	*m = M(j.Amount, j.Currency)
	return nil
}
