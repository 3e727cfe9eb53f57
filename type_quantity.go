package ledger

import "github.com/shopspring/decimal"

// Quantity is a number of units of a security.
type Quantity struct {
	value decimal.Decimal
}

// Q returns a Quantity of value units.
func Q[T number](value T) Quantity {
	return Quantity{value: newDecimal(value)}
}

// ParseQuantity parses a decimal string into a Quantity.
func ParseQuantity(s string) (Quantity, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Quantity{}, err
	}
	return Quantity{value: d}, nil
}

func (q Quantity) Decimal() decimal.Decimal { return q.value }
func (q Quantity) Neg() Quantity            { return Quantity{value: q.value.Neg()} }
func (q Quantity) IsNegative() bool         { return q.value.IsNegative() }
func (q Quantity) IsZero() bool             { return q.value.IsZero() }
func (q Quantity) String() string           { return q.value.String() }
func (q Quantity) fitsIn(places int32) bool { return q.value.Equal(q.value.Truncate(places)) }

// MarshalJSON implements the json.Marshaler interface.
func (q Quantity) MarshalJSON() ([]byte, error) {
	return q.value.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (q *Quantity) UnmarshalJSON(decimalBytes []byte) error {
	return q.value.UnmarshalJSON(decimalBytes)
}
