package ledger

import (
	"cmp"
	"errors"
	"fmt"
	"iter"
	"maps"
	"slices"

	"github.com/etnz/ledger/date"
	"github.com/shopspring/decimal"
)

// Price is the closing price of a security on a day, in the security currency.
type Price struct {
	Security ID              `json:"security"`
	Date     date.Date       `json:"date"`
	Value    decimal.Decimal `json:"price"`
}

// Validate checks the price fields.
func (p Price) Validate() error {
	if p.Security == "" {
		return errors.New("price security is missing")
	}
	if p.Date.IsZero() {
		return errors.New("price date is missing")
	}
	if p.Value.IsNegative() {
		return fmt.Errorf("price of %q on %s must not be negative", p.Security, p.Date)
	}
	return nil
}

// PriceIndex answers point-in-time price lookups. At most one price is kept
// per (security, day), the last one added wins.
type PriceIndex struct {
	prices map[ID]*date.History[decimal.Decimal]
}

// NewPriceIndex returns an index holding prices.
func NewPriceIndex(prices ...Price) *PriceIndex {
	p := &PriceIndex{prices: make(map[ID]*date.History[decimal.Decimal])}
	p.Add(prices...)
	return p
}

// Add records prices.
func (p *PriceIndex) Add(prices ...Price) {
	for _, price := range prices {
		h, ok := p.prices[price.Security]
		if !ok {
			h = new(date.History[decimal.Decimal])
			p.prices[price.Security] = h
		}
		h.Append(price.Date, price.Value)
	}
}

// LatestPriceAsOf returns the most recent price of security dated on or
// before on. It returns false when no such price exists.
func (p *PriceIndex) LatestPriceAsOf(security ID, on date.Date) (decimal.Decimal, bool) {
	if p == nil {
		return decimal.Zero, false
	}
	h, ok := p.prices[security]
	if !ok {
		return decimal.Zero, false
	}
	v, ok := h.ValueAsOf(on)
	if !ok {
		return decimal.Zero, false
	}
	return v, true
}

// Len returns the number of prices in the index.
func (p *PriceIndex) Len() (n int) {
	for _, h := range p.prices {
		n += h.Len()
	}
	return n
}

// Prices iterates over all prices, by security then by date.
func (p *PriceIndex) Prices() iter.Seq[Price] {
	return func(yield func(Price) bool) {
		for _, sec := range slices.Sorted(maps.Keys(p.prices)) {
			for on, v := range p.prices[sec].Values() {
				if !yield(Price{Security: sec, Date: on, Value: v}) {
					return
				}
			}
		}
	}
}

// FxRate converts one unit of From into Rate units of To, on a day.
type FxRate struct {
	From string          `json:"from"`
	To   string          `json:"to"`
	Date date.Date       `json:"date"`
	Rate decimal.Decimal `json:"rate"`
}

// Validate checks the rate fields.
func (r FxRate) Validate() error {
	if err := ValidateCurrency(r.From); err != nil {
		return err
	}
	if err := ValidateCurrency(r.To); err != nil {
		return err
	}
	if r.From == r.To {
		return fmt.Errorf("rate from %s to itself", r.From)
	}
	if r.Date.IsZero() {
		return errors.New("rate date is missing")
	}
	if !r.Rate.IsPositive() {
		return fmt.Errorf("rate %s/%s on %s must be positive", r.From, r.To, r.Date)
	}
	return nil
}

type pair struct{ from, to string }

// FxIndex answers point-in-time currency conversion lookups. At most one
// rate is kept per (pair, day).
type FxIndex struct {
	rates map[pair]*date.History[decimal.Decimal]
}

// NewFxIndex returns an index holding rates.
func NewFxIndex(rates ...FxRate) *FxIndex {
	x := &FxIndex{rates: make(map[pair]*date.History[decimal.Decimal])}
	x.Add(rates...)
	return x
}

// Add records rates.
func (x *FxIndex) Add(rates ...FxRate) {
	for _, r := range rates {
		k := pair{r.From, r.To}
		h, ok := x.rates[k]
		if !ok {
			h = new(date.History[decimal.Decimal])
			x.rates[k] = h
		}
		h.Append(r.Date, r.Rate)
	}
}

// LatestRateAsOf returns the most recent rate to convert from into to,
// dated on or before on.
//
// Identical currencies convert at 1 without a lookup. When only the reverse
// pair is known, its inverse is used, the most recent of both wins. When no
// rate exists at all, it returns 1 and false: the caller decides whether an
// unconverted amount is acceptable.
func (x *FxIndex) LatestRateAsOf(from, to string, on date.Date) (decimal.Decimal, bool) {
	if from == to {
		return decimal.NewFromInt(1), true
	}
	if x == nil {
		return decimal.NewFromInt(1), false
	}
	var (
		direct, inverse       decimal.Decimal
		directOn, inverseOn   date.Date
		hasDirect, hasInverse bool
	)
	if h, ok := x.rates[pair{from, to}]; ok {
		directOn, hasDirect = h.DateAsOf(on)
		direct, _ = h.ValueAsOf(on)
	}
	if h, ok := x.rates[pair{to, from}]; ok {
		inverseOn, hasInverse = h.DateAsOf(on)
		inverse, _ = h.ValueAsOf(on)
	}
	switch {
	case hasDirect && (!hasInverse || !inverseOn.After(directOn)):
		return direct, true
	case hasInverse:
		return decimal.NewFromInt(1).DivRound(inverse, 2*PricePlaces), true
	default:
		return decimal.NewFromInt(1), false
	}
}

// Len returns the number of rates in the index.
func (x *FxIndex) Len() (n int) {
	for _, h := range x.rates {
		n += h.Len()
	}
	return n
}

// Rates iterates over all rates, by pair then by date.
func (x *FxIndex) Rates() iter.Seq[FxRate] {
	return func(yield func(FxRate) bool) {
		keys := slices.SortedFunc(maps.Keys(x.rates), func(a, b pair) int {
			return cmp.Or(cmp.Compare(a.from, b.from), cmp.Compare(a.to, b.to))
		})
		for _, k := range keys {
			for on, v := range x.rates[k].Values() {
				if !yield(FxRate{From: k.from, To: k.to, Date: on, Rate: v}) {
					return
				}
			}
		}
	}
}
