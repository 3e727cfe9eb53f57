// Package feed extracts dated prices and currency rates from JSON payloads
// of market data providers.
//
// Providers disagree on the payload shape, a Mapping locates the rows and
// their fields with jsonpath expressions. For instance
//
//	{"data": {"series": [{"d": "2025-01-02", "v": "1,08"}]}}
//
// is read with Rows "$.data.series[*]", Date "$.d" and Value "$.v".
package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/ledger"
	"github.com/etnz/ledger/date"
	"github.com/shopspring/decimal"
)

// Mapping locates the rows of a payload and the fields of each row.
type Mapping struct {
	Rows  string // path to the rows, from the payload root.
	Date  string // path to the row date, from the row.
	Value string // path to the row value, from the row.
	// DateLayout is the time layout of string dates. Empty means the
	// ledger date format. Numeric dates are always unix seconds.
	DateLayout string
}

// DefaultMapping reads a list of {"date":..., "close":...} objects.
var DefaultMapping = Mapping{Rows: "$[*]", Date: "$.date", Value: "$.close"}

// Row is a dated value read from a payload.
type Row struct {
	Date  date.Date
	Value decimal.Decimal
}

// Decode reads a JSON payload keeping numbers exact.
func Decode(r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid json payload: %w", err)
	}
	return doc, nil
}

// Extract returns the rows of doc located by m.
func Extract(doc any, m Mapping) ([]Row, error) {
	if m.Rows == "" || m.Date == "" || m.Value == "" {
		return nil, errors.New("mapping requires rows, date and value paths")
	}
	jrows, err := jsonpath.Get(m.Rows, doc)
	if err != nil {
		return nil, fmt.Errorf("error parsing rows %q: %w", m.Rows, err)
	}
	list, ok := jrows.([]any)
	if !ok {
		list = []any{jrows}
	}

	rows := make([]Row, 0, len(list))
	for i, jrow := range list {
		jdate, err := get(m.Date, jrow)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		on, err := toDate(jdate, m.DateLayout)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		jval, err := get(m.Value, jrow)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		val, err := toDecimal(jval)
		if err != nil {
			return nil, fmt.Errorf("row %d on %s: %w", i, on, err)
		}
		rows = append(rows, Row{Date: on, Value: val})
	}
	return rows, nil
}

// Prices returns the rows of doc as prices of security.
func Prices(doc any, security ledger.ID, m Mapping) ([]ledger.Price, error) {
	rows, err := Extract(doc, m)
	if err != nil {
		return nil, err
	}
	prices := make([]ledger.Price, 0, len(rows))
	for _, r := range rows {
		p := ledger.Price{Security: security, Date: r.Date, Value: r.Value}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		prices = append(prices, p)
	}
	return prices, nil
}

// Rates returns the rows of doc as from/to conversion rates.
func Rates(doc any, from, to string, m Mapping) ([]ledger.FxRate, error) {
	rows, err := Extract(doc, m)
	if err != nil {
		return nil, err
	}
	rates := make([]ledger.FxRate, 0, len(rows))
	for _, r := range rows {
		rate := ledger.FxRate{From: from, To: to, Date: r.Date, Rate: r.Value}
		if err := rate.Validate(); err != nil {
			return nil, err
		}
		rates = append(rates, rate)
	}
	return rates, nil
}

// get evaluates path on v.
func get(path string, v any) (any, error) {
	jval, err := jsonpath.Get(path, v)
	if err != nil {
		return nil, fmt.Errorf("error parsing %q: %w", path, err)
	}
	// because jsonpath is never clear about whether it returns a list of 1
	// answer, or a single answer: keep the first one if any.
	if jlist, ok := jval.([]any); ok {
		if len(jlist) == 0 {
			return nil, fmt.Errorf("no value at %q", path)
		}
		jval = jlist[0]
	}
	return jval, nil
}

func toDate(v any, layout string) (date.Date, error) {
	switch x := v.(type) {
	case string:
		if layout == "" {
			return date.Parse(x)
		}
		t, err := time.Parse(layout, x)
		if err != nil {
			return date.Date{}, fmt.Errorf("invalid date %q: %w", x, err)
		}
		return date.FromTime(t), nil
	case json.Number:
		sec, err := x.Int64()
		if err != nil {
			return date.Date{}, fmt.Errorf("invalid timestamp %q: %w", x, err)
		}
		return date.FromTime(time.Unix(sec, 0).UTC()), nil
	default:
		return date.Date{}, fmt.Errorf("cannot read a date from %T %v", v, v)
	}
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case json.Number:
		return decimal.NewFromString(x.String())
	case float64:
		return decimal.NewFromFloat(x), nil
	case string:
		// some providers write decimal commas and thousand spaces.
		s := strings.ReplaceAll(x, ",", ".")
		s = strings.ReplaceAll(s, " ", "")
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid value %q: %w", x, err)
		}
		return d, nil
	default:
		return decimal.Zero, fmt.Errorf("cannot read a value from %T %v", v, v)
	}
}
