package cmd

import (
	"fmt"

	"github.com/etnz/ledger"
	"github.com/etnz/ledger/date"
)

// parseDay parses a YYYY-MM-DD flag, an empty flag means today.
func parseDay(name, value string) (date.Date, error) {
	if value == "" {
		return date.Today(), nil
	}
	d, err := date.Parse(value)
	if err != nil {
		return d, fmt.Errorf("invalid -%s: %w", name, err)
	}
	return d, nil
}

// parseMoney parses an amount flag. The currency may be left empty, it is
// then taken from the account.
func parseMoney(name, value, currency string) (ledger.Money, error) {
	m, err := ledger.ParseMoney(value, currency)
	if err != nil {
		return m, fmt.Errorf("invalid -%s: %w", name, err)
	}
	return m, nil
}
