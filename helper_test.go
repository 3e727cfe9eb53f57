package ledger

import (
	"context"
	"testing"

	"github.com/etnz/ledger/date"
	"github.com/shopspring/decimal"
)

// EUR is a helper for test to create euro money from const
func EUR(v float64) Money { return M(v, "EUR") }

// USD is a helper for test to create usd money from const
func USD(v float64) Money { return M(v, "USD") }

// NO is a helper for test to create money from const with no currency set
func NO(v float64) Money { return M(v, "") }

// day parses a test date.
func day(s string) date.Date { return date.MustParse(s) }

// dec parses a test decimal.
func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// ctx is the context of test calls.
var ctx = context.Background()

var (
	checking = Account{ID: "checking", Name: "Checking", Currency: "USD", Kind: Cash, Active: true}
	savings  = Account{ID: "savings", Name: "Savings", Currency: "USD", Kind: Cash, Active: true}
	broker   = Account{ID: "broker", Name: "Broker", Currency: "USD", Kind: Investment, Active: true}
	pea      = Account{ID: "pea", Name: "PEA", Currency: "EUR", Kind: Investment, Active: true}
	wallet   = Account{ID: "wallet", Name: "Wallet", Currency: "JPY", Kind: Cash, Active: true}

	acme = Security{ID: "acme", Ticker: "ACME", Currency: "USD"}
	lvmh = Security{ID: "lvmh", Ticker: "MC.PA", Currency: "EUR"}
)

// securities returns the test securities by ID.
func securities() map[ID]Security {
	return map[ID]Security{acme.ID: acme, lvmh.ID: lvmh}
}

// newTestBook returns a book holding the test accounts, each with an open
// period started on 2025-01-01, and the test securities.
func newTestBook(t *testing.T, openings map[ID]Money) *Book {
	t.Helper()
	b := NewBook()
	for _, s := range []Security{acme, lvmh} {
		if err := b.AddSecurity(ctx, s); err != nil {
			t.Fatalf("AddSecurity(%q) failed: %v", s.ID, err)
		}
	}
	for _, a := range []Account{checking, savings, broker, pea} {
		if _, err := b.OpenAccount(ctx, a, day("2025-01-01"), openings[a.ID]); err != nil {
			t.Fatalf("OpenAccount(%q) failed: %v", a.ID, err)
		}
	}
	return b
}

// mustPost posts tx or fails the test.
func mustPost(t *testing.T, b *Book, account ID, tx Transaction) Transaction {
	t.Helper()
	posted, err := b.Post(ctx, account, tx)
	if err != nil {
		t.Fatalf("Post(%q, %v) failed: %v", account, tx, err)
	}
	return posted
}
