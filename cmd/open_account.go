package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/ledger"
	"github.com/google/subcommands"
)

type openAccountCmd struct {
	id       string
	name     string
	currency string
	kind     string
	start    string
	opening  string
}

func (*openAccountCmd) Name() string     { return "open-account" }
func (*openAccountCmd) Synopsis() string { return "open a new account and its first period" }
func (*openAccountCmd) Usage() string {
	return `ldg open-account -id <id> -currency <currency> [-name <name>] [-kind cash|investment] [-start <date>] [-opening <amount>]

  Opens an account with its first period:
  - id: The unique identifier of the account (e.g., "checking").
  - currency: The 3-letter currency code of the account (e.g., "EUR").
  - kind: "cash" sums signed amounts, "investment" values securities.
  - start: The first day of the first period, defaults to today.
  - opening: The opening balance of the first period, defaults to 0.
`
}

func (c *openAccountCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "Account identifier (required)")
	f.StringVar(&c.name, "name", "", "Account display name")
	f.StringVar(&c.currency, "currency", "", "Account currency, 3-letter code (required)")
	f.StringVar(&c.kind, "kind", "cash", "Account kind: cash or investment")
	f.StringVar(&c.start, "start", "", "Start date of the first period (YYYY-MM-DD), defaults to today")
	f.StringVar(&c.opening, "opening", "0", "Opening balance")
}

func (c *openAccountCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.id == "" || c.currency == "" {
		fmt.Fprintln(os.Stderr, "Error: -id and -currency flags are required.")
		return subcommands.ExitUsageError
	}
	kind, err := ledger.ParseAccountKind(c.kind)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitUsageError
	}
	start, err := parseDay("start", c.start)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitUsageError
	}
	opening, err := parseMoney("opening", c.opening, c.currency)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitUsageError
	}

	account := ledger.Account{ID: ledger.ID(c.id), Name: c.name, Currency: c.currency, Kind: kind, Active: true}
	return write(ctx, func(ctx context.Context, s *session) error {
		p, err := s.store.OpenAccount(ctx, account, start, opening)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "✅ Opened %s account %q, period %s starts on %s with %s.\n", kind, c.id, p.ID, p.Start, p.OpeningBalance)
		return nil
	})
}
