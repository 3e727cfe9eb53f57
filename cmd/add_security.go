package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/ledger"
	"github.com/google/subcommands"
)

type addSecurityCmd struct {
	id       string
	ticker   string
	currency string
}

func (*addSecurityCmd) Name() string { return "add-security" }
func (*addSecurityCmd) Synopsis() string {
	return "declare a security that investment accounts can hold"
}
func (*addSecurityCmd) Usage() string {
	return `ldg add-security -id <id> -currency <currency> [-ticker <ticker>]

  Declares a new security:
  - id: The unique identifier for the security (e.g., "US0378331005").
  - ticker: The ticker symbol for the security (e.g., "AAPL").
  - currency: The 3-letter currency code the security is priced in (e.g., "USD").
`
}

func (c *addSecurityCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "Unique security identifier (required)")
	f.StringVar(&c.ticker, "ticker", "", "Security ticker symbol")
	f.StringVar(&c.currency, "currency", "", "Security's currency, 3-letter code (required)")
}

func (c *addSecurityCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.id == "" || c.currency == "" {
		fmt.Fprintln(os.Stderr, "Error: -id and -currency flags are required.")
		return subcommands.ExitUsageError
	}
	if err := ledger.ValidateCurrency(c.currency); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitUsageError
	}

	sec := ledger.Security{ID: ledger.ID(c.id), Ticker: c.ticker, Currency: c.currency}
	return write(ctx, func(ctx context.Context, s *session) error {
		if err := s.store.AddSecurity(ctx, sec); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "✅ Successfully added security '%s'.\n", c.id)
		return nil
	})
}
