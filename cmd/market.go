package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/ledger"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

type addPriceCmd struct {
	security string
	date     string
	price    string
}

func (*addPriceCmd) Name() string     { return "add-price" }
func (*addPriceCmd) Synopsis() string { return "record the price of a security on a day" }
func (*addPriceCmd) Usage() string {
	return `ldg add-price -security <id> -price <price> [-date <date>]

  Records the unit price of a security, in the security currency. A price
  recorded for the same day replaces the previous one.
`
}

func (c *addPriceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.security, "security", "", "Security identifier (required)")
	f.StringVar(&c.date, "date", "", "Price date (YYYY-MM-DD), defaults to today")
	f.StringVar(&c.price, "price", "", "Unit price (required)")
}

func (c *addPriceCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.security == "" || c.price == "" {
		fmt.Fprintln(os.Stderr, "Error: -security and -price flags are required.")
		return subcommands.ExitUsageError
	}
	on, err := parseDay("date", c.date)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitUsageError
	}
	value, err := decimal.NewFromString(c.price)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid -price %q: %v\n", c.price, err)
		return subcommands.ExitUsageError
	}

	p := ledger.Price{Security: ledger.ID(c.security), Date: on, Value: value}
	return write(ctx, func(ctx context.Context, s *session) error {
		if err := s.store.AddPrice(ctx, p); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "✅ %s is worth %s on %s.\n", c.security, value, on)
		return nil
	})
}

type addRateCmd struct {
	from string
	to   string
	date string
	rate string
}

func (*addRateCmd) Name() string     { return "add-rate" }
func (*addRateCmd) Synopsis() string { return "record a currency conversion rate on a day" }
func (*addRateCmd) Usage() string {
	return `ldg add-rate -from <currency> -to <currency> -rate <rate> [-date <date>]

  Records that 1 unit of -from is worth -rate units of -to. The inverse
  conversion is derived from it when it is not recorded.
`
}

func (c *addRateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.from, "from", "", "Source currency (required)")
	f.StringVar(&c.to, "to", "", "Target currency (required)")
	f.StringVar(&c.date, "date", "", "Rate date (YYYY-MM-DD), defaults to today")
	f.StringVar(&c.rate, "rate", "", "Conversion rate (required)")
}

func (c *addRateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.from == "" || c.to == "" || c.rate == "" {
		fmt.Fprintln(os.Stderr, "Error: -from, -to and -rate flags are required.")
		return subcommands.ExitUsageError
	}
	on, err := parseDay("date", c.date)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitUsageError
	}
	rate, err := decimal.NewFromString(c.rate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid -rate %q: %v\n", c.rate, err)
		return subcommands.ExitUsageError
	}

	r := ledger.FxRate{From: c.from, To: c.to, Date: on, Rate: rate}
	return write(ctx, func(ctx context.Context, s *session) error {
		if err := s.store.AddRate(ctx, r); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "✅ 1 %s is worth %s %s on %s.\n", c.from, rate, c.to, on)
		return nil
	})
}

type priceCmd struct {
	security string
	date     string
}

func (*priceCmd) Name() string     { return "price" }
func (*priceCmd) Synopsis() string { return "display the price of a security as of a day" }
func (*priceCmd) Usage() string {
	return `ldg price -security <id> [-date <date>]

  Displays the price investments in the security dated -date are valued
  at: the most recent price recorded on or before that day.
`
}

func (c *priceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.security, "security", "", "Security identifier (required)")
	f.StringVar(&c.date, "date", "", "Valuation date (YYYY-MM-DD), defaults to today")
}

func (c *priceCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.security == "" {
		fmt.Fprintln(os.Stderr, "Error: -security flag is required.")
		return subcommands.ExitUsageError
	}
	on, err := parseDay("date", c.date)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitUsageError
	}

	return run(ctx, func(ctx context.Context, s *session) error {
		price, ok, err := s.service().PriceAsOf(ctx, ledger.ID(c.security), on)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no price for %q on or before %s: %w", c.security, on, ledger.ErrMissingPriceData)
		}
		fmt.Fprintf(stdout, "%s is worth %s as of %s.\n", c.security, price, on)
		return nil
	})
}
