package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/ledger"
	"github.com/google/subcommands"
)

type closePeriodCmd struct {
	account string
	date    string
}

func (*closePeriodCmd) Name() string     { return "close-period" }
func (*closePeriodCmd) Synopsis() string { return "close the open period of an account" }
func (*closePeriodCmd) Usage() string {
	return `ldg close-period -account <id> [-date <date>]

  Closes the open period on the given day with its computed balance, and
  opens the next period the day after with that balance as opening.
`
}

func (c *closePeriodCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "account", "", "Account whose open period is closed (required)")
	f.StringVar(&c.date, "date", "", "Last day of the period (YYYY-MM-DD), defaults to today")
}

func (c *closePeriodCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.account == "" {
		fmt.Fprintln(os.Stderr, "Error: -account flag is required.")
		return subcommands.ExitUsageError
	}
	on, err := parseDay("date", c.date)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitUsageError
	}

	return write(ctx, func(ctx context.Context, s *session) error {
		closed, next, err := s.service().ClosePeriod(ctx, ledger.ID(c.account), on)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "✅ Closed period %s on %s at %s, period %s opens on %s.\n", closed.ID, closed.CloseDate, closed.ClosingBalance, next.ID, next.Start)
		return nil
	})
}
