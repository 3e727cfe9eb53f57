package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/ledger"
	"github.com/google/subcommands"
)

type transferCmd struct {
	from   string
	to     string
	date   string
	amount string
	memo   string
}

func (*transferCmd) Name() string     { return "transfer" }
func (*transferCmd) Synopsis() string { return "move cash between two accounts" }
func (*transferCmd) Usage() string {
	return `ldg transfer -from <id> -to <id> -amount <amount> [-date <date>] [-memo <memo>]

  Posts a withdrawal into the source account and the mirrored deposit into
  the destination account. Both legs are posted, or none.
`
}

func (c *transferCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.from, "from", "", "Source cash account (required)")
	f.StringVar(&c.to, "to", "", "Destination cash account (required)")
	f.StringVar(&c.date, "date", "", "Transfer date (YYYY-MM-DD), defaults to today")
	f.StringVar(&c.amount, "amount", "", "Positive amount to transfer (required)")
	f.StringVar(&c.memo, "memo", "", "Free text note")
}

func (c *transferCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.from == "" || c.to == "" || c.amount == "" {
		fmt.Fprintln(os.Stderr, "Error: -from, -to and -amount flags are required.")
		return subcommands.ExitUsageError
	}
	on, err := parseDay("date", c.date)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitUsageError
	}
	amount, err := parseMoney("amount", c.amount, "")
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitUsageError
	}

	return write(ctx, func(ctx context.Context, s *session) error {
		from, err := s.store.Account(ctx, ledger.ID(c.from))
		if err != nil {
			return err
		}
		to, err := s.store.Account(ctx, ledger.ID(c.to))
		if err != nil {
			return err
		}
		pair, err := ledger.NewTransfer(from, to, on, amount, c.memo)
		if err != nil {
			return err
		}
		src, _, err := s.store.PostTransfer(ctx, pair)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "✅ Transferred %s from %q to %q (%s).\n", amount, c.from, c.to, src.Head().ID)
		return nil
	})
}
