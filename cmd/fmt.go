package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/ledger"
	"github.com/etnz/ledger/config"
	"github.com/google/subcommands"
)

type fmtCmd struct {
	outputFile string
}

func (*fmtCmd) Name() string { return "fmt" }
func (*fmtCmd) Synopsis() string {
	return "validates and formats the ledger file into a canonical form"
}
func (*fmtCmd) Usage() string {
	return `ldg fmt [-o <file>]

  Validates and formats a jsonl ledger. This command replays every record,
  checking every period rule, and writes them back in the canonical order:
  accounts, securities, prices, rates, then the periods of each account
  with their transactions.
  By default, it formats the ledger in-place.
`
}

func (p *fmtCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.outputFile, "o", "", "Write the formatted ledger to this file instead.")
}

func (p *fmtCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(ctx context.Context, s *session) error {
		if s.cfg.Storage.Driver != config.DriverJSONL {
			return fmt.Errorf("fmt only applies to the %s driver, not %s", config.DriverJSONL, s.cfg.Storage.Driver)
		}
		if _, err := os.Stat(s.cfg.Storage.Path); err != nil {
			return err
		}
		out := s.cfg.Storage.Path
		if p.outputFile != "" {
			out = p.outputFile
		}
		if err := ledger.SaveBook(out, s.book); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "✅ Formatted %s.\n", out)
		return nil
	})
}
