package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/ledger"
	"github.com/etnz/ledger/renderer"
	"github.com/google/subcommands"
)

// accountFlag is the -account flag of the report commands.
type accountFlag struct {
	account string
}

func (a *accountFlag) SetFlags(f *flag.FlagSet) {
	f.StringVar(&a.account, "account", "", "Account to report on (required)")
}

// report loads the account and prints the markdown built by fn.
func (a *accountFlag) report(ctx context.Context, fn func(ctx context.Context, svc *ledger.Service, account ledger.Account) (string, error)) subcommands.ExitStatus {
	if a.account == "" {
		fmt.Fprintln(os.Stderr, "Error: -account flag is required.")
		return subcommands.ExitUsageError
	}
	return run(ctx, func(ctx context.Context, s *session) error {
		account, err := s.store.Account(ctx, ledger.ID(a.account))
		if err != nil {
			return err
		}
		md, err := fn(ctx, s.service(), account)
		if err != nil {
			return err
		}
		printMarkdown(md)
		return nil
	})
}

type balanceCmd struct{ accountFlag }

func (*balanceCmd) Name() string     { return "balance" }
func (*balanceCmd) Synopsis() string { return "display the current balance of an account" }
func (*balanceCmd) Usage() string {
	return `ldg balance -account <id>

  Displays the balance of the open period: its opening balance plus its
  transactions. Investments are valued at the market price of their date.
  Missing market data is reported, or rejected when valuation.missing_data
  is "reject".
`
}

func (c *balanceCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.report(ctx, func(ctx context.Context, svc *ledger.Service, account ledger.Account) (string, error) {
		v, err := svc.CurrentBalance(ctx, account.ID)
		if err != nil {
			return "", err
		}
		return renderer.RenderBalance(account, v), nil
	})
}

type historyCmd struct{ accountFlag }

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "list the transactions of the open period" }
func (*historyCmd) Usage() string {
	return `ldg history -account <id>

  Lists the transactions of the open period of an account, by date.
`
}

func (c *historyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.report(ctx, func(ctx context.Context, svc *ledger.Service, account ledger.Account) (string, error) {
		txs, err := svc.TransactionHistory(ctx, account.ID)
		if err != nil {
			return "", err
		}
		return renderer.RenderHistory(account, txs), nil
	})
}

type statementCmd struct{ accountFlag }

func (*statementCmd) Name() string     { return "statement" }
func (*statementCmd) Synopsis() string { return "display every period of an account" }
func (*statementCmd) Usage() string {
	return `ldg statement -account <id>

  Displays one line per period with its opening and closing balances.
  Closed periods show their recorded closing, the open one its current
  balance.
`
}

func (c *statementCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.report(ctx, func(ctx context.Context, svc *ledger.Service, account ledger.Account) (string, error) {
		statements, err := svc.Statement(ctx, account.ID)
		if err != nil {
			return "", err
		}
		return renderer.RenderStatement(account, statements), nil
	})
}
