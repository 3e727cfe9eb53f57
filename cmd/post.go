package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/ledger"
	"github.com/google/subcommands"
)

// header flags shared by the post commands.
type header struct {
	account  string
	date     string
	typ      string
	category string
	memo     string
}

func (h *header) SetFlags(f *flag.FlagSet) {
	f.StringVar(&h.account, "account", "", "Account to post into (required)")
	f.StringVar(&h.date, "date", "", "Transaction date (YYYY-MM-DD), defaults to today")
	f.StringVar(&h.typ, "type", "", "Transaction type (e.g., deposit, buy)")
	f.StringVar(&h.category, "category", "", "Transaction category (e.g., groceries)")
	f.StringVar(&h.memo, "memo", "", "Free text note")
}

// parse returns the transaction header described by the flags.
func (h *header) parse() (ledger.Header, error) {
	on, err := parseDay("date", h.date)
	if err != nil {
		return ledger.Header{}, err
	}
	return ledger.Header{
		Date:     on,
		Type:     ledger.TransactionType(h.typ),
		Category: ledger.TransactionCategory(h.category),
		Memo:     h.memo,
	}, nil
}

// post posts tx into account and prints the stored transaction.
func post(ctx context.Context, account ledger.ID, tx ledger.Transaction) subcommands.ExitStatus {
	return write(ctx, func(ctx context.Context, s *session) error {
		posted, err := s.store.Post(ctx, account, tx)
		if err != nil {
			return err
		}
		h := posted.Head()
		fmt.Fprintf(stdout, "✅ Posted %s into %q (period %s).\n", h.ID, account, h.Period)
		return nil
	})
}

type postCashCmd struct {
	header
	amount string
}

func (*postCashCmd) Name() string { return "post-cash" }
func (*postCashCmd) Synopsis() string {
	return "post a cash transaction into the open period of an account"
}
func (*postCashCmd) Usage() string {
	return `ldg post-cash -account <id> -amount <amount> [-date <date>] [-type <type>] [-category <category>] [-memo <memo>]

  Posts a signed amount: positive for money in, negative for money out.
  The amount is in the account currency.
`
}

func (c *postCashCmd) SetFlags(f *flag.FlagSet) {
	c.header.SetFlags(f)
	f.StringVar(&c.amount, "amount", "", "Signed amount in the account currency (required)")
}

func (c *postCashCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.account == "" || c.amount == "" {
		fmt.Fprintln(os.Stderr, "Error: -account and -amount flags are required.")
		return subcommands.ExitUsageError
	}
	h, err := c.header.parse()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitUsageError
	}
	amount, err := parseMoney("amount", c.amount, "")
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitUsageError
	}
	return post(ctx, ledger.ID(c.account), ledger.CashTransaction{Header: h, Amount: amount})
}

type postInvestmentCmd struct {
	header
	security string
	quantity string
	price    string
	fees     string
}

func (*postInvestmentCmd) Name() string { return "post-investment" }
func (*postInvestmentCmd) Synopsis() string {
	return "post a security trade into the open period of an investment account"
}
func (*postInvestmentCmd) Usage() string {
	return `ldg post-investment -account <id> -security <id> -quantity <qty> -price <price> [-fees <fees>] [-date <date>] [-memo <memo>]

  Posts a trade: a positive quantity buys, a negative quantity sells.
  Price and fees are in the security currency. The balance values the
  quantity at the market price of the trade date, not at the trade price.
`
}

func (c *postInvestmentCmd) SetFlags(f *flag.FlagSet) {
	c.header.SetFlags(f)
	f.StringVar(&c.security, "security", "", "Security identifier (required)")
	f.StringVar(&c.quantity, "quantity", "", "Signed quantity (required)")
	f.StringVar(&c.price, "price", "", "Unit price in the security currency (required)")
	f.StringVar(&c.fees, "fees", "", "Fees or commission in the security currency")
}

func (c *postInvestmentCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.account == "" || c.security == "" || c.quantity == "" || c.price == "" {
		fmt.Fprintln(os.Stderr, "Error: -account, -security, -quantity and -price flags are required.")
		return subcommands.ExitUsageError
	}
	h, err := c.header.parse()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitUsageError
	}
	qty, err := ledger.ParseQuantity(c.quantity)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error: invalid -quantity:", err)
		return subcommands.ExitUsageError
	}
	price, err := parseMoney("price", c.price, "")
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitUsageError
	}
	tx := ledger.NewInvestment(h.Date, ledger.ID(c.security), qty, price)
	tx.Header = h
	if c.fees != "" {
		if tx.Fees, err = parseMoney("fees", c.fees, ""); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			return subcommands.ExitUsageError
		}
	}
	return post(ctx, ledger.ID(c.account), tx)
}
