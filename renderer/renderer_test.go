package renderer

import (
	"slices"
	"strings"
	"testing"

	"github.com/etnz/ledger"
	"github.com/etnz/ledger/date"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

var checking = ledger.Account{ID: "checking", Name: "Checking", Currency: "USD", Kind: ledger.Cash, Active: true}

func usd(v float64) ledger.Money { return ledger.M(v, "USD") }

func day(s string) date.Date { return date.MustParse(s) }

// document is the structure of a rendered markdown report.
type document struct {
	headings []string // "# title", "## subtitle"
	tables   [][][]string
	items    []string
	paras    []string
}

func parse(t *testing.T, md string) document {
	t.Helper()
	src := []byte(md)
	root := goldmark.New(goldmark.WithExtensions(extension.Table)).Parser().Parse(text.NewReader(src))

	var doc document
	err := ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *ast.Heading:
			doc.headings = append(doc.headings, strings.Repeat("#", v.Level)+" "+plain(v, src))
			return ast.WalkSkipChildren, nil
		case *extast.Table:
			var rows [][]string
			for r := v.FirstChild(); r != nil; r = r.NextSibling() {
				var row []string
				for c := r.FirstChild(); c != nil; c = c.NextSibling() {
					row = append(row, plain(c, src))
				}
				rows = append(rows, row)
			}
			doc.tables = append(doc.tables, rows)
			return ast.WalkSkipChildren, nil
		case *ast.ListItem:
			doc.items = append(doc.items, plain(v, src))
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph:
			doc.paras = append(doc.paras, plain(v, src))
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		t.Fatalf("cannot walk markdown: %v", err)
	}
	return doc
}

// plain returns the text content of n.
func plain(n ast.Node, src []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch v := c.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(src))
			if v.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(v.Value)
		default:
			b.WriteString(plain(c, src))
		}
	}
	return strings.TrimSpace(b.String())
}

func TestRenderBalance(t *testing.T) {
	v := ledger.Valuation{Account: "checking", Period: "p1", Balance: usd(1300.004)}
	doc := parse(t, RenderBalance(checking, v))

	if want := []string{"# Checking (cash account in USD)"}; !slices.Equal(doc.headings, want) {
		t.Errorf("headings = %q, want %q", doc.headings, want)
	}
	if len(doc.tables) != 1 {
		t.Fatalf("got %d tables, want 1", len(doc.tables))
	}
	want := [][]string{{"Period", "Balance"}, {"p1", usd(1300).String()}}
	if got := doc.tables[0]; !slices.EqualFunc(got, want, slices.Equal) {
		t.Errorf("table = %q, want %q", got, want)
	}
	if len(doc.items) != 0 {
		t.Errorf("unexpected degradations %q", doc.items)
	}
}

func TestRenderBalance_Degraded(t *testing.T) {
	v := ledger.Valuation{
		Account: "broker",
		Period:  "p1",
		Balance: usd(10000),
		Degradations: []ledger.Degradation{
			{Kind: ledger.MissingPriceData, Transaction: "t1", Security: "acme", On: day("2025-01-02")},
			{Kind: ledger.MissingFxRate, Transaction: "t2", From: "EUR", To: "USD", On: day("2025-01-03")},
		},
	}
	account := ledger.Account{ID: "broker", Currency: "USD", Kind: ledger.Investment}
	doc := parse(t, RenderBalance(account, v))

	want := []string{"# broker (investment account in USD)", "## Degraded valuation"}
	if !slices.Equal(doc.headings, want) {
		t.Errorf("headings = %q, want %q", doc.headings, want)
	}
	if len(doc.items) != 2 {
		t.Fatalf("got %d degradations, want 2: %q", len(doc.items), doc.items)
	}
	if !strings.Contains(doc.items[0], `no price for "acme"`) {
		t.Errorf("item[0] = %q, want the missing price", doc.items[0])
	}
	if !strings.Contains(doc.items[1], "no EUR/USD rate") {
		t.Errorf("item[1] = %q, want the missing rate", doc.items[1])
	}
}

func TestRenderHistory(t *testing.T) {
	salary := ledger.NewCash(day("2025-01-02"), usd(500), "salary")
	salary.ID = "t1"
	rent := ledger.NewCash(day("2025-01-03"), usd(-200), "")
	rent.ID = "t2"
	buy := ledger.NewInvestment(day("2025-01-04"), "acme", ledger.Q(10), usd(100))
	buy.ID = "t3"

	doc := parse(t, RenderHistory(checking, []ledger.Transaction{salary, rent, buy}))
	if len(doc.tables) != 1 {
		t.Fatalf("got %d tables, want 1", len(doc.tables))
	}
	want := [][]string{
		{"Date", "Transaction", "Description", "Amount"},
		{"2025-01-02", "t1", "Deposit: salary", usd(500).SignedString()},
		{"2025-01-03", "t2", "Withdrawal", usd(-200).SignedString()},
		{"2025-01-04", "t3", "Bought 10 acme at " + usd(100).String(), usd(1000).SignedString()},
	}
	if got := doc.tables[0]; !slices.EqualFunc(got, want, slices.Equal) {
		t.Errorf("table =\n%q\nwant\n%q", got, want)
	}
}

func TestRenderHistory_Empty(t *testing.T) {
	doc := parse(t, RenderHistory(checking, nil))
	if len(doc.tables) != 0 {
		t.Errorf("got %d tables, want none", len(doc.tables))
	}
	if want := []string{"No transaction in the open period."}; !slices.Equal(doc.paras, want) {
		t.Errorf("paragraphs = %q, want %q", doc.paras, want)
	}
}

func TestRenderStatement(t *testing.T) {
	statements := []ledger.PeriodStatement{
		{Period: "p1", Range: date.Range{From: day("2025-01-01"), To: day("2025-01-31")}, Opening: usd(1000), Closing: usd(1200), Transactions: 1},
		{Period: "p2", Range: date.Range{From: day("2025-02-01")}, Open: true, Opening: usd(1200), Closing: usd(1500), Transactions: 2},
	}
	doc := parse(t, RenderStatement(checking, statements))

	if len(doc.tables) != 1 {
		t.Fatalf("got %d tables, want 1", len(doc.tables))
	}
	want := [][]string{
		{"Period", "From", "To", "Opening", "Closing", "Transactions", "Status"},
		{"p1", "2025-01-01", "2025-01-31", usd(1000).String(), usd(1200).String(), "1", "closed"},
		{"p2", "2025-02-01", "", usd(1200).String(), usd(1500).String(), "2", "open"},
	}
	if got := doc.tables[0]; !slices.EqualFunc(got, want, slices.Equal) {
		t.Errorf("table =\n%q\nwant\n%q", got, want)
	}
	if len(doc.headings) != 1 {
		t.Errorf("headings = %q, want only the title", doc.headings)
	}
}

func TestRenderStatement_Degraded(t *testing.T) {
	statements := []ledger.PeriodStatement{{
		Period: "p1", Range: date.Range{From: day("2025-01-01")}, Open: true,
		Opening: usd(0), Closing: usd(0),
		Degradations: []ledger.Degradation{{Kind: ledger.MissingPriceData, Transaction: "t1", Security: "acme", On: day("2025-01-02")}},
	}}
	doc := parse(t, RenderStatement(checking, statements))
	if got := doc.tables[0][1][6]; got != "open, degraded" {
		t.Errorf("status = %q, want %q", got, "open, degraded")
	}
	if len(doc.items) != 1 {
		t.Errorf("got %d degradations, want 1", len(doc.items))
	}
}

func TestTransaction(t *testing.T) {
	sell := ledger.NewInvestment(day("2025-01-04"), "acme", ledger.Q(-5), usd(150))
	sell.Fees = usd(2)
	out := ledger.NewCash(day("2025-01-05"), usd(-300), "")
	out.TransferTo, out.TransferID = "savings", "x"
	in := ledger.NewCash(day("2025-01-05"), usd(300), "rent")
	in.TransferID = "x"

	tests := []struct {
		tx   ledger.Transaction
		want string
	}{
		{sell, "Sold 5 acme at " + usd(150).String() + " (fees " + usd(2).String() + ")"},
		{out, "Transfer to savings"},
		{in, "Transfer received: rent"},
	}
	for _, test := range tests {
		if got := Transaction(test.tx); got != test.want {
			t.Errorf("Transaction(%v) = %q, want %q", test.tx, got, test.want)
		}
	}
	if got, want := Amount(sell), usd(-750).SignedString(); got != want {
		t.Errorf("Amount(sell) = %q, want %q", got, want)
	}
}

func TestCell(t *testing.T) {
	if got, want := cell("a|b\nc"), `a\|b c`; got != want {
		t.Errorf("cell() = %q, want %q", got, want)
	}
}
