// Package renderer turns balance, history and statement reports into
// markdown.
package renderer

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"

	"github.com/etnz/ledger"
)

//go:embed templates/*.md
var templates embed.FS

// partials are available to every report template.
var partials = map[string]string{
	"account_title": "account_title.md",
	"degradations":  "degradations.md",
}

type balanceView struct {
	Account   ledger.Account
	Valuation ledger.Valuation
}

// RenderBalance renders the current balance of account.
func RenderBalance(account ledger.Account, v ledger.Valuation) string {
	return renderTemplate("balance", "balance.md", balanceView{Account: account, Valuation: v})
}

type historyRow struct {
	Date, ID, Description, Amount string
}

type historyView struct {
	Account ledger.Account
	Rows    []historyRow
}

// RenderHistory renders the transactions of the open period of account.
func RenderHistory(account ledger.Account, txs []ledger.Transaction) string {
	view := historyView{Account: account}
	for _, tx := range txs {
		h := tx.Head()
		view.Rows = append(view.Rows, historyRow{
			Date:        h.Date.String(),
			ID:          string(h.ID),
			Description: cell(Transaction(tx)),
			Amount:      Amount(tx),
		})
	}
	return renderTemplate("history", "history.md", view)
}

type statementRow struct {
	Period, From, To, Opening, Closing, Status string
	Transactions                               int
}

type statementView struct {
	Account      ledger.Account
	Rows         []statementRow
	Degradations []ledger.Degradation
}

// RenderStatement renders one row per period of account.
func RenderStatement(account ledger.Account, statements []ledger.PeriodStatement) string {
	view := statementView{Account: account}
	for _, s := range statements {
		status := "closed"
		if s.Open {
			status = "open"
			if len(s.Degradations) > 0 {
				status = "open, degraded"
			}
		}
		view.Rows = append(view.Rows, statementRow{
			Period:       string(s.Period),
			From:         dateCell(s.Range.From),
			To:           dateCell(s.Range.To),
			Opening:      s.Opening.String(),
			Closing:      s.Closing.String(),
			Transactions: s.Transactions,
			Status:       status,
		})
		view.Degradations = append(view.Degradations, s.Degradations...)
	}
	return renderTemplate("statement", "statement.md", view)
}

// renderTemplate renders a main template with all the partials.
func renderTemplate(templateName, mainFile string, data any) string {
	mainContent, err := fs.ReadFile(templates, "templates/"+mainFile)
	if err != nil {
		return fmt.Sprintf("error reading main template %q: %v", mainFile, err)
	}

	tmpl, err := template.New(templateName).Parse(string(mainContent))
	if err != nil {
		return fmt.Sprintf("error parsing main template %q: %v", mainFile, err)
	}

	for name, file := range partials {
		content, err := fs.ReadFile(templates, "templates/"+file)
		if err != nil {
			return fmt.Sprintf("error reading partial template %q: %v", file, err)
		}
		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return fmt.Sprintf("error parsing partial template %q for %q: %v", file, name, err)
		}
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, templateName, data); err != nil {
		return fmt.Sprintf("error executing template %q: %v", templateName, err)
	}
	return b.String()
}
