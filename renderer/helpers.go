package renderer

import (
	"strings"

	"github.com/etnz/ledger/date"
)

var cellReplacer = strings.NewReplacer("|", `\|`, "\n", " ", "\r", "")

// cell escapes s so that it fits in a markdown table cell.
func cell(s string) string { return cellReplacer.Replace(s) }

// dateCell is empty for the zero date.
func dateCell(d date.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}
