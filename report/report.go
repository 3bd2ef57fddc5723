// Package report renders account data as markdown, and markdown for the
// terminal or as HTML.
package report

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"

	"github.com/etnz/brokerfeed"
	"github.com/etnz/brokerfeed/date"
)

//go:embed templates/*.md
var templates embed.FS

// Balances is the per currency value of accounts.
type Balances struct {
	Date      date.Date
	Accounts  []brokerfeed.Account
	Rows      []brokerfeed.CurrencyRow
	Converted *brokerfeed.Converted // optional total in a single currency
	Failed    []brokerfeed.Account
}

// Holdings is the list of positions of accounts.
type Holdings struct {
	Date     date.Date
	Accounts []brokerfeed.Account
	Rows     []brokerfeed.HoldingRow
	Failed   []brokerfeed.Account
}

// History is the content of the history log.
type History struct {
	Accounts []brokerfeed.Account
	Entries  []brokerfeed.HistorySnapshot
}

// Activities is a list of transactions over a period.
type Activities struct {
	From, To   date.Date
	Accounts   []brokerfeed.Account
	Activities []brokerfeed.Activity
}

// AccountList is the list of connected accounts.
type AccountList struct {
	Accounts []brokerfeed.Account
}

// failedPartial lists the accounts that could not be refreshed.
var failedPartial = map[string]string{"failed": "failed.md"}

// RenderBalances renders the balances report to markdown.
func RenderBalances(r *Balances) string {
	return renderTemplate("balances", "balances.md", failedPartial, r)
}

// RenderHoldings renders the holdings report to markdown.
func RenderHoldings(r *Holdings) string {
	return renderTemplate("holdings", "holdings.md", failedPartial, r)
}

func RenderHistory(r *History) string {
	return renderTemplate("history", "history.md", nil, r)
}

func RenderActivities(r *Activities) string {
	return renderTemplate("activities", "activities.md", nil, r)
}

func RenderAccounts(r *AccountList) string {
	return renderTemplate("accounts", "accounts.md", nil, r)
}

var funcs = template.FuncMap{
	"money":   Money,
	"signed":  SignedMoney,
	"account": accountLabel,
	"cell":    cell,
}

// renderTemplate renders a main template that depends on several partials,
// given as a map from the name used in the main template to their file.
func renderTemplate(templateName, mainFile string, partials map[string]string, data any) string {
	mainContent, err := fs.ReadFile(templates, "templates/"+mainFile)
	if err != nil {
		return fmt.Sprintf("error reading main template %q: %v", mainFile, err)
	}
	tmpl, err := template.New(templateName).Funcs(funcs).Parse(string(mainContent))
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

// accountLabel returns the label of the account id among accounts, or the id itself.
func accountLabel(accounts []brokerfeed.Account, id string) string {
	for _, a := range accounts {
		if a.ID == id {
			return cell(a.Label())
		}
	}
	return cell(id)
}

// cell makes s safe inside a markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
