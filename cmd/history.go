package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/brokerfeed"
	"github.com/etnz/brokerfeed/date"
	"github.com/etnz/brokerfeed/report"
	"github.com/google/subcommands"
)

type historyCmd struct {
	account string
	since   string
	html    bool
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "display the recorded account values" }
func (*historyCmd) Usage() string {
	return `bfeed history [-a <account id>] [-s <date>] [-html]

  Displays the daily values recorded by 'bfeed snapshot'.
  It only reads the history log and does not call the API, so accounts are
  shown by id rather than by name.
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "a", "", "only display this account")
	f.StringVar(&c.since, "s", "", "only display days from this date")
	f.BoolVar(&c.html, "html", false, "render the report as HTML")
}

func (c *historyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var since date.Date
	if c.since != "" {
		var err error
		if since, err = date.Parse(c.since); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing -s: %v\n", err)
			return subcommands.ExitUsageError
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	hist, closeHist, err := cfg.OpenHistory(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening history: %v\n", err)
		return subcommands.ExitFailure
	}
	defer closeHist()

	entries, err := hist.Entries(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading history: %v\n", err)
		return subcommands.ExitFailure
	}
	var selected []brokerfeed.HistorySnapshot
	for _, e := range entries {
		if c.account != "" && e.AccountID != c.account {
			continue
		}
		if !since.IsZero() && e.Date.Before(since) {
			continue
		}
		selected = append(selected, e)
	}
	printReport(report.RenderHistory(&report.History{Entries: selected}), c.html)
	return subcommands.ExitSuccess
}
