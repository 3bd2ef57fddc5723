package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/brokerfeed"
	"github.com/etnz/brokerfeed/date"
	"github.com/etnz/brokerfeed/report"
	"github.com/google/subcommands"
)

// balancesCmd holds the flags for the 'balances' subcommand.
type balancesCmd struct {
	currency string
	html     bool
}

func (*balancesCmd) Name() string     { return "balances" }
func (*balancesCmd) Synopsis() string { return "display the cash and holdings value of every account" }
func (*balancesCmd) Usage() string {
	return `bfeed balances [-c <currency>] [-html]

  Fetches all the accounts and displays their cash, holdings and total value
  for each currency. Accounts that could not be fetched are listed at the end.
`
}

func (c *balancesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.currency, "c", "", "reporting currency for the grand total (defaults to report.currency)")
	f.BoolVar(&c.html, "html", false, "render the report as HTML")
}

func (c *balancesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, client, err := openClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if c.currency != "" {
		cfg.Report.Currency = strings.ToUpper(c.currency)
	}
	rates, err := cfg.Rates()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	accounts, payloads, err := fetchAll(ctx, cfg, client)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	rows := brokerfeed.AggregateAll(accounts, payloads)
	converted := brokerfeed.ConvertRows(rows, cfg.Report.Currency, rates)
	printReport(report.RenderBalances(&report.Balances{
		Date:      date.Today(),
		Accounts:  accounts,
		Rows:      rows,
		Converted: &converted,
		Failed:    brokerfeed.Failed(accounts, payloads),
	}), c.html)
	return subcommands.ExitSuccess
}
