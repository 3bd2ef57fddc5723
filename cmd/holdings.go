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

type holdingsCmd struct {
	html bool
}

func (*holdingsCmd) Name() string     { return "holdings" }
func (*holdingsCmd) Synopsis() string { return "display the positions of every account" }
func (*holdingsCmd) Usage() string {
	return `bfeed holdings [-html]

  Fetches all the accounts and displays their positions with market value,
  cost basis and unrealized gain.
`
}

func (c *holdingsCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.html, "html", false, "render the report as HTML")
}

func (c *holdingsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, client, err := openClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	accounts, payloads, err := fetchAll(ctx, cfg, client)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	printReport(report.RenderHoldings(&report.Holdings{
		Date:     date.Today(),
		Accounts: accounts,
		Rows:     brokerfeed.HoldingsAll(accounts, payloads),
		Failed:   brokerfeed.Failed(accounts, payloads),
	}), c.html)
	return subcommands.ExitSuccess
}
