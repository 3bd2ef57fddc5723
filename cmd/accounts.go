package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/brokerfeed/report"
	"github.com/google/subcommands"
)

type accountsCmd struct {
	html bool
}

func (*accountsCmd) Name() string     { return "accounts" }
func (*accountsCmd) Synopsis() string { return "list the connected brokerage accounts" }
func (*accountsCmd) Usage() string {
	return `bfeed accounts [-html]

  Lists the brokerage accounts connected by the user.
`
}

func (c *accountsCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.html, "html", false, "render the report as HTML")
}

func (c *accountsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	_, client, err := openClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	accounts, err := client.ListAccounts(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing accounts: %v\n", err)
		return subcommands.ExitFailure
	}
	printReport(report.RenderAccounts(&report.AccountList{Accounts: accounts}), c.html)
	return subcommands.ExitSuccess
}
