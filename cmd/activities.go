package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/brokerfeed/date"
	"github.com/etnz/brokerfeed/report"
	"github.com/google/subcommands"
)

type activitiesCmd struct {
	from     string
	to       string
	accounts string
	html     bool
}

func (*activitiesCmd) Name() string     { return "activities" }
func (*activitiesCmd) Synopsis() string { return "list account transactions over a period" }
func (*activitiesCmd) Usage() string {
	return `bfeed activities [-from <date>] [-to <date>] [-a <id,...>] [-html]

  Lists the trades, dividends, deposits and withdrawals of the accounts
  between two dates, both included. Dates are YYYY-MM-DD.
`
}

func (c *activitiesCmd) SetFlags(f *flag.FlagSet) {
	today := date.Today()
	f.StringVar(&c.from, "from", today.Add(-30).String(), "first day of the period")
	f.StringVar(&c.to, "to", today.String(), "last day of the period")
	f.StringVar(&c.accounts, "a", "", "comma separated account ids (all accounts by default)")
	f.BoolVar(&c.html, "html", false, "render the report as HTML")
}

func (c *activitiesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	from, err := date.Parse(c.from)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing -from: %v\n", err)
		return subcommands.ExitUsageError
	}
	to, err := date.Parse(c.to)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing -to: %v\n", err)
		return subcommands.ExitUsageError
	}
	if from.After(to) {
		fmt.Fprintln(os.Stderr, "-to must not be before -from")
		return subcommands.ExitUsageError
	}
	var ids []string
	if c.accounts != "" {
		ids = strings.Split(c.accounts, ",")
	}

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
	activities, err := client.Activities(ctx, from, to, ids)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing activities: %v\n", err)
		return subcommands.ExitFailure
	}
	printReport(report.RenderActivities(&report.Activities{
		From:       from,
		To:         to,
		Accounts:   accounts,
		Activities: activities,
	}), c.html)
	return subcommands.ExitSuccess
}
