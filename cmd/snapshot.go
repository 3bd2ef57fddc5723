package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/brokerfeed"
	"github.com/etnz/brokerfeed/logger"
	"github.com/google/subcommands"
)

type snapshotCmd struct{}

func (*snapshotCmd) Name() string     { return "snapshot" }
func (*snapshotCmd) Synopsis() string { return "record today's account values in the history log" }
func (*snapshotCmd) Usage() string {
	return `bfeed snapshot

  Fetches all the accounts and records their value per currency in the
  history log. Running it again the same day replaces today's snapshot,
  previous days are never modified.

  Accounts that cannot be fetched keep the values recorded earlier today.
  Nothing is recorded when no account can be fetched.
`
}

func (c *snapshotCmd) SetFlags(f *flag.FlagSet) {}

func (c *snapshotCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, client, err := openClient()
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

	accounts, err := client.ListAccounts(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing accounts: %v\n", err)
		return subcommands.ExitFailure
	}

	ctx, cancel := withBudget(ctx, cfg)
	defer cancel()
	u := &brokerfeed.Upserter{
		History: hist,
		Fetch:   client.Fetcher("holdings", cfg.Fetch.BatchSize),
		Logger:  logger.Default(),
	}
	res, err := u.Write(ctx, accounts, nil)
	if errors.Is(err, brokerfeed.ErrNoData) {
		fmt.Fprintf(os.Stderr, "Error: none of the %d accounts could be fetched, history left unchanged\n", len(accounts))
		return subcommands.ExitFailure
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	verb := "recorded"
	if res.Previous.HasEntryToday {
		verb = "replaced"
	}
	fmt.Fprintf(stdout, "Snapshot %s: %d rows for %d accounts\n", verb, len(res.Rows), len(accounts)-len(res.Failed))
	for _, a := range res.Failed {
		fmt.Fprintf(stdout, "  not refreshed: %s\n", a.Label())
	}
	return subcommands.ExitSuccess
}
