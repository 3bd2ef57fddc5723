package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type connectCmd struct {
	broker string
}

func (*connectCmd) Name() string     { return "connect" }
func (*connectCmd) Synopsis() string { return "print the URL to connect a brokerage account" }
func (*connectCmd) Usage() string {
	return `bfeed connect [-broker <slug>]

  Prints the URL of the connection portal where a brokerage account can be
  linked. The URL is short lived and must be opened in a browser.
`
}

func (c *connectCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.broker, "broker", "", "preselect a brokerage in the portal (e.g. QUESTRADE)")
}

func (c *connectCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	_, client, err := openClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	u, err := client.LoginURL(ctx, c.broker)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error getting the connection URL: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Fprintln(stdout, u)
	return subcommands.ExitSuccess
}
