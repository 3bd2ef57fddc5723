// Package cmd implements the CLI application reading brokerage accounts.
package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/etnz/brokerfeed"
	"github.com/etnz/brokerfeed/api"
	"github.com/etnz/brokerfeed/config"
	"github.com/etnz/brokerfeed/logger"
	"github.com/etnz/brokerfeed/report"
	"github.com/google/subcommands"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&accountsCmd{}, "accounts")
	c.Register(&connectCmd{}, "accounts")

	c.Register(&balancesCmd{}, "reports")
	c.Register(&holdingsCmd{}, "reports")
	c.Register(&activitiesCmd{}, "reports")

	c.Register(&snapshotCmd{}, "history")
	c.Register(&historyCmd{}, "history")

	c.Register(&topicCmd{}, "help")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var configFile = flag.String("config", os.Getenv("BROKERFEED_CONFIG"), "Path to the YAML configuration file")
var logFile = flag.String("log-file", "", "Path to a log file, rotated automatically. Logs go to stderr by default")
var logLevel = flag.String("log-level", "", "Log level (debug, info, warn, error). Defaults to LOG_LEVEL or info")

// stdout is where reports are written.
var stdout io.Writer = os.Stdout

// loadConfig loads the configuration and sets up the default logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(*configFile)
	if err != nil {
		return nil, err
	}
	if *logFile != "" {
		cfg.Logging.File = *logFile
		cfg.Logging.Text = false
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	logger.SetDefault(logger.New(cfg.LoggerOptions()))
	return cfg, nil
}

// openClient loads the configuration and builds the API client.
func openClient() (*config.Config, *api.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	client, err := cfg.NewClient()
	if err != nil {
		return nil, nil, err
	}
	return cfg, client, nil
}

// withBudget bounds ctx by the fetch budget, if any.
func withBudget(ctx context.Context, cfg *config.Config) (context.Context, context.CancelFunc) {
	if cfg.Fetch.Budget <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, cfg.Fetch.Budget)
}

// fetchAll lists the accounts and fetches their holdings.
func fetchAll(ctx context.Context, cfg *config.Config, client *api.Client) ([]brokerfeed.Account, map[string]brokerfeed.Payload, error) {
	accounts, err := client.ListAccounts(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("could not list accounts: %w", err)
	}
	ctx, cancel := withBudget(ctx, cfg)
	defer cancel()
	return accounts, client.FetchInBatches(ctx, accounts, "holdings", cfg.Fetch.BatchSize), nil
}

// printReport writes a markdown report, as HTML when html is true.
func printReport(md string, html bool) {
	format := report.Terminal
	if html {
		format = report.HTML
	} else if stdout != os.Stdout {
		format = report.Markdown
	}
	if err := report.Write(stdout, md, format); err != nil {
		fmt.Fprintf(os.Stderr, "Error rendering report: %v\n", err)
		fmt.Fprint(stdout, md)
	}
}
