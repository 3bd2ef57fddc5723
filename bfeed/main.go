// Command bfeed reads the accounts linked to a brokerage aggregation service.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/etnz/brokerfeed/cmd"
	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	cmd.Register(commander)

	// shell completion, a no-op unless called by the shell.
	completion(commander).Complete(commander.Name())

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// completion describes the commands and their flags for shell completion.
func completion(commander *subcommands.Commander) *complete.Command {
	root := &complete.Command{
		Sub:   map[string]*complete.Command{},
		Flags: flags(flag.CommandLine),
	}
	commander.VisitCommands(func(_ *subcommands.CommandGroup, c subcommands.Command) {
		fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
		c.SetFlags(fs)
		root.Sub[c.Name()] = &complete.Command{Flags: flags(fs)}
	})
	return root
}

func flags(fs *flag.FlagSet) map[string]complete.Predictor {
	m := map[string]complete.Predictor{}
	fs.VisitAll(func(f *flag.Flag) {
		switch {
		case f.Name == "config":
			m[f.Name] = predict.Files("*.y*ml")
		case f.Name == "log-file":
			m[f.Name] = predict.Files("*")
		case f.Name == "log-level":
			m[f.Name] = predict.Set{"debug", "info", "warn", "error"}
		case isBool(f):
			m[f.Name] = predict.Nothing
		default:
			m[f.Name] = predict.Something
		}
	})
	return m
}

func isBool(f *flag.Flag) bool {
	b, ok := f.Value.(interface{ IsBoolFlag() bool })
	return ok && b.IsBoolFlag()
}
