// Command ldg keeps accounts in periods and reports their balances.
//
// Shell completion is installed with:
//
//	COMP_INSTALL=1 ldg
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/etnz/ledger/cmd"
	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

func main() {
	name := path.Base(os.Args[0])
	completion(name).Complete(name)

	commander := subcommands.NewCommander(flag.CommandLine, name)
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	cmd.Register(commander)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// predictors of the flags whose values can be guessed.
var predictors = map[string]complete.Predictor{
	"config":   predict.Files("*.yaml"),
	"file":     predict.Files("*.json"),
	"cache":    predict.Dirs("*"),
	"kind":     predict.Set{"cash", "investment"},
	"currency": predict.Set{"EUR", "USD", "GBP", "CHF", "JPY"},
}

// completion describes the ldg command line for the shell completion.
func completion(name string) *complete.Command {
	c := &complete.Command{
		Sub:   make(map[string]*complete.Command),
		Flags: flags(flag.CommandLine),
	}
	for _, sub := range cmd.Commands {
		f := flag.NewFlagSet(sub.Cmd.Name(), flag.ContinueOnError)
		sub.Cmd.SetFlags(f)
		c.Sub[sub.Cmd.Name()] = &complete.Command{Flags: flags(f)}
	}
	return c
}

func flags(f *flag.FlagSet) map[string]complete.Predictor {
	m := make(map[string]complete.Predictor)
	f.VisitAll(func(fl *flag.Flag) {
		if p, ok := predictors[fl.Name]; ok {
			m[fl.Name] = p
			return
		}
		if b, ok := fl.Value.(interface{ IsBoolFlag() bool }); ok && b.IsBoolFlag() {
			m[fl.Name] = predict.Nothing
			return
		}
		m[fl.Name] = predict.Something
	})
	return m
}
