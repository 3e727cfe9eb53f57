// Package cmd implements the ldg command line application to manage accounts,
// their periods and their balances.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/ledger"
	"github.com/etnz/ledger/config"
	"github.com/etnz/ledger/logger"
	"github.com/etnz/ledger/store/sqlite"
	"github.com/google/subcommands"
	"github.com/rs/zerolog"
)

// Commands lists every ldg subcommand with its group.
var Commands = []struct {
	Cmd   subcommands.Command
	Group string
}{
	{&openAccountCmd{}, "accounts"},
	{&addSecurityCmd{}, "market"},
	{&addPriceCmd{}, "market"},
	{&addRateCmd{}, "market"},
	{&priceCmd{}, "market"},
	{&importCmd{}, "market"},
	{&postCashCmd{}, "transactions"},
	{&postInvestmentCmd{}, "transactions"},
	{&transferCmd{}, "transactions"},
	{&closePeriodCmd{}, "periods"},
	{&balanceCmd{}, "reports"},
	{&historyCmd{}, "reports"},
	{&statementCmd{}, "reports"},
	{&fmtCmd{}, "accounts"},
	{&topicCmd{}, "help"},
}

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	for _, cmd := range Commands {
		c.Register(cmd.Cmd, cmd.Group)
	}
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var configFile = flag.String("config", os.Getenv(config.EnvConfigFile), "Path to the configuration file (YAML or JSON)")
var rawOutput = flag.Bool("raw", false, "Print reports as raw markdown")

// stdout receives the command output.
var stdout io.Writer = os.Stdout

// session is the store opened for a single command.
type session struct {
	cfg    *config.Config
	log    zerolog.Logger
	store  ledger.Store
	book   *ledger.Book // set for the jsonl driver
	policy ledger.MissingDataPolicy
}

// openSession loads the configuration and opens the configured store.
func openSession() (*session, error) {
	cfg, err := config.Load(*configFile)
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, log: logger.New(cfg.Log.Level)}
	if s.policy, err = cfg.Valuation.Policy(); err != nil {
		return nil, err
	}

	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		ttl, err := cfg.Valuation.CacheTTL()
		if err != nil {
			return nil, err
		}
		st, err := sqlite.Open(cfg.Storage.Path, sqlite.WithCacheTTL(ttl), sqlite.WithLogger(s.log))
		if err != nil {
			return nil, err
		}
		s.store = st
	default:
		book, err := ledger.LoadBook(cfg.Storage.Path)
		if errors.Is(err, fs.ErrNotExist) {
			s.log.Warn().Str("path", cfg.Storage.Path).Msg("ledger does not exist, starting an empty one")
			err = nil
		}
		if err != nil {
			return nil, err
		}
		s.book, s.store = book, book
	}
	s.log.Debug().Str("driver", cfg.Storage.Driver).Str("path", cfg.Storage.Path).Msg("store opened")
	return s, nil
}

// context returns ctx carrying the session logger.
func (s *session) context(ctx context.Context) context.Context {
	return logger.WithContext(ctx, s.log)
}

// service returns the balance service over the session store.
func (s *session) service() *ledger.Service {
	return ledger.NewService(s.store, ledger.WithPolicy(s.policy), ledger.WithLogger(s.log))
}

// commit persists the writes of the session. The sqlite store writes as it
// goes, the jsonl book is saved.
func (s *session) commit() error {
	if s.book != nil {
		return ledger.SaveBook(s.cfg.Storage.Path, s.book)
	}
	return nil
}

// close releases the store.
func (s *session) close() {
	if c, ok := s.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			s.log.Error().Err(err).Msg("cannot close store")
		}
	}
}

// write runs fn in a session and commits it on success.
func write(ctx context.Context, fn func(ctx context.Context, s *session) error) subcommands.ExitStatus {
	return run(ctx, func(ctx context.Context, s *session) error {
		if err := fn(ctx, s); err != nil {
			return err
		}
		return s.commit()
	})
}

// run runs fn in a session.
func run(ctx context.Context, fn func(ctx context.Context, s *session) error) subcommands.ExitStatus {
	s, err := openSession()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	defer s.close()

	if err := fn(s.context(ctx), s); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// printMarkdown renders md for the terminal, or prints it as is with -raw.
func printMarkdown(md string) {
	if *rawOutput {
		fmt.Fprint(stdout, md)
		return
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err != nil {
		fmt.Fprint(stdout, md)
		return
	}
	out, err := r.Render(md)
	if err != nil {
		fmt.Fprint(stdout, md)
		return
	}
	fmt.Fprint(stdout, out)
}
