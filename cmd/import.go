package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/ledger"
	"github.com/etnz/ledger/feed"
	"github.com/etnz/ledger/logger"
	"github.com/google/subcommands"
)

type importCmd struct {
	security string
	from     string
	to       string
	url      string
	file     string
	cache    string
	mapping  feed.Mapping
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import prices or rates from a JSON feed" }
func (*importCmd) Usage() string {
	return `ldg import (-security <id> | -from <currency> -to <currency>) (-url <url> | -file <path>) [-rows <path>] [-date-path <path>] [-value-path <path>] [-layout <layout>]

  Imports a series of dated values from a JSON payload, either the prices
  of a security or the rates of a currency pair.

  The payload rows and their fields are located with JSONPath expressions.
  By default the payload is a list of {"date": "2025-01-02", "close": 123.4}.

  Remote payloads are cached on disk for the day.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.security, "security", "", "Security whose prices are imported")
	f.StringVar(&c.from, "from", "", "Source currency of the imported rates")
	f.StringVar(&c.to, "to", "", "Target currency of the imported rates")
	f.StringVar(&c.url, "url", "", "URL of the JSON payload")
	f.StringVar(&c.file, "file", "", "Path of the JSON payload")
	f.StringVar(&c.cache, "cache", "", "Directory of the daily download cache, defaults to the temp directory")
	f.StringVar(&c.mapping.Rows, "rows", feed.DefaultMapping.Rows, "JSONPath of the rows in the payload")
	f.StringVar(&c.mapping.Date, "date-path", feed.DefaultMapping.Date, "JSONPath of the date in a row")
	f.StringVar(&c.mapping.Value, "value-path", feed.DefaultMapping.Value, "JSONPath of the value in a row")
	f.StringVar(&c.mapping.DateLayout, "layout", "", "Go time layout of string dates, defaults to YYYY-MM-DD")
}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	prices := c.security != ""
	rates := c.from != "" || c.to != ""
	if prices == rates || (rates && (c.from == "" || c.to == "")) {
		fmt.Fprintln(os.Stderr, "Error: either -security or both -from and -to flags are required.")
		return subcommands.ExitUsageError
	}
	if (c.url == "") == (c.file == "") {
		fmt.Fprintln(os.Stderr, "Error: exactly one of -url or -file is required.")
		return subcommands.ExitUsageError
	}

	return write(ctx, func(ctx context.Context, s *session) error {
		doc, err := c.payload(ctx)
		if err != nil {
			return err
		}
		n := 0
		if prices {
			ps, err := feed.Prices(doc, ledger.ID(c.security), c.mapping)
			if err != nil {
				return err
			}
			for _, p := range ps {
				if err := s.store.AddPrice(ctx, p); err != nil {
					return err
				}
			}
			n = len(ps)
		} else {
			rs, err := feed.Rates(doc, c.from, c.to, c.mapping)
			if err != nil {
				return err
			}
			for _, r := range rs {
				if err := s.store.AddRate(ctx, r); err != nil {
					return err
				}
			}
			n = len(rs)
		}
		fmt.Fprintf(stdout, "✅ Imported %d values.\n", n)
		return nil
	})
}

// payload reads the JSON document from -file or -url.
func (c *importCmd) payload(ctx context.Context) (any, error) {
	if c.file != "" {
		f, err := os.Open(c.file)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return feed.Decode(f)
	}
	client := feed.NewDailyClient(c.cache, logger.FromContext(ctx))
	return feed.Fetch(ctx, client, c.url)
}
