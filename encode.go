package ledger

import (
	"bufio"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/etnz/ledger/date"
)

// This file persists a Book as JSONL: one record per line, human readable
// and git friendly.
//
// Records are written in an order that replays into the same Book:
// accounts, securities, prices, rates, then for each account its periods in
// chronological order, each followed by its transactions and, when closed,
// its close record.

// record types.
const (
	recAccount    = "account"
	recSecurity   = "security"
	recPrice      = "price"
	recRate       = "rate"
	recPeriod     = "period"
	recCash       = "cash"
	recInvestment = "investment"
	recClose      = "close"
)

// EncodeBook writes every record of b into w.
func EncodeBook(w io.Writer, b *Book) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	bw := bufio.NewWriter(w)
	enc := func(rec string, fill func(w *objectWriter)) error {
		var o objectWriter
		o.Append("record", rec)
		fill(&o)
		line, err := o.MarshalJSON()
		if err != nil {
			return fmt.Errorf("cannot encode %s record: %w", rec, err)
		}
		bw.Write(line)
		return bw.WriteByte('\n')
	}

	accounts := b.sortedAccounts()
	for _, a := range accounts {
		if err := enc(recAccount, func(w *objectWriter) { w.EmbedFrom(a) }); err != nil {
			return err
		}
	}
	for _, s := range b.sortedSecurities() {
		if err := enc(recSecurity, func(w *objectWriter) { w.EmbedFrom(s) }); err != nil {
			return err
		}
	}
	for p := range b.prices.Prices() {
		if err := enc(recPrice, func(w *objectWriter) { w.EmbedFrom(p) }); err != nil {
			return err
		}
	}
	for r := range b.rates.Rates() {
		if err := enc(recRate, func(w *objectWriter) { w.EmbedFrom(r) }); err != nil {
			return err
		}
	}
	for _, a := range accounts {
		for _, p := range b.periods[a.ID] {
			if err := enc(recPeriod, func(w *objectWriter) {
				w.Append("id", p.ID)
				w.Append("account", p.Account)
				w.Append("start", p.Start)
				w.Append("opening", p.OpeningBalance)
			}); err != nil {
				return err
			}
			for _, tx := range p.Transactions {
				if err := encodeTransaction(enc, tx); err != nil {
					return err
				}
			}
			if closing, ok := p.Closing(); ok {
				if err := enc(recClose, func(w *objectWriter) {
					w.Append("period", p.ID)
					w.Append("date", p.CloseDate)
					w.Append("closing", closing)
				}); err != nil {
					return err
				}
			}
		}
	}
	return bw.Flush()
}

func encodeTransaction(enc func(string, func(*objectWriter)) error, tx Transaction) error {
	switch t := tx.(type) {
	case CashTransaction:
		return enc(recCash, func(w *objectWriter) {
			w.EmbedFrom(t.Header)
			w.Append("amount", t.Amount)
			w.Optional("transfer_to", t.TransferTo)
			w.Optional("transfer_id", t.TransferID)
		})
	case InvestmentTransaction:
		return enc(recInvestment, func(w *objectWriter) {
			w.EmbedFrom(t.Header)
			w.Append("security", t.Security)
			w.Append("quantity", t.Quantity)
			w.Append("price", t.Price.exact())
			w.OptionalMoney("fees", t.Fees)
		})
	default:
		return fmt.Errorf("unsupported transaction type %T", tx)
	}
}

// jrecord has the union of the record fields. Price records and
// investments disagree on the "price" field so it is kept raw.
type jrecord struct {
	Record string `json:"record"`
	Header
	Account    ID              `json:"account"`
	Name       string          `json:"name"`
	Currency   string          `json:"currency"`
	Kind       AccountKind     `json:"kind"`
	Active     bool            `json:"active"`
	Ticker     string          `json:"ticker"`
	Start      date.Date       `json:"start"`
	Opening    Money           `json:"opening"`
	Closing    Money           `json:"closing"`
	Amount     Money           `json:"amount"`
	TransferTo ID              `json:"transfer_to"`
	TransferID ID              `json:"transfer_id"`
	Security   ID              `json:"security"`
	Quantity   Quantity        `json:"quantity"`
	Price      json.RawMessage `json:"price"`
	Fees       Money           `json:"fees"`
}

// DecodeBook reads records from r and replays them into a new Book. Every
// period rule is checked while replaying, a file breaking them is rejected.
func DecodeBook(r io.Reader) (*Book, error) {
	b := NewBook()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	n := 0
	for scanner.Scan() {
		n++
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		if err := b.decodeLine(line); err != nil {
			return nil, fmt.Errorf("format error on line %d: %w", n, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	for id, periods := range b.periods {
		if err := CheckContinuity(periods); err != nil {
			return nil, fmt.Errorf("account %q: %w", id, err)
		}
	}
	return b, nil
}

func (b *Book) decodeLine(line []byte) error {
	var j jrecord
	if err := json.Unmarshal(line, &j); err != nil {
		return err
	}

	switch j.Record {
	case recAccount:
		return b.addAccount(Account{ID: j.ID, Name: j.Name, Currency: j.Currency, Kind: j.Kind, Active: j.Active})
	case recSecurity:
		return b.AddSecurity(context.Background(), Security{ID: j.ID, Ticker: j.Ticker, Currency: j.Currency})
	case recPrice:
		var p Price
		if err := json.Unmarshal(line, &p); err != nil {
			return err
		}
		return b.AddPrice(context.Background(), p)
	case recRate:
		var r FxRate
		if err := json.Unmarshal(line, &r); err != nil {
			return err
		}
		return b.AddRate(context.Background(), r)
	case recPeriod:
		return b.insertPeriod(AccountPeriod{ID: j.ID, Account: j.Account, Start: j.Start, OpeningBalance: j.Opening})
	case recCash:
		return b.replay(CashTransaction{Header: j.Header, Amount: j.Amount, TransferTo: j.TransferTo, TransferID: j.TransferID})
	case recInvestment:
		var price Money
		if len(j.Price) > 0 {
			if err := json.Unmarshal(j.Price, &price); err != nil {
				return fmt.Errorf("invalid price: %w", err)
			}
		}
		return b.replay(InvestmentTransaction{Header: j.Header, Security: j.Security, Quantity: j.Quantity, Price: price.exact(), Fees: j.Fees})
	case recClose:
		return b.recordClose(j.Period, j.Date, j.Closing)
	default:
		return fmt.Errorf("unknown record %q", j.Record)
	}
}

// replay appends a decoded transaction into the period it names.
func (b *Book) replay(tx Transaction) error {
	h := tx.Head()
	if h.ID == "" {
		return errors.New("transaction id is missing")
	}
	account, i, ok := b.findPeriod(h.Period)
	if !ok {
		return fmt.Errorf("transaction %q names unknown period %q", h.ID, h.Period)
	}
	tx, err := tx.Validate(b.accounts[account], b.securities)
	if err != nil {
		return fmt.Errorf("invalid transaction %q: %w", h.ID, err)
	}
	p, err := b.periods[account][i].post(tx)
	if err != nil {
		return err
	}
	b.periods[account][i] = p
	return nil
}

// recordClose marks a period closed with its recorded closing balance.
func (b *Book) recordClose(period ID, on date.Date, closing Money) error {
	account, i, ok := b.findPeriod(period)
	if !ok {
		return fmt.Errorf("close of unknown period %q", period)
	}
	p := b.periods[account][i]
	if !p.IsOpen() {
		return fmt.Errorf("period %q: %w", period, ErrPeriodClosed)
	}
	if on.IsZero() || on.Before(p.Start) {
		return fmt.Errorf("period %q cannot close on %q", period, on)
	}
	p.End, p.CloseDate, p.ClosingBalance = on, on, closing
	b.periods[account][i] = p
	return nil
}

// LoadBook reads a Book from a JSONL file. A missing file yields an empty
// Book and an error wrapping fs.ErrNotExist.
func LoadBook(path string) (*Book, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewBook(), err
		}
		return nil, err
	}
	defer f.Close()
	b, err := DecodeBook(f)
	if err != nil {
		return nil, fmt.Errorf("cannot decode %q: %w", path, err)
	}
	return b, nil
}

// SaveBook writes b into path, replacing it atomically.
func SaveBook(path string, b *Book) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := EncodeBook(tmp, b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// sortedAccounts is Accounts without locking.
func (b *Book) sortedAccounts() []Account {
	return slices.SortedFunc(maps.Values(b.accounts), func(x, y Account) int { return cmp.Compare(x.ID, y.ID) })
}

func (b *Book) sortedSecurities() []Security {
	return slices.SortedFunc(maps.Values(b.securities), func(x, y Security) int { return cmp.Compare(x.ID, y.ID) })
}
