// Package sqlite keeps a ledger in a SQLite database.
//
// Every write runs in its own IMMEDIATE transaction: posting checks the open
// period and inserts in one step, and a period close computes its balance
// while posts into the account are excluded. A unique partial index forbids
// a second open period per account.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/etnz/ledger"
	"github.com/etnz/ledger/date"
	"github.com/mattn/go-sqlite3"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// cache keys.
const (
	keySecurities = "securities"
	keyPrices     = "prices"
	keyRates      = "rates"
)

// Store is a ledger.Store backed by SQLite.
//
// Securities, prices and rates are cached for a TTL and dropped on every
// write to them. Cached indexes are shared between callers, they must not
// be modified.
type Store struct {
	db    *sql.DB
	cache *cache.Cache // nil when disabled.
	ttl   time.Duration
	log   zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithCacheTTL sets how long market data is cached, 0 disables the cache.
func WithCacheTTL(d time.Duration) Option { return func(s *Store) { s.ttl = d } }

// WithLogger sets the logger of the store.
func WithLogger(l zerolog.Logger) Option { return func(s *Store) { s.log = l } }

// Open opens, and creates if needed, the database at path.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{ttl: 5 * time.Minute, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, err
	}
	// a single connection serializes writers, and readers wait for them.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot create schema in %q: %w", path, err)
	}
	if s.ttl > 0 {
		s.cache = cache.New(s.ttl, 2*s.ttl)
	}
	s.db = db
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// querier is either the database or a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withTx runs fn in a transaction, committed only if fn succeeds.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// isConstraint reports whether err is a SQLite constraint violation.
func isConstraint(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.Code == sqlite3.ErrConstraint
}

func (s *Store) invalidate(key string) {
	if s.cache != nil {
		s.cache.Delete(key)
	}
}

// OpenAccount implements ledger.Store.
func (s *Store) OpenAccount(ctx context.Context, a ledger.Account, start date.Date, initial ledger.Money) (ledger.AccountPeriod, error) {
	if err := a.Validate(); err != nil {
		return ledger.AccountPeriod{}, err
	}
	p, err := ledger.FirstPeriod(a, start, initial)
	if err != nil {
		return ledger.AccountPeriod{}, err
	}
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO accounts (id, name, currency, kind, active)
			VALUES (?, ?, ?, ?, ?)`,
			a.ID, a.Name, a.Currency, a.Kind.String(), a.Active,
		); err != nil {
			if isConstraint(err) {
				return fmt.Errorf("account %q: %w", a.ID, ledger.ErrDuplicate)
			}
			return err
		}
		return insertPeriod(ctx, tx, p)
	})
	if err != nil {
		return ledger.AccountPeriod{}, err
	}
	s.log.Debug().Str("account", string(a.ID)).Str("period", string(p.ID)).Msg("account opened")
	return p, nil
}

// AddSecurity implements ledger.Store.
func (s *Store) AddSecurity(ctx context.Context, sec ledger.Security) error {
	if err := sec.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO securities (id, ticker, currency) VALUES (?, ?, ?)`, sec.ID, sec.Ticker, sec.Currency)
	if isConstraint(err) {
		return fmt.Errorf("security %q: %w", sec.ID, ledger.ErrDuplicate)
	}
	if err != nil {
		return err
	}
	s.invalidate(keySecurities)
	return nil
}

// AddPrice implements ledger.Store. A price on the same day replaces the
// previous one.
func (s *Store) AddPrice(ctx context.Context, p ledger.Price) error {
	if err := p.Validate(); err != nil {
		return err
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM securities WHERE id = ?`, p.Security).Scan(&n); err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("price for %q: %w", p.Security, ledger.ErrUnknownSecurity)
		}
		_, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO prices (security_id, date, price) VALUES (?, ?, ?)`, p.Security, p.Date, p.Value)
		return err
	})
	if err != nil {
		return err
	}
	s.invalidate(keyPrices)
	return nil
}

// AddRate implements ledger.Store. A rate on the same day replaces the
// previous one.
func (s *Store) AddRate(ctx context.Context, r ledger.FxRate) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO fx_rates (from_currency, to_currency, date, rate)
		VALUES (?, ?, ?, ?)`, r.From, r.To, r.Date, r.Rate); err != nil {
		return err
	}
	s.invalidate(keyRates)
	return nil
}

// Post implements ledger.Store.
func (s *Store) Post(ctx context.Context, account ledger.ID, t ledger.Transaction) (posted ledger.Transaction, err error) {
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		posted, err = post(ctx, tx, account, t)
		return err
	})
	return posted, err
}

// PostTransfer implements ledger.Store.
func (s *Store) PostTransfer(ctx context.Context, pair ledger.TransferPair) (source, mirrored ledger.Transaction, err error) {
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if source, err = post(ctx, tx, pair.From, pair.Source); err != nil {
			return fmt.Errorf("transfer source: %w", err)
		}
		if mirrored, err = post(ctx, tx, pair.To, pair.Mirrored); err != nil {
			return fmt.Errorf("transfer destination: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return source, mirrored, nil
}

// post validates t and inserts it into the open period of account.
func post(ctx context.Context, q querier, account ledger.ID, t ledger.Transaction) (ledger.Transaction, error) {
	acct, err := loadAccount(ctx, q, account)
	if err != nil {
		return nil, err
	}
	if !acct.Active {
		return nil, fmt.Errorf("account %q: %w", account, ledger.ErrInactiveAccount)
	}
	secs, err := loadSecurities(ctx, q)
	if err != nil {
		return nil, err
	}
	t, err = t.Validate(acct, secs)
	if err != nil {
		return nil, fmt.Errorf("invalid transaction for %q: %w", account, err)
	}

	periods, err := loadPeriods(ctx, q, acct, nil)
	if err != nil {
		return nil, err
	}
	open, err := ledger.OpenPeriod(periods)
	if err != nil {
		return nil, fmt.Errorf("account %q: %w", account, err)
	}
	if err := open.Accept(t); err != nil {
		return nil, err
	}
	h := t.Head()
	if h.ID == "" {
		h.ID = ledger.NewID()
	}
	h.Period = open.ID
	t = ledger.WithHeader(t, h)
	if err := insertTransaction(ctx, q, t); err != nil {
		return nil, err
	}
	return t, nil
}

// ClosePeriod implements ledger.PeriodCloser. The balance is computed and
// the period closed in the same transaction.
func (s *Store) ClosePeriod(ctx context.Context, account ledger.ID, on date.Date, closing ledger.CloseFunc) (closed, next ledger.AccountPeriod, err error) {
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		acct, err := loadAccount(ctx, tx, account)
		if err != nil {
			return err
		}
		secs, err := loadSecurities(ctx, tx)
		if err != nil {
			return err
		}
		periods, err := loadPeriods(ctx, tx, acct, secs)
		if err != nil {
			return err
		}
		open, err := ledger.OpenPeriod(periods)
		if err != nil {
			return fmt.Errorf("account %q: %w", account, err)
		}
		balance, err := closing(acct, open)
		if err != nil {
			return err
		}
		if closed, next, err = open.Close(on, balance); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE periods SET closing = ?, end_date = ?, close_date = ?
			WHERE id = ? AND close_date IS NULL`,
			closed.ClosingBalance.Decimal(), closed.End, closed.CloseDate, closed.ID)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil || n != 1 {
			return fmt.Errorf("period %q: %w", closed.ID, ledger.ErrPeriodClosed)
		}
		return insertPeriod(ctx, tx, next)
	})
	if err != nil {
		return closed, next, err
	}
	return closed, next, nil
}

// Account implements ledger.Repository.
func (s *Store) Account(ctx context.Context, id ledger.ID) (ledger.Account, error) {
	return loadAccount(ctx, s.db, id)
}

// Accounts implements ledger.Store.
func (s *Store) Accounts(ctx context.Context) ([]ledger.Account, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, currency, kind, active FROM accounts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Periods implements ledger.Repository.
func (s *Store) Periods(ctx context.Context, account ledger.ID) ([]ledger.AccountPeriod, error) {
	acct, err := loadAccount(ctx, s.db, account)
	if err != nil {
		return nil, err
	}
	secs, err := s.Securities(ctx)
	if err != nil {
		return nil, err
	}
	return loadPeriods(ctx, s.db, acct, secs)
}

// Securities implements ledger.Repository.
func (s *Store) Securities(ctx context.Context) (map[ledger.ID]ledger.Security, error) {
	return cached(s, keySecurities, func() (map[ledger.ID]ledger.Security, error) {
		return loadSecurities(ctx, s.db)
	})
}

// PriceIndex implements ledger.Repository.
func (s *Store) PriceIndex(ctx context.Context) (*ledger.PriceIndex, error) {
	return cached(s, keyPrices, func() (*ledger.PriceIndex, error) {
		rows, err := s.db.QueryContext(ctx, `SELECT security_id, date, price FROM prices`)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		idx := ledger.NewPriceIndex()
		for rows.Next() {
			var p ledger.Price
			if err := rows.Scan(&p.Security, &p.Date, &p.Value); err != nil {
				return nil, err
			}
			idx.Add(p)
		}
		return idx, rows.Err()
	})
}

// FxIndex implements ledger.Repository.
func (s *Store) FxIndex(ctx context.Context) (*ledger.FxIndex, error) {
	return cached(s, keyRates, func() (*ledger.FxIndex, error) {
		rows, err := s.db.QueryContext(ctx, `SELECT from_currency, to_currency, date, rate FROM fx_rates`)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		idx := ledger.NewFxIndex()
		for rows.Next() {
			var r ledger.FxRate
			if err := rows.Scan(&r.From, &r.To, &r.Date, &r.Rate); err != nil {
				return nil, err
			}
			idx.Add(r)
		}
		return idx, rows.Err()
	})
}

// LatestPriceAsOf returns the most recent price of security dated on or
// before on, straight from the database. It implements ledger.PriceLookup.
func (s *Store) LatestPriceAsOf(ctx context.Context, security ledger.ID, on date.Date) (decimal.Decimal, bool, error) {
	var price decimal.Decimal
	err := s.db.QueryRowContext(ctx, `
		SELECT price FROM prices
		WHERE security_id = ? AND date <= ?
		ORDER BY date DESC
		LIMIT 1`, security, on).Scan(&price)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}
	return price, true, nil
}

// cached returns the value under key, loading it on a miss.
func cached[T any](s *Store, key string, load func() (T, error)) (T, error) {
	if s.cache != nil {
		if v, found := s.cache.Get(key); found {
			return v.(T), nil
		}
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	if s.cache != nil {
		s.cache.Set(key, v, cache.DefaultExpiration)
	}
	return v, nil
}

var (
	_ ledger.Store       = (*Store)(nil)
	_ ledger.PriceLookup = (*Store)(nil)
)
