package ledger

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/etnz/ledger/date"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Repository is the read side the Service needs from storage.
type Repository interface {
	// Account returns the account, or an error wrapping ErrAccountNotFound.
	Account(ctx context.Context, id ID) (Account, error)
	// Periods returns the account periods sorted by start date, with their
	// transactions.
	Periods(ctx context.Context, account ID) ([]AccountPeriod, error)
	Securities(ctx context.Context) (map[ID]Security, error)
	PriceIndex(ctx context.Context) (*PriceIndex, error)
	FxIndex(ctx context.Context) (*FxIndex, error)
}

// PriceLookup is implemented by repositories answering a single price
// lookup without loading the whole price index.
type PriceLookup interface {
	LatestPriceAsOf(ctx context.Context, security ID, on date.Date) (decimal.Decimal, bool, error)
}

// CloseFunc returns the closing balance of the open period of account.
type CloseFunc func(account Account, open AccountPeriod) (Money, error)

// PeriodCloser is implemented by repositories able to close periods.
//
// ClosePeriod must call closing and write the closed period and its
// successor in a single step that excludes concurrent posts into the open
// period.
type PeriodCloser interface {
	ClosePeriod(ctx context.Context, account ID, on date.Date, closing CloseFunc) (closed, next AccountPeriod, err error)
}

// Store is a Repository that also records writes. Book and the sqlite
// store implement it.
type Store interface {
	Repository
	PeriodCloser
	// Accounts returns all the accounts sorted by ID.
	Accounts(ctx context.Context) ([]Account, error)
	// OpenAccount adds an account with its first period.
	OpenAccount(ctx context.Context, a Account, start date.Date, initial Money) (AccountPeriod, error)
	AddSecurity(ctx context.Context, s Security) error
	AddPrice(ctx context.Context, p Price) error
	AddRate(ctx context.Context, r FxRate) error
	// Post validates tx and appends it to the open period of account. It
	// returns the transaction as stored, with its ID and period set.
	Post(ctx context.Context, account ID, tx Transaction) (Transaction, error)
	// PostTransfer posts both legs of a transfer, or none.
	PostTransfer(ctx context.Context, pair TransferPair) (source, mirrored Transaction, err error)
}

// Service answers balance questions about accounts.
type Service struct {
	repo   Repository
	policy MissingDataPolicy
	log    zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithPolicy sets what happens to valuations that used default market data.
func WithPolicy(p MissingDataPolicy) Option { return func(s *Service) { s.policy = p } }

// WithLogger sets the logger degradations and closes are reported to.
func WithLogger(l zerolog.Logger) Option { return func(s *Service) { s.log = l } }

// NewService returns a Service reading from repo.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo, policy: Warn, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// load reads the account and its periods.
func (s *Service) load(ctx context.Context, id ID) (Account, []AccountPeriod, error) {
	account, err := s.repo.Account(ctx, id)
	if err != nil {
		return Account{}, nil, err
	}
	periods, err := s.repo.Periods(ctx, id)
	if err != nil {
		return account, nil, fmt.Errorf("cannot load periods of %q: %w", id, err)
	}
	return account, periods, nil
}

// ledger returns a PeriodLedger over the current market data.
func (s *Service) ledger(ctx context.Context) (*PeriodLedger, error) {
	securities, err := s.repo.Securities(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot load securities: %w", err)
	}
	prices, err := s.repo.PriceIndex(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot load prices: %w", err)
	}
	rates, err := s.repo.FxIndex(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot load fx rates: %w", err)
	}
	return NewPeriodLedger(securities, prices, rates), nil
}

// CurrentBalance returns the balance of the account's open period.
//
// It fails with ErrAccountNotFound, ErrNoOpenPeriod or ErrAmbiguousOpenPeriod.
// An inactive account with every period closed reports its last recorded
// closing balance.
func (s *Service) CurrentBalance(ctx context.Context, id ID) (Valuation, error) {
	account, periods, err := s.load(ctx, id)
	if err != nil {
		return Valuation{}, err
	}
	open, err := OpenPeriod(periods)
	if errors.Is(err, ErrNoOpenPeriod) && !account.Active && len(periods) > 0 {
		last := periods[len(periods)-1]
		closing, _ := last.Closing()
		return Valuation{Account: id, Period: last.ID, Balance: closing}, nil
	}
	if err != nil {
		return Valuation{}, fmt.Errorf("account %q: %w", id, err)
	}
	l, err := s.ledger(ctx)
	if err != nil {
		return Valuation{}, err
	}
	v, err := l.ComputeBalance(account, open)
	if err != nil {
		return Valuation{}, err
	}
	return s.apply(v)
}

// TransactionHistory returns the transactions of the account's open period,
// by date. Closed periods are not part of the history.
func (s *Service) TransactionHistory(ctx context.Context, id ID) ([]Transaction, error) {
	_, periods, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	open, err := OpenPeriod(periods)
	if err != nil {
		return nil, fmt.Errorf("account %q: %w", id, err)
	}
	txs := slices.Clone(open.Transactions)
	slices.SortStableFunc(txs, func(a, b Transaction) int { return a.When().Compare(b.When()) })
	return txs, nil
}

// PriceAsOf returns the price an investment in security dated on is valued
// at, and false when no price is known at or before that day.
func (s *Service) PriceAsOf(ctx context.Context, security ID, on date.Date) (decimal.Decimal, bool, error) {
	securities, err := s.repo.Securities(ctx)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("cannot load securities: %w", err)
	}
	if _, ok := securities[security]; !ok {
		return decimal.Zero, false, fmt.Errorf("security %q: %w", security, ErrUnknownSecurity)
	}
	if lookup, ok := s.repo.(PriceLookup); ok {
		return lookup.LatestPriceAsOf(ctx, security, on)
	}
	prices, err := s.repo.PriceIndex(ctx)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("cannot load prices: %w", err)
	}
	price, ok := prices.LatestPriceAsOf(security, on)
	return price, ok, nil
}

// PeriodStatement summarizes one period of an account.
type PeriodStatement struct {
	Period       ID
	Range        date.Range
	Open         bool
	Opening      Money
	Closing      Money // recorded for closed periods, computed for the open one.
	Transactions int
	Degradations []Degradation
}

// Statement returns one PeriodStatement per period of the account.
func (s *Service) Statement(ctx context.Context, id ID) ([]PeriodStatement, error) {
	account, periods, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := OpenPeriod(periods); errors.Is(err, ErrAmbiguousOpenPeriod) {
		return nil, fmt.Errorf("account %q: %w", id, err)
	}
	l, err := s.ledger(ctx)
	if err != nil {
		return nil, err
	}
	statements := make([]PeriodStatement, 0, len(periods))
	for _, p := range periods {
		v, err := l.PeriodBalance(account, p)
		if err != nil {
			return nil, err
		}
		if v, err = s.apply(v); err != nil {
			return nil, err
		}
		statements = append(statements, PeriodStatement{
			Period:       p.ID,
			Range:        p.Range(),
			Open:         p.IsOpen(),
			Opening:      p.OpeningBalance,
			Closing:      v.Rounded(),
			Transactions: len(p.Transactions),
			Degradations: v.Degradations,
		})
	}
	return statements, nil
}

// ClosePeriod closes the account's open period on the given day and opens
// the next one, starting the day after with the closing balance as opening.
func (s *Service) ClosePeriod(ctx context.Context, id ID, on date.Date) (closed, next AccountPeriod, err error) {
	closer, ok := s.repo.(PeriodCloser)
	if !ok {
		return closed, next, fmt.Errorf("repository %T cannot close periods", s.repo)
	}
	l, err := s.ledger(ctx)
	if err != nil {
		return closed, next, err
	}
	closed, next, err = closer.ClosePeriod(ctx, id, on, func(account Account, open AccountPeriod) (Money, error) {
		v, err := l.ComputeBalance(account, open)
		if err != nil {
			return Money{}, err
		}
		if v, err = s.apply(v); err != nil {
			return Money{}, err
		}
		return v.Balance, nil
	})
	if err != nil {
		return closed, next, fmt.Errorf("cannot close period of %q: %w", id, err)
	}
	s.log.Info().
		Str("account", string(id)).
		Str("period", string(closed.ID)).
		Stringer("closed_on", closed.CloseDate).
		Stringer("closing", closed.ClosingBalance).
		Str("next", string(next.ID)).
		Msg("period closed")
	return closed, next, nil
}

// apply enforces the missing data policy on v.
func (s *Service) apply(v Valuation) (Valuation, error) {
	if !v.Degraded() {
		return v, nil
	}
	if s.policy == Reject {
		return v, fmt.Errorf("account %q: degraded valuation: %w", v.Account, v.Err())
	}
	for _, d := range v.Degradations {
		s.log.Warn().
			Str("account", string(v.Account)).
			Str("period", string(v.Period)).
			Str("kind", d.Kind.String()).
			Str("transaction", string(d.Transaction)).
			Stringer("as_of", d.On).
			Msg(d.Error())
	}
	return v, nil
}
