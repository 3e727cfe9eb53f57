package ledger

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/etnz/ledger/date"
)

// Book is an in-memory Repository. It enforces the period rules on every
// write: a single open period per account, no post into a closed period,
// and closing balances carried into the next period.
//
// A Book is safe for concurrent use.
type Book struct {
	mu         sync.RWMutex
	accounts   map[ID]Account
	periods    map[ID][]AccountPeriod // by account, sorted by start date
	securities map[ID]Security
	prices     *PriceIndex
	rates      *FxIndex
}

// NewBook creates an empty book.
func NewBook() *Book {
	return &Book{
		accounts:   make(map[ID]Account),
		periods:    make(map[ID][]AccountPeriod),
		securities: make(map[ID]Security),
		prices:     NewPriceIndex(),
		rates:      NewFxIndex(),
	}
}

// OpenAccount adds an account and its first period, opening on start with
// the initial balance.
func (b *Book) OpenAccount(_ context.Context, a Account, start date.Date, initial Money) (AccountPeriod, error) {
	p, err := FirstPeriod(a, start, initial)
	if err != nil {
		return AccountPeriod{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.addAccount(a); err != nil {
		return AccountPeriod{}, err
	}
	if err := b.insertPeriod(p); err != nil {
		delete(b.accounts, a.ID)
		return AccountPeriod{}, err
	}
	return p, nil
}

// AddSecurity declares a security.
func (b *Book) AddSecurity(_ context.Context, s Security) error {
	if err := s.Validate(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.securities[s.ID]; ok {
		return fmt.Errorf("security %q: %w", s.ID, ErrDuplicate)
	}
	b.securities[s.ID] = s
	return nil
}

// AddPrice records the price of a declared security.
func (b *Book) AddPrice(_ context.Context, p Price) error {
	if err := p.Validate(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.securities[p.Security]; !ok {
		return fmt.Errorf("price for %q: %w", p.Security, ErrUnknownSecurity)
	}
	b.prices.Add(p)
	return nil
}

// AddRate records a currency conversion rate.
func (b *Book) AddRate(_ context.Context, r FxRate) error {
	if err := r.Validate(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rates.Add(r)
	return nil
}

// Post validates tx and appends it to the open period of account. It returns
// the transaction as stored, with its ID and period set.
func (b *Book) Post(_ context.Context, account ID, tx Transaction) (Transaction, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.post(account, tx)
}

// PostTransfer posts both legs of a transfer, or none.
func (b *Book) PostTransfer(_ context.Context, pair TransferPair) (source, mirrored Transaction, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// keep the source account periods to roll back if the mirror fails.
	backup := b.periods[pair.From]
	if source, err = b.post(pair.From, pair.Source); err != nil {
		return nil, nil, fmt.Errorf("transfer source: %w", err)
	}
	if mirrored, err = b.post(pair.To, pair.Mirrored); err != nil {
		b.periods[pair.From] = backup
		return nil, nil, fmt.Errorf("transfer destination: %w", err)
	}
	return source, mirrored, nil
}

// post is Post without locking.
func (b *Book) post(id ID, tx Transaction) (Transaction, error) {
	account, ok := b.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %q: %w", id, ErrAccountNotFound)
	}
	if !account.Active {
		return nil, fmt.Errorf("account %q: %w", id, ErrInactiveAccount)
	}
	tx, err := tx.Validate(account, b.securities)
	if err != nil {
		return nil, fmt.Errorf("invalid transaction for %q: %w", id, err)
	}

	periods := b.periods[id]
	i, err := openIndex(periods)
	if err != nil {
		return nil, fmt.Errorf("account %q: %w", id, err)
	}
	h := tx.Head()
	if h.ID == "" {
		h.ID = NewID()
	}
	h.Period = periods[i].ID
	tx = WithHeader(tx, h)

	p, err := periods[i].post(tx)
	if err != nil {
		return nil, err
	}
	periods = slices.Clone(periods)
	periods[i] = p
	b.periods[id] = periods
	return tx, nil
}

// ClosePeriod implements PeriodCloser.
func (b *Book) ClosePeriod(_ context.Context, id ID, on date.Date, closing CloseFunc) (closed, next AccountPeriod, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	account, ok := b.accounts[id]
	if !ok {
		return closed, next, fmt.Errorf("account %q: %w", id, ErrAccountNotFound)
	}
	periods := b.periods[id]
	i, err := openIndex(periods)
	if err != nil {
		return closed, next, fmt.Errorf("account %q: %w", id, err)
	}
	balance, err := closing(account, periods[i])
	if err != nil {
		return closed, next, err
	}
	closed, next, err = periods[i].Close(on, balance)
	if err != nil {
		return closed, next, err
	}
	periods = slices.Clone(periods)
	periods[i] = closed
	b.periods[id] = append(periods, next)
	return closed, next, nil
}

// openIndex returns the index of the open period.
func openIndex(periods []AccountPeriod) (int, error) {
	idx := -1
	for i, p := range periods {
		if !p.IsOpen() {
			continue
		}
		if idx >= 0 {
			return -1, ErrAmbiguousOpenPeriod
		}
		idx = i
	}
	if idx < 0 {
		return -1, ErrNoOpenPeriod
	}
	return idx, nil
}

// addAccount registers a without any period. Callers hold the lock.
func (b *Book) addAccount(a Account) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if _, ok := b.accounts[a.ID]; ok {
		return fmt.Errorf("account %q: %w", a.ID, ErrDuplicate)
	}
	b.accounts[a.ID] = a
	return nil
}

// insertPeriod adds an existing period to its account, keeping periods
// sorted. It refuses a second open period. Callers hold the lock.
func (b *Book) insertPeriod(p AccountPeriod) error {
	if _, ok := b.accounts[p.Account]; !ok {
		return fmt.Errorf("period %q of account %q: %w", p.ID, p.Account, ErrAccountNotFound)
	}
	periods := b.periods[p.Account]
	for _, q := range periods {
		if q.ID == p.ID {
			return fmt.Errorf("period %q: %w", p.ID, ErrDuplicate)
		}
		if p.IsOpen() && q.IsOpen() {
			return fmt.Errorf("account %q already has open period %q: %w", p.Account, q.ID, ErrAmbiguousOpenPeriod)
		}
	}
	i, _ := slices.BinarySearchFunc(periods, p, func(x, y AccountPeriod) int { return x.Start.Compare(y.Start) })
	b.periods[p.Account] = slices.Insert(slices.Clone(periods), i, p)
	return nil
}

// findPeriod returns the account and index of a period. Callers hold the lock.
func (b *Book) findPeriod(id ID) (ID, int, bool) {
	for account, periods := range b.periods {
		for i, p := range periods {
			if p.ID == id {
				return account, i, true
			}
		}
	}
	return "", 0, false
}

// Account implements Repository.
func (b *Book) Account(_ context.Context, id ID) (Account, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	a, ok := b.accounts[id]
	if !ok {
		return Account{}, fmt.Errorf("account %q: %w", id, ErrAccountNotFound)
	}
	return a, nil
}

// Accounts implements Store.
func (b *Book) Accounts(context.Context) ([]Account, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.sortedAccounts(), nil
}

// Periods implements Repository.
func (b *Book) Periods(_ context.Context, account ID) ([]AccountPeriod, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if _, ok := b.accounts[account]; !ok {
		return nil, fmt.Errorf("account %q: %w", account, ErrAccountNotFound)
	}
	return slices.Clone(b.periods[account]), nil
}

// Securities implements Repository.
func (b *Book) Securities(context.Context) (map[ID]Security, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return maps.Clone(b.securities), nil
}

// PriceIndex implements Repository, it returns a snapshot.
func (b *Book) PriceIndex(context.Context) (*PriceIndex, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return NewPriceIndex(slices.Collect(b.prices.Prices())...), nil
}

// FxIndex implements Repository, it returns a snapshot.
func (b *Book) FxIndex(context.Context) (*FxIndex, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return NewFxIndex(slices.Collect(b.rates.Rates())...), nil
}

var _ Store = (*Book)(nil)
