package ledger

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// staticRepo serves fixed data, it cannot close periods.
type staticRepo struct {
	accounts map[ID]Account
	periods  map[ID][]AccountPeriod
	prices   *PriceIndex
	rates    *FxIndex
}

func (r staticRepo) Account(_ context.Context, id ID) (Account, error) {
	a, ok := r.accounts[id]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return a, nil
}
func (r staticRepo) Periods(_ context.Context, id ID) ([]AccountPeriod, error) {
	return r.periods[id], nil
}
func (r staticRepo) Securities(context.Context) (map[ID]Security, error) { return securities(), nil }
func (r staticRepo) PriceIndex(context.Context) (*PriceIndex, error)     { return r.prices, nil }
func (r staticRepo) FxIndex(context.Context) (*FxIndex, error)           { return r.rates, nil }

func TestService_CurrentBalanceErrors(t *testing.T) {
	ctx := context.Background()
	closed, _, err := period(checking, "2025-01-01", USD(10)).Close(day("2025-01-31"), USD(10))
	if err != nil {
		t.Fatalf("close() failed: %v", err)
	}
	dormant := savings
	dormant.Active = false
	repo := staticRepo{
		accounts: map[ID]Account{checking.ID: checking, savings.ID: dormant, broker.ID: broker},
		periods: map[ID][]AccountPeriod{
			checking.ID: {closed},
			savings.ID:  {closed},
			broker.ID:   {period(broker, "2025-01-01", USD(0)), period(broker, "2025-02-01", USD(0))},
		},
	}
	s := NewService(repo)

	if _, err := s.CurrentBalance(ctx, "nope"); !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("CurrentBalance(unknown) = %v, want ErrAccountNotFound", err)
	}
	if _, err := s.CurrentBalance(ctx, checking.ID); !errors.Is(err, ErrNoOpenPeriod) {
		t.Errorf("CurrentBalance(no open period) = %v, want ErrNoOpenPeriod", err)
	}
	if _, err := s.CurrentBalance(ctx, broker.ID); !errors.Is(err, ErrAmbiguousOpenPeriod) {
		t.Errorf("CurrentBalance(two open periods) = %v, want ErrAmbiguousOpenPeriod", err)
	}
	// an inactive account reports its last closing.
	v, err := s.CurrentBalance(ctx, savings.ID)
	if err != nil {
		t.Fatalf("CurrentBalance(inactive) failed: %v", err)
	}
	if !v.Balance.Equal(USD(10)) {
		t.Errorf("CurrentBalance(inactive) = %v, want 10", v.Balance)
	}
	if _, _, err := s.ClosePeriod(ctx, checking.ID, day("2025-03-01")); err == nil {
		t.Error("ClosePeriod() on a read only repository succeeded")
	}
}

func TestService_Scenarios(t *testing.T) {
	ctx := context.Background()
	b := newTestBook(t, map[ID]Money{checking.ID: USD(1000), broker.ID: USD(10000)})
	for _, p := range []Price{
		{Security: "acme", Date: day("2025-01-02"), Value: dec("100")},
		{Security: "acme", Date: day("2025-01-03"), Value: dec("150")},
	} {
		if err := b.AddPrice(ctx, p); err != nil {
			t.Fatalf("AddPrice() failed: %v", err)
		}
	}
	mustPost(t, b, checking.ID, NewCash(day("2025-01-02"), USD(500), ""))
	mustPost(t, b, checking.ID, NewCash(day("2025-01-03"), USD(-200), ""))
	mustPost(t, b, broker.ID, NewInvestment(day("2025-01-02"), "acme", Q(10), USD(100)))
	mustPost(t, b, broker.ID, NewInvestment(day("2025-01-03"), "acme", Q(5), USD(150)))

	s := NewService(b, WithPolicy(Reject))
	for id, want := range map[ID]Money{checking.ID: USD(1300), broker.ID: USD(11750)} {
		v, err := s.CurrentBalance(ctx, id)
		if err != nil {
			t.Fatalf("CurrentBalance(%q) failed: %v", id, err)
		}
		if !v.Balance.Equal(want) {
			t.Errorf("CurrentBalance(%q) = %v, want %v", id, v.Balance, want)
		}
	}
}

func TestService_ClosePeriod(t *testing.T) {
	ctx := context.Background()
	b := newTestBook(t, map[ID]Money{checking.ID: USD(1000)})
	mustPost(t, b, checking.ID, NewCash(day("2025-01-10"), USD(200), "old"))

	var logs bytes.Buffer
	s := NewService(b, WithLogger(zerolog.New(&logs)))
	closed, next, err := s.ClosePeriod(ctx, checking.ID, day("2025-01-31"))
	if err != nil {
		t.Fatalf("ClosePeriod() failed: %v", err)
	}
	if got, _ := closed.Closing(); !got.Equal(USD(1200)) {
		t.Errorf("closing = %v, want 1200", got)
	}
	if !next.OpeningBalance.Equal(USD(1200)) {
		t.Errorf("next opening = %v, want 1200", next.OpeningBalance)
	}
	if !strings.Contains(logs.String(), "period closed") {
		t.Errorf("close was not logged: %s", logs.String())
	}

	mustPost(t, b, checking.ID, NewCash(day("2025-02-05"), USD(300), "b"))
	mustPost(t, b, checking.ID, NewCash(day("2025-02-03"), USD(-50), "a"))

	v, err := s.CurrentBalance(ctx, checking.ID)
	if err != nil {
		t.Fatalf("CurrentBalance() failed: %v", err)
	}
	if !v.Balance.Equal(USD(1450)) {
		t.Errorf("CurrentBalance() = %v, want 1450", v.Balance)
	}

	txs, err := s.TransactionHistory(ctx, checking.ID)
	if err != nil {
		t.Fatalf("TransactionHistory() failed: %v", err)
	}
	var memos []string
	for _, tx := range txs {
		memos = append(memos, tx.Head().Memo)
	}
	if got := strings.Join(memos, ","); got != "a,b" {
		t.Errorf("TransactionHistory() memos = %s, want a,b", got)
	}

	statements, err := s.Statement(ctx, checking.ID)
	if err != nil {
		t.Fatalf("Statement() failed: %v", err)
	}
	if len(statements) != 2 {
		t.Fatalf("Statement() returned %d periods, want 2", len(statements))
	}
	first, second := statements[0], statements[1]
	if first.Open || !first.Opening.Equal(USD(1000)) || !first.Closing.Equal(USD(1200)) || first.Transactions != 1 {
		t.Errorf("first statement = %+v", first)
	}
	if !second.Open || !second.Opening.Equal(USD(1200)) || !second.Closing.Equal(USD(1450)) || second.Transactions != 2 {
		t.Errorf("second statement = %+v", second)
	}
}

func TestService_MissingDataPolicy(t *testing.T) {
	ctx := context.Background()
	b := newTestBook(t, map[ID]Money{broker.ID: USD(100)})
	mustPost(t, b, broker.ID, NewInvestment(day("2025-01-02"), "acme", Q(10), USD(100)))

	var logs bytes.Buffer
	warn := NewService(b, WithPolicy(Warn), WithLogger(zerolog.New(&logs)))
	v, err := warn.CurrentBalance(ctx, broker.ID)
	if err != nil {
		t.Fatalf("CurrentBalance() with Warn failed: %v", err)
	}
	if !v.Balance.Equal(USD(100)) || !v.Degraded() {
		t.Errorf("CurrentBalance() = %v degraded=%v, want 100 degraded", v.Balance, v.Degraded())
	}
	if !strings.Contains(logs.String(), `"kind":"missing-price"`) {
		t.Errorf("degradation was not logged: %s", logs.String())
	}

	reject := NewService(b, WithPolicy(Reject))
	if _, err := reject.CurrentBalance(ctx, broker.ID); !errors.Is(err, ErrMissingPriceData) {
		t.Errorf("CurrentBalance() with Reject = %v, want ErrMissingPriceData", err)
	}
	if _, _, err := reject.ClosePeriod(ctx, broker.ID, day("2025-01-31")); !errors.Is(err, ErrMissingPriceData) {
		t.Errorf("ClosePeriod() with Reject = %v, want ErrMissingPriceData", err)
	}
}

func TestService_PriceAsOf(t *testing.T) {
	repo := staticRepo{prices: NewPriceIndex(
		Price{Security: "acme", Date: day("2025-01-10"), Value: dec("100")},
		Price{Security: "acme", Date: day("2025-01-20"), Value: dec("110")},
	)}
	s := NewService(repo)

	testCases := []struct {
		name     string
		security ID
		on       string
		want     string
		wantOK   bool
	}{
		{"before any price", "acme", "2025-01-09", "0", false},
		{"on the day", "acme", "2025-01-10", "100", true},
		{"between prices", "acme", "2025-01-15", "100", true},
		{"after the last price", "acme", "2025-03-01", "110", true},
		{"no price at all", "lvmh", "2025-03-01", "0", false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok, err := s.PriceAsOf(ctx, tc.security, day(tc.on))
			if err != nil {
				t.Fatalf("PriceAsOf() failed: %v", err)
			}
			if !got.Equal(dec(tc.want)) || ok != tc.wantOK {
				t.Errorf("PriceAsOf(%s, %s) = %v, %v, want %v, %v", tc.security, tc.on, got, ok, tc.want, tc.wantOK)
			}
		})
	}

	if _, _, err := s.PriceAsOf(ctx, "nope", day("2025-01-15")); !errors.Is(err, ErrUnknownSecurity) {
		t.Errorf("PriceAsOf(unknown) = %v, want ErrUnknownSecurity", err)
	}
}

func TestParseMissingDataPolicy(t *testing.T) {
	testCases := []struct {
		in      string
		want    MissingDataPolicy
		wantErr bool
	}{
		{"", Warn, false},
		{"warn", Warn, false},
		{"reject", Reject, false},
		{"ignore", Warn, true},
	}
	for _, tc := range testCases {
		got, err := ParseMissingDataPolicy(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseMissingDataPolicy(%q) error = %v, want error: %v", tc.in, err, tc.wantErr)
		}
		if err == nil && got != tc.want {
			t.Errorf("ParseMissingDataPolicy(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
