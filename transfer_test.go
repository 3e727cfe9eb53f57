package ledger

import (
	"context"
	"testing"
)

func TestNewTransfer(t *testing.T) {
	euros := Account{ID: "euros", Name: "Euros", Currency: "EUR", Kind: Cash, Active: true}
	testCases := []struct {
		name     string
		from, to Account
		amount   Money
		want     error
	}{
		{"valid", checking, savings, USD(300), nil},
		{"currency defaults", checking, savings, NO(300), nil},
		{"to itself", checking, checking, USD(300), errAny},
		{"investment account", checking, broker, USD(300), ErrKindMismatch},
		{"foreign account", checking, euros, USD(300), ErrCurrencyMismatch},
		{"negative amount", checking, savings, USD(-300), errAny},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			pair, err := NewTransfer(tc.from, tc.to, day("2025-01-05"), tc.amount, "")
			checkErr(t, err, tc.want)
			if err != nil {
				return
			}
			if !pair.Source.Amount.Equal(USD(-300)) || !pair.Mirrored.Amount.Equal(USD(300)) {
				t.Errorf("legs = %v / %v, want -300 / +300", pair.Source.Amount, pair.Mirrored.Amount)
			}
			if pair.Source.TransferID == "" || pair.Source.TransferID != pair.Mirrored.TransferID {
				t.Errorf("legs are not linked: %q / %q", pair.Source.TransferID, pair.Mirrored.TransferID)
			}
			if pair.Source.TransferTo != tc.to.ID {
				t.Errorf("source TransferTo = %q, want %q", pair.Source.TransferTo, tc.to.ID)
			}
		})
	}
}

func TestBook_PostTransfer(t *testing.T) {
	ctx := context.Background()
	b := newTestBook(t, map[ID]Money{checking.ID: USD(1000), savings.ID: USD(500)})
	pair, err := NewTransfer(checking, savings, day("2025-01-05"), USD(300), "")
	if err != nil {
		t.Fatalf("NewTransfer() failed: %v", err)
	}
	if _, _, err := b.PostTransfer(ctx, pair); err != nil {
		t.Fatalf("PostTransfer() failed: %v", err)
	}

	s := NewService(b)
	for id, want := range map[ID]Money{checking.ID: USD(700), savings.ID: USD(800)} {
		v, err := s.CurrentBalance(ctx, id)
		if err != nil {
			t.Fatalf("CurrentBalance(%q) failed: %v", id, err)
		}
		if !v.Balance.Equal(want) {
			t.Errorf("CurrentBalance(%q) = %v, want %v", id, v.Balance, want)
		}
	}
}

func TestBook_PostTransferRollsBack(t *testing.T) {
	ctx := context.Background()
	b := newTestBook(t, map[ID]Money{checking.ID: USD(1000), savings.ID: USD(500)})
	// the destination no longer accepts transactions dated before its open period.
	if _, _, err := b.ClosePeriod(ctx, savings.ID, day("2025-01-31"), func(Account, AccountPeriod) (Money, error) {
		return USD(500), nil
	}); err != nil {
		t.Fatalf("ClosePeriod() failed: %v", err)
	}
	pair, err := NewTransfer(checking, savings, day("2025-01-05"), USD(300), "")
	if err != nil {
		t.Fatalf("NewTransfer() failed: %v", err)
	}
	if _, _, err := b.PostTransfer(ctx, pair); err == nil {
		t.Fatal("PostTransfer() succeeded")
	}
	txs, err := NewService(b).TransactionHistory(ctx, checking.ID)
	if err != nil {
		t.Fatalf("TransactionHistory() failed: %v", err)
	}
	if len(txs) != 0 {
		t.Errorf("source leg was kept: %v", txs)
	}
}
