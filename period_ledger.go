package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PeriodLedger computes period balances. It is a stateless calculator over
// a snapshot of securities, prices and rates; it never mutates its inputs.
type PeriodLedger struct {
	securities map[ID]Security
	prices     *PriceIndex
	rates      *FxIndex
}

// NewPeriodLedger returns a ledger valuing investments with prices and rates.
// Nil indexes behave as empty ones.
func NewPeriodLedger(securities map[ID]Security, prices *PriceIndex, rates *FxIndex) *PeriodLedger {
	return &PeriodLedger{securities: securities, prices: prices, rates: rates}
}

// ComputeBalance returns the balance of period: its opening balance plus the
// contribution of each of its transactions.
//
// For a cash account a transaction contributes its signed amount. For an
// investment account it contributes its quantity valued at the security
// price as of the transaction date, converted into the account currency at
// the rate as of the same date. Missing prices count as 0 and missing rates
// as 1; each occurrence is listed in the returned Valuation.
//
// The sum is kept at full precision and does not depend on the order of the
// transactions.
func (l *PeriodLedger) ComputeBalance(account Account, period AccountPeriod) (Valuation, error) {
	if period.Account != "" && period.Account != account.ID {
		return Valuation{}, fmt.Errorf("period %q belongs to account %q, not %q", period.ID, period.Account, account.ID)
	}
	v := Valuation{Account: account.ID, Period: period.ID}

	opening := period.OpeningBalance
	if opening.Currency() == "" {
		opening = M(opening.Decimal(), account.Currency)
	}
	if opening.Currency() != account.Currency {
		return v, fmt.Errorf("period %q opens in %s, account is in %s: %w", period.ID, opening.Currency(), account.Currency, ErrCurrencyMismatch)
	}

	sum := decimal.Zero
	for _, tx := range period.Transactions {
		var (
			amount decimal.Decimal
			err    error
		)
		switch t := tx.(type) {
		case CashTransaction:
			amount, err = l.cash(account, t)
		case InvestmentTransaction:
			var ds []Degradation
			amount, ds, err = l.investment(account, t)
			v.Degradations = append(v.Degradations, ds...)
		default:
			err = fmt.Errorf("unsupported transaction type %T", tx)
		}
		if err != nil {
			return v, fmt.Errorf("period %q: %w", period.ID, err)
		}
		sum = sum.Add(amount)
	}
	v.Balance = opening.Add(M(sum, account.Currency))
	return v, nil
}

// cash returns the contribution of a cash transaction.
func (l *PeriodLedger) cash(account Account, t CashTransaction) (decimal.Decimal, error) {
	if account.Kind != Cash {
		return decimal.Zero, fmt.Errorf("transaction %q in %s account: %w", t.ID, account.Kind, ErrKindMismatch)
	}
	if c := t.Amount.Currency(); c != "" && c != account.Currency {
		return decimal.Zero, fmt.Errorf("transaction %q in %s, account in %s: %w", t.ID, c, account.Currency, ErrCurrencyMismatch)
	}
	return t.Amount.Decimal(), nil
}

// investment returns the contribution of an investment transaction and the
// defaults it used.
func (l *PeriodLedger) investment(account Account, t InvestmentTransaction) (decimal.Decimal, []Degradation, error) {
	if account.Kind != Investment {
		return decimal.Zero, nil, fmt.Errorf("transaction %q in %s account: %w", t.ID, account.Kind, ErrKindMismatch)
	}
	sec, ok := l.securities[t.Security]
	if !ok {
		return decimal.Zero, nil, fmt.Errorf("transaction %q security %q: %w", t.ID, t.Security, ErrUnknownSecurity)
	}

	var ds []Degradation
	price, ok := l.prices.LatestPriceAsOf(sec.ID, t.Date)
	if !ok {
		ds = append(ds, Degradation{Kind: MissingPriceData, Transaction: t.ID, Security: sec.ID, On: t.Date, Default: decimal.Zero})
		// nothing left to convert.
		return decimal.Zero, ds, nil
	}
	rate, ok := l.rates.LatestRateAsOf(sec.Currency, account.Currency, t.Date)
	if !ok {
		ds = append(ds, Degradation{Kind: MissingFxRate, Transaction: t.ID, From: sec.Currency, To: account.Currency, On: t.Date, Default: rate})
	}
	value := M(t.Quantity.Decimal().Mul(price), sec.Currency).Convert(rate, account.Currency)
	return value.Decimal(), ds, nil
}

// PeriodBalance returns the balance of period as it is reported: the
// recorded closing balance for a closed period, the computed balance for the
// open one. Closed periods are never recomputed.
func (l *PeriodLedger) PeriodBalance(account Account, period AccountPeriod) (Valuation, error) {
	if closing, ok := period.Closing(); ok {
		return Valuation{Account: account.ID, Period: period.ID, Balance: closing}, nil
	}
	return l.ComputeBalance(account, period)
}

// CurrentBalance computes the balance of the single open period among
// periods. Closed periods do not contribute: their result is already carried
// by the open period's opening balance.
func (l *PeriodLedger) CurrentBalance(account Account, periods []AccountPeriod) (Valuation, error) {
	open, err := OpenPeriod(periods)
	if err != nil {
		return Valuation{}, fmt.Errorf("account %q: %w", account.ID, err)
	}
	return l.ComputeBalance(account, open)
}
