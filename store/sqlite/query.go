package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/etnz/ledger"
	"github.com/shopspring/decimal"
)

// scanner is either *sql.Row or *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (ledger.Account, error) {
	var (
		a    ledger.Account
		kind string
	)
	if err := row.Scan(&a.ID, &a.Name, &a.Currency, &kind, &a.Active); err != nil {
		return a, err
	}
	var err error
	a.Kind, err = ledger.ParseAccountKind(kind)
	return a, err
}

func loadAccount(ctx context.Context, q querier, id ledger.ID) (ledger.Account, error) {
	a, err := scanAccount(q.QueryRowContext(ctx, `SELECT id, name, currency, kind, active FROM accounts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Account{}, fmt.Errorf("account %q: %w", id, ledger.ErrAccountNotFound)
	}
	return a, err
}

func loadSecurities(ctx context.Context, q querier) (map[ledger.ID]ledger.Security, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, ticker, currency FROM securities`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[ledger.ID]ledger.Security)
	for rows.Next() {
		var s ledger.Security
		if err := rows.Scan(&s.ID, &s.Ticker, &s.Currency); err != nil {
			return nil, err
		}
		out[s.ID] = s
	}
	return out, rows.Err()
}

// loadPeriods returns the periods of acct sorted by start date. The
// transactions are loaded only when secs is not nil.
func loadPeriods(ctx context.Context, q querier, acct ledger.Account, secs map[ledger.ID]ledger.Security) ([]ledger.AccountPeriod, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, opening, closing, start_date, end_date, close_date
		FROM periods
		WHERE account_id = ?
		ORDER BY start_date ASC`, acct.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var periods []ledger.AccountPeriod
	index := make(map[ledger.ID]int)
	for rows.Next() {
		var (
			p       ledger.AccountPeriod
			opening decimal.Decimal
			closing decimal.NullDecimal
		)
		if err := rows.Scan(&p.ID, &opening, &closing, &p.Start, &p.End, &p.CloseDate); err != nil {
			return nil, err
		}
		p.Account = acct.ID
		p.OpeningBalance = ledger.M(opening, acct.Currency)
		if closing.Valid {
			p.ClosingBalance = ledger.M(closing.Decimal, acct.Currency)
		}
		index[p.ID] = len(periods)
		periods = append(periods, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if secs == nil {
		return periods, nil
	}

	txs, err := loadTransactions(ctx, q, acct, secs)
	if err != nil {
		return nil, err
	}
	for _, t := range txs {
		i, ok := index[t.Head().Period]
		if !ok {
			return nil, fmt.Errorf("transaction %q in unknown period %q", t.Head().ID, t.Head().Period)
		}
		periods[i].Transactions = append(periods[i].Transactions, t)
	}
	return periods, nil
}

func loadTransactions(ctx context.Context, q querier, acct ledger.Account, secs map[ledger.ID]ledger.Security) ([]ledger.Transaction, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT t.id, t.period_id, t.kind, t.date, t.type, t.category, t.memo,
			t.amount, t.transfer_to, t.transfer_id,
			t.security_id, t.quantity, t.price, t.fees
		FROM transactions t
		JOIN periods p ON p.id = t.period_id
		WHERE p.account_id = ?
		ORDER BY t.date ASC, t.id ASC`, acct.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Transaction
	for rows.Next() {
		var (
			h                       ledger.Header
			kind                    string
			amount, qty, price, fee decimal.NullDecimal
			transferTo, transferID  sql.NullString
			security                sql.NullString
		)
		if err := rows.Scan(&h.ID, &h.Period, &kind, &h.Date, &h.Type, &h.Category, &h.Memo,
			&amount, &transferTo, &transferID,
			&security, &qty, &price, &fee,
		); err != nil {
			return nil, err
		}
		switch kind {
		case "cash":
			out = append(out, ledger.CashTransaction{
				Header:     h,
				Amount:     ledger.M(amount.Decimal, acct.Currency),
				TransferTo: ledger.ID(transferTo.String),
				TransferID: ledger.ID(transferID.String),
			})
		case "investment":
			sec, ok := secs[ledger.ID(security.String)]
			if !ok {
				return nil, fmt.Errorf("transaction %q: security %q: %w", h.ID, security.String, ledger.ErrUnknownSecurity)
			}
			t := ledger.NewInvestment(h.Date, sec.ID, ledger.Q(qty.Decimal), ledger.M(price.Decimal, sec.Currency))
			t.Header = h
			if fee.Valid {
				t.Fees = ledger.M(fee.Decimal, sec.Currency)
			}
			out = append(out, t)
		default:
			return nil, fmt.Errorf("transaction %q has unknown kind %q", h.ID, kind)
		}
	}
	return out, rows.Err()
}

func insertPeriod(ctx context.Context, q querier, p ledger.AccountPeriod) error {
	var closing any
	if c, ok := p.Closing(); ok {
		closing = c.Decimal()
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO periods (id, account_id, opening, closing, start_date, end_date, close_date)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Account, p.OpeningBalance.Decimal(), closing, p.Start, p.End, p.CloseDate)
	if isConstraint(err) {
		return fmt.Errorf("period %q of %q: %w", p.ID, p.Account, ledger.ErrAmbiguousOpenPeriod)
	}
	return err
}

func insertTransaction(ctx context.Context, q querier, t ledger.Transaction) error {
	h := t.Head()
	var (
		kind                    string
		amount, qty, price, fee any
		transferTo, transferID  any
		security                any
	)
	switch v := t.(type) {
	case ledger.CashTransaction:
		kind = "cash"
		amount = v.Amount.Decimal()
		transferTo, transferID = nullID(v.TransferTo), nullID(v.TransferID)
	case ledger.InvestmentTransaction:
		kind = "investment"
		security = v.Security
		qty, price = v.Quantity.Decimal(), v.Price.Decimal()
		if !v.Fees.IsZero() {
			fee = v.Fees.Decimal()
		}
	default:
		return fmt.Errorf("unsupported transaction type %T", t)
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO transactions
		(id, period_id, kind, date, type, category, memo, amount, transfer_to, transfer_id, security_id, quantity, price, fees)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.Period, kind, h.Date, h.Type, h.Category, h.Memo,
		amount, transferTo, transferID, security, qty, price, fee,
	)
	if isConstraint(err) {
		return fmt.Errorf("transaction %q: %w", h.ID, ledger.ErrDuplicate)
	}
	return err
}

// nullID stores empty ids as NULL.
func nullID(id ledger.ID) any {
	if id == "" {
		return nil
	}
	return string(id)
}
