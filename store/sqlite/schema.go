package sqlite

// Schema creates the tables of a ledger. Decimals are stored as TEXT to keep
// every digit, dates as TEXT in the YYYY-MM-DD format.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	currency TEXT NOT NULL,
	kind TEXT NOT NULL CHECK (kind IN ('cash', 'investment')),
	active INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS securities (
	id TEXT PRIMARY KEY,
	ticker TEXT NOT NULL DEFAULT '',
	currency TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS periods (
	id TEXT PRIMARY KEY,
	account_id TEXT NOT NULL REFERENCES accounts(id),
	opening TEXT NOT NULL,
	closing TEXT,
	start_date TEXT NOT NULL,
	end_date TEXT,
	close_date TEXT
);

-- at most one open period per account.
CREATE UNIQUE INDEX IF NOT EXISTS idx_periods_open ON periods(account_id) WHERE close_date IS NULL;
CREATE INDEX IF NOT EXISTS idx_periods_account ON periods(account_id, start_date);

CREATE TABLE IF NOT EXISTS transactions (
	id TEXT PRIMARY KEY,
	period_id TEXT NOT NULL REFERENCES periods(id),
	kind TEXT NOT NULL CHECK (kind IN ('cash', 'investment')),
	date TEXT NOT NULL,
	type TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	memo TEXT NOT NULL DEFAULT '',
	amount TEXT,
	transfer_to TEXT,
	transfer_id TEXT,
	security_id TEXT REFERENCES securities(id),
	quantity TEXT,
	price TEXT,
	fees TEXT
);

CREATE INDEX IF NOT EXISTS idx_transactions_period ON transactions(period_id, date);

CREATE TABLE IF NOT EXISTS prices (
	security_id TEXT NOT NULL REFERENCES securities(id),
	date TEXT NOT NULL,
	price TEXT NOT NULL,
	PRIMARY KEY (security_id, date)
);

CREATE TABLE IF NOT EXISTS fx_rates (
	from_currency TEXT NOT NULL,
	to_currency TEXT NOT NULL,
	date TEXT NOT NULL,
	rate TEXT NOT NULL,
	PRIMARY KEY (from_currency, to_currency, date)
);
`
