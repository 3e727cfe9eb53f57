// Package ledger keeps cash and investment accounts in accounting periods and
// computes their balances.
//
// The core functionalities include:
//   - Periods: every account is split into periods. Exactly one period is
//     open at a time and receives the transactions. Closing a period records
//     its balance and opens the next one with that balance as opening.
//   - Balances: a PeriodLedger sums the opening balance and the
//     transactions of a period. Investments are valued at the security price
//     and the currency rate as of their date, looked up in a PriceIndex and
//     an FxIndex.
//   - Missing market data: defaults are used and reported in the Valuation,
//     a MissingDataPolicy decides whether they are only logged or rejected.
//   - Storage: a Book keeps everything in memory and persists as JSONL, one
//     record per line. The store/sqlite package offers the same Store
//     interface on a sqlite database.
//
// This package serves as the foundational logic for the `ldg` command-line
// tool.
package ledger
