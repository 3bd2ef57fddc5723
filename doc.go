// Package brokerfeed turns the per-account data of a brokerage aggregation
// API into currency normalized summaries and a daily history of account
// values.
//
// The core functionalities include:
//   - Aggregation: Aggregate reconciles the cash balances and the security
//     positions of an account payload into one CurrencyRow per currency. It
//     is a pure function that degrades to defaults instead of failing.
//   - Holdings: Holdings lists positions with their normalized symbol, cost
//     basis and gain.
//   - Symbols: ExtractSymbol reads the symbol descriptor whatever the shape
//     it arrives in, including the legacy "{symbol=AAPL, ...}" text form.
//   - History: Upserter maintains a HistoryLog holding at most one snapshot
//     per calendar day; repeated captures the same day replace that day's
//     rows and never touch previous days.
//
// Talking to the remote API (signing, retries, concurrent fetching) is the
// job of the api package; storage backends for the history live in the
// history package.
package brokerfeed
