package brokerfeed

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Field names under which the API returns the cash balances. The first one
// found wins.
var balancePaths = []string{"$.balances", "$.account_balances"}

// Balances returns the cash balances of the payload. An absent or malformed
// array is empty.
func (p Payload) Balances() []Balance {
	raw, _ := lookup(map[string]any(p), balancePaths...)
	var balances []Balance
	for _, obj := range objects(raw) {
		balances = append(balances, Balance{
			Cash:     lookupNumber(obj, "$.cash"),
			Currency: currencyOf(obj),
		})
	}
	return balances
}

// Positions returns the security positions of the payload.
func (p Payload) Positions() []Position {
	raw, _ := lookup(map[string]any(p), "$.positions")
	var positions []Position
	for _, obj := range objects(raw) {
		positions = append(positions, Position{
			Symbol:      obj["symbol"],
			Units:       lookupNumber(obj, "$.units", "$.quantity"),
			Price:       lookupNumber(obj, "$.price"),
			AverageCost: lookupNumber(obj, "$.average_purchase_price", "$.averageCost", "$.average_cost"),
			Currency:    currencyOf(obj),
		})
	}
	return positions
}

// accumulator collects the cash and holdings of one currency.
type accumulator struct {
	cash     decimal.Decimal
	holdings decimal.Decimal
}

// Aggregate reduces an account payload to one CurrencyRow per currency seen
// in its balances and positions.
//
// Aggregate never fails: missing fields count as zero, missing currencies as
// USD, and an account with no data at all still yields a single USD row of
// zeros. Rows are sorted by currency code.
func Aggregate(accountID string, p Payload) []CurrencyRow {
	acc := make(map[string]*accumulator)
	get := func(cur string) *accumulator {
		a, ok := acc[cur]
		if !ok {
			a = &accumulator{}
			acc[cur] = a
		}
		return a
	}

	for _, b := range p.Balances() {
		a := get(b.Currency)
		a.cash = a.cash.Add(b.Cash)
	}
	for _, pos := range p.Positions() {
		a := get(pos.Currency)
		a.holdings = a.holdings.Add(pos.MarketValue())
	}

	if len(acc) == 0 {
		return []CurrencyRow{{
			AccountID:     accountID,
			Currency:      DefaultCurrency,
			Cash:          decimal.Zero,
			HoldingsValue: decimal.Zero,
			Total:         decimal.Zero,
		}}
	}

	currencies := make([]string, 0, len(acc))
	for cur := range acc {
		currencies = append(currencies, cur)
	}
	sort.Strings(currencies)

	rows := make([]CurrencyRow, 0, len(currencies))
	for _, cur := range currencies {
		a := acc[cur]
		rows = append(rows, CurrencyRow{
			AccountID:     accountID,
			Currency:      cur,
			Cash:          a.cash,
			HoldingsValue: a.holdings,
			Total:         a.cash.Add(a.holdings),
		})
	}
	return rows
}

// AggregateAll aggregates the payload of every account, in account order.
//
// Accounts without a payload (their fetch failed) are left out: they have no
// data to report, which is different from an account reporting no data.
func AggregateAll(accounts []Account, payloads map[string]Payload) []CurrencyRow {
	var rows []CurrencyRow
	for _, a := range accounts {
		p, ok := payloads[a.ID]
		if !ok || p == nil {
			continue
		}
		rows = append(rows, Aggregate(a.ID, p)...)
	}
	return rows
}

// Failed returns the accounts whose payload is missing from payloads.
func Failed(accounts []Account, payloads map[string]Payload) []Account {
	var failed []Account
	for _, a := range accounts {
		if payloads[a.ID] == nil {
			failed = append(failed, a)
		}
	}
	return failed
}
