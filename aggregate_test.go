package brokerfeed

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestAggregate(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    []CurrencyRow
	}{
		{
			name:    "empty payload yields a USD zero row",
			payload: `{}`,
			want:    []CurrencyRow{{AccountID: "a", Currency: "USD", Cash: dec("0"), HoldingsValue: dec("0"), Total: dec("0")}},
		},
		{
			name:    "empty arrays yields a USD zero row",
			payload: `{"positions": [], "balances": []}`,
			want:    []CurrencyRow{{AccountID: "a", Currency: "USD", Cash: dec("0"), HoldingsValue: dec("0"), Total: dec("0")}},
		},
		{
			name: "positions and balances in two currencies",
			payload: `{
				"positions": [
					{"symbol": "AAPL", "units": 10, "price": 150.5, "currency": {"code": "USD"}},
					{"symbol": "MSFT", "units": 2, "price": 300, "currency": "USD"}
				],
				"balances": [{"cash": 100.25, "currency": {"code": "CAD"}}]
			}`,
			want: []CurrencyRow{
				{AccountID: "a", Currency: "CAD", Cash: dec("100.25"), HoldingsValue: dec("0"), Total: dec("100.25")},
				{AccountID: "a", Currency: "USD", Cash: dec("0"), HoldingsValue: dec("2105"), Total: dec("2105")},
			},
		},
		{
			name:    "alias field for balances",
			payload: `{"account_balances": [{"cash": 5, "currency": "EUR"}]}`,
			want:    []CurrencyRow{{AccountID: "a", Currency: "EUR", Cash: dec("5"), HoldingsValue: dec("0"), Total: dec("5")}},
		},
		{
			name:    "primary field wins over the alias",
			payload: `{"balances": [{"cash": 1}], "account_balances": [{"cash": 1000}]}`,
			want:    []CurrencyRow{{AccountID: "a", Currency: "USD", Cash: dec("1"), HoldingsValue: dec("0"), Total: dec("1")}},
		},
		{
			name:    "missing currency and amounts default",
			payload: `{"balances": [{"currency": null}], "positions": [{"units": 3}, {"price": 7, "currency": 12}]}`,
			want:    []CurrencyRow{{AccountID: "a", Currency: "USD", Cash: dec("0"), HoldingsValue: dec("0"), Total: dec("0")}},
		},
		{
			name:    "malformed arrays are ignored",
			payload: `{"balances": "oops", "positions": [1, "two", {"units": "2", "price": "3.5", "currency": "usd"}]}`,
			want:    []CurrencyRow{{AccountID: "a", Currency: "USD", Cash: dec("0"), HoldingsValue: dec("7"), Total: dec("7")}},
		},
		{
			name:    "cash accumulates per currency",
			payload: `{"balances": [{"cash": 1.1, "currency": "USD"}, {"cash": 2.2, "currency": "USD"}]}`,
			want:    []CurrencyRow{{AccountID: "a", Currency: "USD", Cash: dec("3.3"), HoldingsValue: dec("0"), Total: dec("3.3")}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate("a", payload(t, tt.payload))
			if len(got) != len(tt.want) {
				t.Fatalf("Aggregate() = %v rows, want %v: %v", len(got), len(tt.want), got)
			}
			for i := range got {
				g, w := got[i], tt.want[i]
				if g.AccountID != w.AccountID || g.Currency != w.Currency ||
					!g.Cash.Equal(w.Cash) || !g.HoldingsValue.Equal(w.HoldingsValue) || !g.Total.Equal(w.Total) {
					t.Errorf("Aggregate()[%d] = %+v, want %+v", i, g, w)
				}
			}
		})
	}
}

func TestAggregate_NilPayload(t *testing.T) {
	rows := Aggregate("x", nil)
	if len(rows) != 1 || rows[0].Currency != "USD" || !rows[0].Total.IsZero() {
		t.Errorf("Aggregate(nil) = %v, want a single USD zero row", rows)
	}
}

func TestAggregate_Totals(t *testing.T) {
	p := payload(t, `{
		"positions": [
			{"units": 1.5, "price": 10.01, "currency": "USD"},
			{"units": 3, "price": 0.333, "currency": "USD"},
			{"units": 100, "price": 12.34, "currency": "CAD"}
		],
		"balances": [{"cash": -50, "currency": "USD"}, {"cash": 0.01, "currency": "CAD"}]
	}`)
	rows := Aggregate("a", p)

	wantHoldings := make(map[string]decimal.Decimal)
	for _, pos := range p.Positions() {
		wantHoldings[pos.Currency] = wantHoldings[pos.Currency].Add(pos.Units.Mul(pos.Price))
	}
	for _, row := range rows {
		if !row.Total.Equal(row.Cash.Add(row.HoldingsValue)) {
			t.Errorf("row %s: total %v != cash %v + holdings %v", row.Currency, row.Total, row.Cash, row.HoldingsValue)
		}
		if !row.HoldingsValue.Equal(wantHoldings[row.Currency]) {
			t.Errorf("row %s: holdings %v, want %v", row.Currency, row.HoldingsValue, wantHoldings[row.Currency])
		}
	}
}

func TestAggregateAll_SkipsFailedAccounts(t *testing.T) {
	accounts := []Account{{ID: "1"}, {ID: "2"}, {ID: "3"}}
	payloads := map[string]Payload{
		"1": payload(t, `{"balances": [{"cash": 1, "currency": "CAD"}], "positions": [{"units": 1, "price": 1}]}`),
		"2": nil,
		"3": payload(t, `{}`),
	}
	rows := AggregateAll(accounts, payloads)
	if len(rows) != 3 {
		t.Fatalf("AggregateAll() = %d rows, want 3: %v", len(rows), rows)
	}
	for _, row := range rows {
		if row.AccountID == "2" {
			t.Errorf("AggregateAll() reported failed account 2: %v", row)
		}
	}
	if failed := Failed(accounts, payloads); len(failed) != 1 || failed[0].ID != "2" {
		t.Errorf("Failed() = %v, want account 2", failed)
	}
}

func TestHoldings(t *testing.T) {
	p := payload(t, `{"positions": [
		{"symbol": {"symbol": {"symbol": "VFV", "description": "Vanguard S&P 500"}}, "units": 10, "price": 120, "average_purchase_price": 100, "currency": {"code": "CAD"}},
		{"symbol": "{symbol=AAPL, description=Apple Inc.}", "units": 2, "price": 150, "averageCost": 160}
	]}`)
	rows := Holdings("a", p)
	if len(rows) != 2 {
		t.Fatalf("Holdings() = %d rows, want 2", len(rows))
	}
	vfv, aapl := rows[0], rows[1]
	if vfv.Symbol != "VFV" || vfv.Description != "Vanguard S&P 500" || vfv.Currency != "CAD" {
		t.Errorf("Holdings()[0] = %+v", vfv)
	}
	if !vfv.Gain.Equal(dec("200")) {
		t.Errorf("VFV gain = %v, want 200", vfv.Gain)
	}
	if aapl.Symbol != "AAPL" || aapl.Description != "Apple Inc." {
		t.Errorf("Holdings()[1] = %+v", aapl)
	}
	if !aapl.Gain.Equal(dec("-20")) {
		t.Errorf("AAPL gain = %v, want -20", aapl.Gain)
	}
}

type fixedRates map[string]decimal.Decimal

func (r fixedRates) Rate(from, to string) (decimal.Decimal, error) {
	rate, ok := r[from+to]
	if !ok {
		return decimal.Zero, errNoRate
	}
	return rate, nil
}

func TestConvertRows(t *testing.T) {
	rows := []CurrencyRow{
		{Currency: "USD", Cash: dec("10"), HoldingsValue: dec("90"), Total: dec("100")},
		{Currency: "CAD", Cash: dec("100"), HoldingsValue: dec("0"), Total: dec("100")},
		{Currency: "JPY", Cash: dec("1000"), HoldingsValue: dec("0"), Total: dec("1000")},
	}
	c := ConvertRows(rows, "USD", fixedRates{"CADUSD": dec("0.75")})
	if !c.Total.Equal(dec("175")) {
		t.Errorf("ConvertRows().Total = %v, want 175", c.Total)
	}
	if len(c.Skipped) != 1 || c.Skipped[0].Currency != "JPY" {
		t.Errorf("ConvertRows().Skipped = %v, want the JPY row", c.Skipped)
	}
}
