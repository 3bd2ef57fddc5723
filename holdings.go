package brokerfeed

import (
	"sort"

	"github.com/shopspring/decimal"
)

// HoldingRow is one position of an account, ready to be displayed.
type HoldingRow struct {
	AccountID   string
	Symbol      string
	Description string
	Units       decimal.Decimal
	Price       decimal.Decimal
	AverageCost decimal.Decimal
	MarketValue decimal.Decimal
	CostBasis   decimal.Decimal
	Gain        decimal.Decimal
	Currency    string
}

// Holdings lists the positions of an account payload, sorted by currency
// then symbol.
func Holdings(accountID string, p Payload) []HoldingRow {
	var rows []HoldingRow
	for _, pos := range p.Positions() {
		sym := ExtractSymbol(pos.Symbol)
		value := pos.MarketValue()
		basis := pos.Units.Mul(pos.AverageCost)
		rows = append(rows, HoldingRow{
			AccountID:   accountID,
			Symbol:      sym.Symbol,
			Description: sym.Description,
			Units:       pos.Units,
			Price:       pos.Price,
			AverageCost: pos.AverageCost,
			MarketValue: value,
			CostBasis:   basis,
			Gain:        value.Sub(basis),
			Currency:    pos.Currency,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Currency != rows[j].Currency {
			return rows[i].Currency < rows[j].Currency
		}
		return rows[i].Symbol < rows[j].Symbol
	})
	return rows
}

// HoldingsAll lists the holdings of every account with a payload.
func HoldingsAll(accounts []Account, payloads map[string]Payload) []HoldingRow {
	var rows []HoldingRow
	for _, a := range accounts {
		if p := payloads[a.ID]; p != nil {
			rows = append(rows, Holdings(a.ID, p)...)
		}
	}
	return rows
}
