package brokerfeed

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RateLookup provides exchange rates. Implementations live outside this module.
type RateLookup interface {
	// Rate returns how many units of 'to' one unit of 'from' is worth.
	Rate(from, to string) (decimal.Decimal, error)
}

// Converted is the sum of currency rows expressed in a single currency.
type Converted struct {
	Currency      string
	Cash          decimal.Decimal
	HoldingsValue decimal.Decimal
	Total         decimal.Decimal
	// Skipped lists the rows that could not be converted.
	Skipped []CurrencyRow
}

// ConvertRows sums rows in the given currency using rates.
// Rows whose rate is unavailable are reported in Skipped rather than failing
// the whole conversion.
func ConvertRows(rows []CurrencyRow, currency string, rates RateLookup) Converted {
	c := Converted{Currency: currency}
	cache := make(map[string]decimal.Decimal)
	for _, row := range rows {
		rate, ok := cache[row.Currency]
		if !ok {
			var err error
			rate, err = rateOf(row.Currency, currency, rates)
			if err != nil {
				c.Skipped = append(c.Skipped, row)
				continue
			}
			cache[row.Currency] = rate
		}
		c.Cash = c.Cash.Add(row.Cash.Mul(rate))
		c.HoldingsValue = c.HoldingsValue.Add(row.HoldingsValue.Mul(rate))
	}
	c.Total = c.Cash.Add(c.HoldingsValue)
	return c
}

func rateOf(from, to string, rates RateLookup) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	if rates == nil {
		return decimal.Zero, fmt.Errorf("no rate source to convert %s to %s", from, to)
	}
	rate, err := rates.Rate(from, to)
	if err != nil {
		return decimal.Zero, fmt.Errorf("cannot convert %s to %s: %w", from, to, err)
	}
	return rate, nil
}
