package config

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// StaticRates are fixed exchange rates: Values holds the value of one unit
// of a currency in Base.
type StaticRates struct {
	Base   string
	Values map[string]decimal.Decimal
}

func (r StaticRates) value(cur string) (decimal.Decimal, bool) {
	if cur == r.Base {
		return decimal.NewFromInt(1), true
	}
	v, ok := r.Values[cur]
	return v, ok
}

// Rate returns how many units of 'to' one unit of 'from' is worth.
func (r StaticRates) Rate(from, to string) (decimal.Decimal, error) {
	f, ok := r.value(from)
	if !ok {
		return decimal.Zero, fmt.Errorf("no rate for %s", from)
	}
	t, ok := r.value(to)
	if !ok {
		return decimal.Zero, fmt.Errorf("no rate for %s", to)
	}
	return f.Div(t), nil
}
