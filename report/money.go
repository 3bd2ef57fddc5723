package report

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Money formats an amount in its currency, e.g. "$1,234.50" or "1.234,50 €".
// Amounts in a currency unknown to go-money are printed with two decimals
// followed by the code.
func Money(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return amount.StringFixed(2) + " " + currency
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}

// SignedMoney is Money with an explicit sign, and "-" for zero.
func SignedMoney(amount decimal.Decimal, currency string) string {
	switch {
	case amount.IsZero():
		return "-"
	case amount.IsPositive():
		return "+" + Money(amount, currency)
	}
	return Money(amount, currency)
}
