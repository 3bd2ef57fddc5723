package brokerfeed

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/brokerfeed/date"
	"github.com/shopspring/decimal"
)

// This file contains lenient readers for the untyped JSON the API returns.
// None of them fail: anything unreadable becomes the zero value.

// lookup returns the first value found at one of the jsonpath expressions.
func lookup(obj map[string]any, paths ...string) (any, bool) {
	if obj == nil {
		return nil, false
	}
	for _, path := range paths {
		v, err := jsonpath.Get(path, obj)
		if err != nil || v == nil {
			continue
		}
		return v, true
	}
	return nil, false
}

// lookupString returns the first non blank string found at paths.
func lookupString(obj map[string]any, paths ...string) string {
	for _, path := range paths {
		if v, ok := lookup(obj, path); ok {
			if s := text(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// lookupNumber returns the first number found at paths, or zero.
func lookupNumber(obj map[string]any, paths ...string) decimal.Decimal {
	for _, path := range paths {
		if v, ok := lookup(obj, path); ok {
			if d, ok := number(v); ok {
				return d
			}
		}
	}
	return decimal.Zero
}

// number converts a JSON scalar to a decimal.
func number(v any) (decimal.Decimal, bool) {
	switch v := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		return d, err == nil
	case decimal.Decimal:
		return v, true
	}
	return decimal.Zero, false
}

// text converts a JSON scalar to a trimmed string.
func text(v any) string {
	switch v := v.(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	}
	return ""
}

// objects returns the JSON objects held in an array, skipping anything else.
func objects(v any) []map[string]any {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// currencyPaths are the places a currency code is found, in order.
var currencyPaths = []string{"$.currency.code", "$.currency", "$.currencyCode", "$.currency_code"}

// currencyOf resolves the currency code of a balance, position or activity.
// The API sends either a plain code or a currency object; anything that is
// not a non blank string is ignored.
func currencyOf(obj map[string]any) string {
	for _, path := range currencyPaths {
		v, ok := lookup(obj, path)
		if !ok {
			continue
		}
		if code, ok := v.(string); ok && strings.TrimSpace(code) != "" {
			return strings.ToUpper(strings.TrimSpace(code))
		}
	}
	return DefaultCurrency
}

// dayOf reads a date or timestamp string as a local calendar day.
func dayOf(v any) date.Date {
	s := text(v)
	if s == "" {
		return date.Date{}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return date.Of(t)
	}
	if len(s) >= 10 {
		if d, err := date.Parse(s[:10]); err == nil {
			return d
		}
	}
	return date.Date{}
}
