package brokerfeed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/etnz/brokerfeed/date"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used for any balance or position whose currency cannot be read.
//
// Note that a blank currency on a non USD instrument is silently counted as USD.
const DefaultCurrency = "USD"

// Account is a brokerage account as listed by the remote API.
// It is immutable for the duration of a refresh.
type Account struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Institution string `json:"institution"`
	SyncState   string `json:"syncState,omitempty"`
}

// Label returns a short human name for the account.
func (a Account) Label() string {
	switch {
	case a.Name != "" && a.Institution != "":
		return a.Institution + " " + a.Name
	case a.Name != "":
		return a.Name
	}
	return a.ID
}

// Payload is the decoded JSON object returned for one account.
//
// It is kept untyped on purpose: upstream field names vary between
// endpoints and versions, and reading it must never fail.
type Payload map[string]any

// DecodePayload decodes a JSON object. Numbers are kept as json.Number to
// avoid float rounding before they reach decimal arithmetic.
func DecodePayload(data []byte) (Payload, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var p map[string]any
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("cannot decode account payload: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("cannot decode account payload: not an object")
	}
	return Payload(p), nil
}

// Position is one security position of an account.
type Position struct {
	Symbol      any // raw symbol descriptor, see ExtractSymbol
	Units       decimal.Decimal
	Price       decimal.Decimal
	AverageCost decimal.Decimal
	Currency    string
}

// MarketValue returns units * price.
func (p Position) MarketValue() decimal.Decimal { return p.Units.Mul(p.Price) }

// Balance is the cash available in one currency.
type Balance struct {
	Cash     decimal.Decimal
	Currency string
}

// CurrencyRow is the aggregated value of one account in one currency.
type CurrencyRow struct {
	AccountID     string          `json:"accountId"`
	Currency      string          `json:"currency"`
	Cash          decimal.Decimal `json:"cash"`
	HoldingsValue decimal.Decimal `json:"holdingsValue"`
	Total         decimal.Decimal `json:"total"`
}

// HistorySnapshot is one row of the daily history log.
type HistorySnapshot struct {
	Date          date.Date       `json:"date"`
	AccountID     string          `json:"accountId"`
	Currency      string          `json:"currency"`
	Cash          decimal.Decimal `json:"cash"`
	HoldingsValue decimal.Decimal `json:"holdingsValue"`
	Total         decimal.Decimal `json:"total"`
	CapturedAt    time.Time       `json:"capturedAt"`
	Batch         uuid.UUID       `json:"batch"`
}

// Row returns the currency row captured by s.
func (s HistorySnapshot) Row() CurrencyRow {
	return CurrencyRow{
		AccountID:     s.AccountID,
		Currency:      s.Currency,
		Cash:          s.Cash,
		HoldingsValue: s.HoldingsValue,
		Total:         s.Total,
	}
}

// Symbol is the normalized symbol and description of an instrument.
type Symbol struct {
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
}

// Activity is one account transaction (trade, dividend, deposit...).
type Activity struct {
	ID          string          `json:"id"`
	AccountID   string          `json:"accountId"`
	Type        string          `json:"type"`
	TradeDate   date.Date       `json:"tradeDate"`
	Symbol      Symbol          `json:"symbol"`
	Units       decimal.Decimal `json:"units"`
	Price       decimal.Decimal `json:"price"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
}
