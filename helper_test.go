package brokerfeed

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

// payload is a helper for test to decode a literal JSON payload.
func payload(t *testing.T, s string) Payload {
	t.Helper()
	p, err := DecodePayload([]byte(s))
	if err != nil {
		t.Fatalf("DecodePayload(%s) error = %v", s, err)
	}
	return p
}

// dec is a helper for test to create decimals from const.
func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var errNoRate = errors.New("no rate")
