package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/etnz/brokerfeed"
	"github.com/etnz/brokerfeed/date"
)

// This file contains the endpoints used beside the per-account fetch.

// decodeList decodes a JSON array of objects, numbers kept as json.Number.
func decodeList(path string, data []byte) ([]map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var list []map[string]any
	if err := dec.Decode(&list); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return list, nil
}

// ListAccounts returns the accounts connected by the user.
func (c *Client) ListAccounts(ctx context.Context) ([]brokerfeed.Account, error) {
	const path = "/accounts"
	data, err := c.ExecuteWithRetry(ctx, http.MethodGet, path, nil, nil, c.maxAttempts())
	if err != nil {
		return nil, err
	}
	list, err := decodeList(path, data)
	if err != nil {
		return nil, err
	}
	accounts := make([]brokerfeed.Account, 0, len(list))
	for _, obj := range list {
		a, err := brokerfeed.AccountFromJSON(obj)
		if err != nil {
			c.log().WithError(err).Warn("skipping account")
			continue
		}
		accounts = append(accounts, a)
	}
	return accounts, nil
}

// Activities returns the transactions between from and to, both included,
// for the given accounts (all accounts when empty).
func (c *Client) Activities(ctx context.Context, from, to date.Date, accountIDs []string) ([]brokerfeed.Activity, error) {
	const path = "/activities"
	params := make(map[string]string)
	if !from.IsZero() {
		params["startDate"] = from.String()
	}
	if !to.IsZero() {
		params["endDate"] = to.String()
	}
	if len(accountIDs) > 0 {
		params["accounts"] = strings.Join(accountIDs, ",")
	}
	data, err := c.ExecuteWithRetry(ctx, http.MethodGet, path, params, nil, c.maxAttempts())
	if err != nil {
		return nil, err
	}
	list, err := decodeList(path, data)
	if err != nil {
		return nil, err
	}
	activities := make([]brokerfeed.Activity, 0, len(list))
	for _, obj := range list {
		activities = append(activities, brokerfeed.ActivityFromJSON(obj))
	}
	return activities, nil
}

// loginRequest is the body of the connection portal request.
type loginRequest struct {
	Broker string `json:"broker,omitempty"`
}

// LoginURL returns the URL of the connection portal where the user links a
// brokerage account. broker preselects a brokerage when not empty.
// The URL is meant to be opened by the user, this package never follows it.
func (c *Client) LoginURL(ctx context.Context, broker string) (string, error) {
	const path = "/snapTrade/login"
	data, err := c.ExecuteWithRetry(ctx, http.MethodPost, path, nil, loginRequest{Broker: broker}, c.maxAttempts())
	if err != nil {
		return "", err
	}
	var resp struct {
		RedirectURI string `json:"redirectURI"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", &ParseError{Path: path, Err: err}
	}
	if resp.RedirectURI == "" {
		return "", fmt.Errorf("%s: response has no redirectURI", path)
	}
	return resp.RedirectURI, nil
}
