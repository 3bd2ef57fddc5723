package api

import (
	"context"
	"net/http"
	"net/url"
	"sync"

	"github.com/etnz/brokerfeed"
	"github.com/sirupsen/logrus"
)

// AccountPath returns the path of a per-account endpoint, e.g. "holdings" or "balances".
func AccountPath(accountID, suffix string) string {
	return "/accounts/" + url.PathEscape(accountID) + "/" + suffix
}

// FetchForAccounts fetches GET /accounts/{id}/{suffix} for every account
// concurrently and returns one entry per account.
//
// All requests share a single timestamp and are sent at once; the call
// returns when all of them are done. A failed account (transport error, non
// 2xx status, invalid JSON) is logged and mapped to a nil payload: it never
// affects the other accounts and is never reported as an error.
//
// There is no bound on the number of concurrent requests besides the
// number of accounts: see FetchInBatches for large account sets.
func (c *Client) FetchForAccounts(ctx context.Context, accounts []brokerfeed.Account, suffix string) map[string]brokerfeed.Payload {
	result := make(map[string]brokerfeed.Payload, len(accounts))
	if len(accounts) == 0 {
		return result
	}

	timestamp := c.now()
	requests := make([]*SignedRequest, len(accounts))
	for i, a := range accounts {
		result[a.ID] = nil
		req, err := c.NewRequest(http.MethodGet, AccountPath(a.ID, suffix), nil, nil, timestamp)
		if err != nil {
			c.log().WithField("account", a.ID).WithError(err).Error("cannot build request")
			continue
		}
		requests[i] = req
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for i, req := range requests {
		if req == nil {
			continue
		}
		wg.Add(1)
		go func(id string, req *SignedRequest) {
			defer wg.Done()
			p, err := c.fetchPayload(ctx, req)
			if err != nil {
				c.log().WithFields(logrus.Fields{
					"account": id,
					"suffix":  suffix,
				}).WithError(err).Warn("account fetch failed")
				return
			}
			mu.Lock()
			result[id] = p
			mu.Unlock()
		}(accounts[i].ID, req)
	}
	wg.Wait()
	return result
}

func (c *Client) fetchPayload(ctx context.Context, req *SignedRequest) (brokerfeed.Payload, error) {
	code, data, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}
	if code < 200 || code > 299 {
		return nil, statusError(req.URL, code, data)
	}
	p, err := brokerfeed.DecodePayload(data)
	if err != nil {
		return nil, &ParseError{Path: req.URL, Err: err}
	}
	return p, nil
}

// FetchInBatches is FetchForAccounts over consecutive batches of at most
// size accounts, for platforms capping the number of concurrent requests.
// Batches left when ctx is done are not sent and their accounts map to nil.
func (c *Client) FetchInBatches(ctx context.Context, accounts []brokerfeed.Account, suffix string, size int) map[string]brokerfeed.Payload {
	if size <= 0 || size >= len(accounts) {
		return c.FetchForAccounts(ctx, accounts, suffix)
	}
	result := make(map[string]brokerfeed.Payload, len(accounts))
	for start := 0; start < len(accounts); start += size {
		end := min(start+size, len(accounts))
		batch := accounts[start:end]
		if err := ctx.Err(); err != nil {
			c.log().WithError(err).Warnf("skipping %d accounts", len(accounts)-start)
			for _, a := range accounts[start:] {
				result[a.ID] = nil
			}
			break
		}
		for id, p := range c.FetchForAccounts(ctx, batch, suffix) {
			result[id] = p
		}
	}
	return result
}

// Fetcher adapts FetchInBatches to brokerfeed.FetchFunc.
func (c *Client) Fetcher(suffix string, batchSize int) brokerfeed.FetchFunc {
	return func(ctx context.Context, accounts []brokerfeed.Account) map[string]brokerfeed.Payload {
		return c.FetchInBatches(ctx, accounts, suffix, batchSize)
	}
}
