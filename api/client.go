// Package api is a client for the signed REST brokerage aggregation API.
//
// Every request carries the credential parameters in its query string and a
// Signature header computed by Sign over the canonical query (Canonicalize),
// the path and the JSON body. The Client executes single requests with
// classified errors and retries, and fetches per-account data for many
// accounts concurrently (FetchForAccounts).
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/etnz/brokerfeed/logger"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the production endpoint of the API.
const DefaultBaseURL = "https://api.snaptrade.com/api/v1"

const (
	defaultBaseDelay   = time.Second
	defaultMaxDelay    = time.Minute
	defaultMaxAttempts = 3
)

// Client talks to the API. Only Credentials is required; the zero value of
// every other field selects a default.
type Client struct {
	BaseURL     string
	Credentials CredentialProvider
	HTTP        *http.Client
	// Limiter, when set, paces outgoing requests. It never serializes a
	// batch by itself, its burst decides how many requests leave at once.
	Limiter *rate.Limiter
	// BaseDelay is the first retry delay, doubled at each further attempt.
	BaseDelay time.Duration
	// MaxDelay caps a single retry delay.
	MaxDelay time.Duration
	// MaxAttempts is used by the endpoint helpers (ListAccounts, ...).
	MaxAttempts int
	// Sleep waits between retries. Tests replace it to avoid real waits.
	Sleep func(ctx context.Context, d time.Duration) error
	// Now is the clock used for request timestamps.
	Now func() time.Time
	Log logrus.FieldLogger
}

// NewClient returns a Client for the production API.
func NewClient(creds CredentialProvider) *Client {
	return &Client{
		BaseURL:     DefaultBaseURL,
		Credentials: creds,
		HTTP:        &http.Client{Timeout: 30 * time.Second},
	}
}

// SignedRequest is a fully built request, ready to be sent.
type SignedRequest struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte // nil when the request has no body
}

// NewRequest builds and signs a request. The credential parameters and the
// timestamp are added to params.
func (c *Client) NewRequest(method, path string, params map[string]string, body any, timestamp time.Time) (*SignedRequest, error) {
	base, err := url.Parse(c.baseURL())
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", c.baseURL(), err)
	}
	creds := c.Credentials.Context()

	query := make(map[string]string, len(params)+4)
	for k, v := range params {
		query[k] = v
	}
	query["clientId"] = creds.ClientID
	query["timestamp"] = strconv.FormatInt(timestamp.Unix(), 10)
	query["userId"] = creds.UserID
	query["userSecret"] = creds.UserSecret
	canonical := Canonicalize(query)

	fullPath := strings.TrimSuffix(base.Path, "/") + path
	content, err := canonicalJSON(body)
	if err != nil {
		return nil, err
	}
	signature, err := signContent(creds.ConsumerSecret, content, fullPath, canonical)
	if err != nil {
		return nil, err
	}

	req := &SignedRequest{
		Method: method,
		URL:    base.Scheme + "://" + base.Host + fullPath + "?" + canonical,
		Header: make(http.Header),
	}
	req.Header.Set("Signature", signature)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Body = content
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// send performs the request and returns the status and the body, whatever
// the status.
func (c *Client) send(ctx context.Context, req *SignedRequest) (int, []byte, error) {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return 0, nil, err
		}
	}
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	hreq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return 0, nil, err
	}
	hreq.Header = req.Header.Clone()

	resp, err := c.httpClient().Do(hreq)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	c.log().WithFields(logrus.Fields{
		"method": req.Method,
		"path":   hreq.URL.Path,
		"status": resp.StatusCode,
	}).Debug("api call")
	return resp.StatusCode, data, nil
}

// Execute performs a single signed call and returns the JSON body of a 2xx
// answer. Other answers are reported as *RateLimitedError, *ServerError or
// *APIError; a 2xx body that is not JSON as *ParseError.
func (c *Client) Execute(ctx context.Context, method, path string, params map[string]string, body any) (json.RawMessage, error) {
	req, err := c.NewRequest(method, path, params, body, c.now())
	if err != nil {
		return nil, err
	}
	code, data, err := c.send(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if code < 200 || code > 299 {
		return nil, statusError(path, code, data)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(data) {
		return nil, &ParseError{Path: path, Err: fmt.Errorf("%.64q", data)}
	}
	return json.RawMessage(data), nil
}

// ExecuteWithRetry is Execute retried on rate limiting and server errors.
//
// Delays start at BaseDelay and double after each attempt. After maxAttempts
// calls the last error is returned. Other errors are returned at once.
// Cancelling ctx stops waiting.
func (c *Client) ExecuteWithRetry(ctx context.Context, method, path string, params map[string]string, body any, maxAttempts int) (json.RawMessage, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	delays := c.backoff()
	for attempt := 1; ; attempt++ {
		data, err := c.Execute(ctx, method, path, params, body)
		if err == nil {
			return data, nil
		}
		if !Retryable(err) || attempt >= maxAttempts {
			return nil, err
		}
		delay := delays.NextBackOff()
		c.log().WithFields(logrus.Fields{
			"path":    path,
			"attempt": attempt,
			"delay":   delay.String(),
		}).WithError(err).Warn("retrying api call")
		if serr := c.sleep(ctx, delay); serr != nil {
			return nil, fmt.Errorf("%w (retry aborted: %v)", err, serr)
		}
	}
}

func (c *Client) backoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.BaseDelay
	if b.InitialInterval <= 0 {
		b.InitialInterval = defaultBaseDelay
	}
	b.MaxInterval = c.MaxDelay
	if b.MaxInterval <= 0 {
		b.MaxInterval = defaultMaxDelay
	}
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.Reset()
	return b
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	if c.Sleep != nil {
		return c.Sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (c *Client) baseURL() string {
	if c.BaseURL == "" {
		return DefaultBaseURL
	}
	return c.BaseURL
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP == nil {
		return http.DefaultClient
	}
	return c.HTTP
}

func (c *Client) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Client) maxAttempts() int {
	if c.MaxAttempts <= 0 {
		return defaultMaxAttempts
	}
	return c.MaxAttempts
}

func (c *Client) log() logrus.FieldLogger {
	if c.Log != nil {
		return c.Log
	}
	return logger.Default()
}
