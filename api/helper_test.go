package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/etnz/brokerfeed/logger"
)

var testCredentials = StaticCredentials{
	ClientID:       "CLIENT",
	ConsumerSecret: "consumer-secret",
	UserID:         "user-1",
	UserSecret:     "user-secret",
}

// sleeper records the delays a Client waits instead of waiting.
type sleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return nil
}

// newTestClient starts a server running handler and returns a client for it.
// The handler is only called for requests whose signature is valid; others
// get a 401.
func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *sleeper) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !validSignature(r) {
			http.Error(w, `{"detail":"invalid signature"}`, http.StatusUnauthorized)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	s := new(sleeper)
	c := NewClient(testCredentials)
	c.BaseURL = srv.URL + "/api/v1"
	c.HTTP = srv.Client()
	c.BaseDelay = 100 * time.Millisecond
	c.Sleep = s.Sleep
	c.Log = logger.Discard()
	return c, s
}

// validSignature verifies a request the way the remote API does.
func validSignature(r *http.Request) bool {
	content := []byte("null")
	if r.Body != nil {
		body, _ := io.ReadAll(r.Body)
		if len(body) > 0 {
			content = body
		}
	}
	want, err := signContent(testCredentials.ConsumerSecret, content, r.URL.Path, r.URL.RawQuery)
	return err == nil && want == r.Header.Get("Signature")
}
