package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// expectedSignature computes the signature of a literal message.
func expectedSignature(secret, message string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestSign_CanonicalMessage(t *testing.T) {
	tests := []struct {
		name    string
		body    any
		path    string
		query   string
		message string
	}{
		{
			name:    "null body",
			body:    nil,
			path:    "/api/v1/accounts",
			query:   "clientId=C&timestamp=1700000000",
			message: `{"content":null,"path":"/api/v1/accounts","query":"clientId=C&timestamp=1700000000"}`,
		},
		{
			name:    "empty object body",
			body:    map[string]any{},
			path:    "/api/v1/snapTrade/login",
			query:   "a=1",
			message: `{"content":{},"path":"/api/v1/snapTrade/login","query":"a=1"}`,
		},
		{
			name: "struct body keys are sorted",
			body: struct {
				Zeta  string `json:"zeta"`
				Alpha int    `json:"alpha"`
			}{"<z>", 1},
			path:    "/p",
			query:   "",
			message: `{"content":{"alpha":1,"zeta":"<z>"},"path":"/p","query":""}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Sign("secret", tt.body, tt.path, tt.query)
			require.NoError(t, err)
			assert.Equal(t, expectedSignature("secret", tt.message), got)
		})
	}
}

func TestSign_Deterministic(t *testing.T) {
	body := map[string]any{"broker": "QUESTRADE", "immediateRedirect": true}
	first, err := Sign("s3cr3t", body, "/api/v1/snapTrade/login", "a=1&b=2")
	require.NoError(t, err)
	second, err := Sign("s3cr3t", body, "/api/v1/snapTrade/login", "a=1&b=2")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSign_EveryArgumentMatters(t *testing.T) {
	base, err := Sign("secret", nil, "/accounts/1/holdings", "a=1")
	require.NoError(t, err)

	variants := map[string][]any{
		"secret": {"secreT", nil, "/accounts/1/holdings", "a=1"},
		"body":   {"secret", map[string]any{}, "/accounts/1/holdings", "a=1"},
		"path":   {"secret", nil, "/accounts/2/holdings", "a=1"},
		"query":  {"secret", nil, "/accounts/1/holdings", "a=2"},
	}
	for name, args := range variants {
		t.Run(name, func(t *testing.T) {
			got, err := Sign(args[0].(string), args[1], args[2].(string), args[3].(string))
			require.NoError(t, err)
			assert.NotEqual(t, base, got)
		})
	}
}

func TestSign_NullAndEmptyBodyDiffer(t *testing.T) {
	null, err := Sign("k", nil, "/p", "")
	require.NoError(t, err)
	empty, err := Sign("k", map[string]string{}, "/p", "")
	require.NoError(t, err)
	assert.NotEqual(t, null, empty)
}

func TestSign_UnencodableBody(t *testing.T) {
	_, err := Sign("k", map[string]any{"c": make(chan int)}, "/p", "")
	assert.Error(t, err)
}

func TestSign_LineSeparatorsAreRaw(t *testing.T) {
	body := map[string]any{"note": "a\u2028b\u2029c", "path": `C:\u2028`}
	got, err := Sign("secret", body, "/p", "")
	require.NoError(t, err)
	// the backslash of the second value is escaped, its text is not a separator
	message := `{"content":{"note":"a` + "\u2028" + `b` + "\u2029" + `c","path":"C:\\u2028"},"path":"/p","query":""}`
	assert.Equal(t, expectedSignature("secret", message), got)
}
