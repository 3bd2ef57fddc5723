package api

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// Sign returns the signature of a request.
//
// The signed message is the compact JSON object
//
//	{"content":<body>,"path":"<path>","query":"<query>"}
//
// with keys in that order, hashed with HMAC-SHA256 keyed by secret and
// encoded in standard base64. A nil body is signed as null, which is not the
// same signature as an empty object body.
func Sign(secret string, body any, path, query string) (string, error) {
	content, err := canonicalJSON(body)
	if err != nil {
		return "", err
	}
	return signContent(secret, content, path, query)
}

// signContent signs an already canonical body.
func signContent(secret string, content json.RawMessage, path, query string) (string, error) {
	var w signingPayload
	w.Append("content", content).Append("path", path).Append("query", query)
	message, err := w.MarshalJSON()
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// canonicalJSON returns the canonical encoding of a request body: compact,
// object keys sorted at every level, no HTML escaping. nil is "null".
func canonicalJSON(body any) (json.RawMessage, error) {
	if body == nil {
		return json.RawMessage("null"), nil
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("cannot encode request body: %w", err)
	}
	// decoding into generic values sorts the keys of struct bodies too
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("cannot encode request body: %w", err)
	}
	return marshal(generic)
}

// marshal encodes v compactly without escaping <, > and &, the way the
// verifier's JSON.stringify does. encoding/json always escapes U+2028 and
// U+2029, so they are written back as raw characters.
func marshal(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return unescapeLineSeparators(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

// unescapeLineSeparators replaces the \u2028 and \u2029 escapes of encoded JSON
// by the characters themselves. Escaped backslashes are skipped as pairs so
// a literal "\\u2028" text is left alone.
func unescapeLineSeparators(b []byte) []byte {
	if !bytes.Contains(b, []byte(`\u202`)) {
		return b
	}
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] != '\\' || i+1 >= len(b) {
			out = append(out, b[i])
			continue
		}
		if rest := b[i:]; bytes.HasPrefix(rest, []byte(`\u2028`)) || bytes.HasPrefix(rest, []byte(`\u2029`)) {
			r := '\u2028'
			if rest[5] == '9' {
				r = '\u2029'
			}
			out = utf8.AppendRune(out, r)
			i += 5
			continue
		}
		out = append(out, b[i], b[i+1])
		i++
	}
	return out
}

// signingPayload builds a JSON object with a fixed key order.
// Its zero value is ready to use.
type signingPayload struct {
	bytes.Buffer
	err error
}

// Append adds a key-value pair to the object. RawMessage values are written
// as is, anything else is marshaled.
func (w *signingPayload) Append(key string, value any) *signingPayload {
	if w.err != nil {
		return w
	}
	val, ok := value.(json.RawMessage)
	if !ok {
		var err error
		val, err = marshal(value)
		if err != nil {
			w.err = fmt.Errorf("failed to marshal value for key %q: %w", key, err)
			return w
		}
	}
	k, _ := marshal(key)
	w.Write(k)
	w.WriteByte(':')
	w.Write(val)
	w.WriteByte(',')
	return w
}

// MarshalJSON wraps the appended pairs in braces.
func (w *signingPayload) MarshalJSON() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	content := bytes.TrimSuffix(w.Bytes(), []byte(","))
	final := make([]byte, 0, len(content)+2)
	final = append(final, '{')
	final = append(final, content...)
	final = append(final, '}')
	return final, nil
}
