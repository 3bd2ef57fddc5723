package api

import (
	"sort"
	"strings"
)

// Canonicalize returns the canonical query string of params: keys sorted
// byte-wise, keys and values percent-encoded, pairs joined by '&'.
//
// The encoding is the one of JavaScript's encodeURIComponent, which the
// remote verifier uses to rebuild the query it signs.
func Canonicalize(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(escape(k))
		b.WriteByte('=')
		b.WriteString(escape(params[k]))
	}
	return b.String()
}

const upperhex = "0123456789ABCDEF"

// escape percent-encodes every byte of s except the unreserved set
// A-Z a-z 0-9 - _ . ! ~ * ' ( ).
func escape(s string) string {
	n := 0
	for i := 0; i < len(s); i++ {
		if !unreserved(s[i]) {
			n++
		}
	}
	if n == 0 {
		return s
	}
	buf := make([]byte, 0, len(s)+2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			buf = append(buf, c)
			continue
		}
		buf = append(buf, '%', upperhex[c>>4], upperhex[c&15])
	}
	return string(buf)
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
