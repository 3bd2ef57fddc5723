package brokerfeed

import "strings"

// The legacy serializer wrote records as "{k1=v1, k2={k3=v3}, k4=[a, b]}".
// It did not quote anything and, for list valued fields, sometimes forgot
// the closing bracket: "{exchanges=[XNAS, XNYS, symbol=AAPL}".

// parseLegacy parses the legacy record text. Nested records become nested
// maps, every other value is kept as its trimmed text.
func parseLegacy(s string) (map[string]any, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '{' || s[len(s)-1] != '}' {
		return nil, false
	}
	obj := make(map[string]any)
	for _, pair := range splitLegacyPairs(s[1 : len(s)-1]) {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		value = strings.TrimSpace(value)
		if nested, ok := parseLegacy(value); ok {
			obj[key] = nested
		} else {
			obj[key] = value
		}
	}
	if len(obj) == 0 {
		return nil, false
	}
	return obj, true
}

// splitLegacyPairs splits the body of a record on its top level commas.
//
// Commas inside braces never split. Commas inside brackets do not split
// either, unless what follows is ", key=": the bracket was never closed and
// a new pair starts there.
func splitLegacyPairs(body string) []string {
	var (
		pairs    []string
		braces   int
		brackets int
		start    int
	)
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '{':
			braces++
		case '}':
			if braces > 0 {
				braces--
			}
		case '[':
			brackets++
		case ']':
			if brackets > 0 {
				brackets--
			}
		case ',':
			if braces > 0 {
				continue
			}
			if brackets > 0 {
				if !startsLegacyPair(body[i+1:]) {
					continue
				}
				brackets = 0 // implicitly closed
			}
			pairs = append(pairs, body[start:i])
			start = i + 1
		}
	}
	return append(pairs, body[start:])
}

// startsLegacyPair reports whether s looks like " key=...".
func startsLegacyPair(s string) bool {
	if !strings.HasPrefix(s, " ") {
		return false
	}
	s = strings.TrimLeft(s, " ")
	n := 0
	for n < len(s) && isKeyByte(s[n]) {
		n++
	}
	return n > 0 && n < len(s) && s[n] == '='
}

func isKeyByte(c byte) bool {
	return c == '_' || c == '-' || c == '.' ||
		('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}
