package brokerfeed

import (
	"encoding/json"
	"strings"
)

// NoSymbol is the symbol reported when none can be extracted.
const NoSymbol = "N/A"

func defaultSymbol() Symbol { return Symbol{Symbol: NoSymbol} }

// symbolForm is the shape a symbol descriptor arrives in.
type symbolForm int

const (
	noForm     symbolForm = iota // nil or unsupported
	listForm                     // []any, the first element is the descriptor
	textForm                     // string: JSON, legacy "{k=v}" text or a bare ticker
	objectForm                   // decoded JSON object
)

func classifySymbol(v any) symbolForm {
	switch v.(type) {
	case []any:
		return listForm
	case string:
		return textForm
	case map[string]any, Payload:
		return objectForm
	}
	return noForm
}

// ExtractSymbol normalizes a symbol descriptor into a Symbol.
//
// The descriptor may be a JSON object, a nested object whose "symbol" key is
// itself an object, a list of descriptors, a JSON string or the legacy
// "{symbol=AAPL, description=Apple Inc.}" text form. ExtractSymbol never
// fails: unreadable descriptors yield {"N/A", ""}.
func ExtractSymbol(v any) Symbol {
	switch classifySymbol(v) {
	case listForm:
		list := v.([]any)
		if len(list) == 0 {
			return defaultSymbol()
		}
		return ExtractSymbol(list[0])
	case textForm:
		return symbolFromText(v.(string))
	case objectForm:
		if p, ok := v.(Payload); ok {
			return symbolFromObject(map[string]any(p))
		}
		return symbolFromObject(v.(map[string]any))
	}
	return defaultSymbol()
}

func symbolFromText(s string) Symbol {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultSymbol()
	}
	var parsed any
	if err := json.Unmarshal([]byte(s), &parsed); err == nil {
		switch parsed := parsed.(type) {
		case nil:
			return defaultSymbol()
		case map[string]any, []any:
			return ExtractSymbol(parsed)
		case string:
			return symbolFromText(parsed)
		}
		// numbers and booleans are read as a bare ticker below
	}
	if obj, ok := parseLegacy(s); ok {
		return symbolFromObject(obj)
	}
	if strings.ContainsAny(s, "{}[]=") {
		// looks structured but is not readable
		return defaultSymbol()
	}
	return Symbol{Symbol: s}
}

func symbolFromObject(obj map[string]any) Symbol {
	switch sym := obj["symbol"].(type) {
	case map[string]any:
		// nested: {"symbol": {"symbol": "AAPL", "description": "..."}}
		return symbolOrDefault(text(sym["symbol"]), text(sym["description"]))
	case string:
		return symbolOrDefault(strings.TrimSpace(sym), text(obj["description"]))
	}
	return defaultSymbol()
}

func symbolOrDefault(symbol, description string) Symbol {
	if symbol == "" {
		symbol = NoSymbol
	}
	return Symbol{Symbol: symbol, Description: description}
}
