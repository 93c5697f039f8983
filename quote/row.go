// Package quote holds the result rows returned by the screener and the
// shapes they are presented in: a bare list of symbols or a fixed-column
// table.
package quote

import (
	"encoding/json"
)

// Row is one screener result: a flat mapping of upstream column name to
// scalar value. Rows are treated as read-only once returned by the upstream.
type Row map[string]any

// Symbol returns the ticker symbol or an empty string
func (r Row) Symbol() string {
	s, _ := r["symbol"].(string)
	return s
}

// Lookup returns the first present, non-nil value among keys
func (r Row) Lookup(keys ...string) (any, bool) {
	for _, key := range keys {
		if v, ok := r[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// Number returns the value under key as a float64 when it is numeric
func (r Row) Number(keys ...string) (float64, bool) {
	v, ok := r.Lookup(keys...)
	if !ok {
		return 0, false
	}
	return toFloat(v)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case map[string]any:
		// the upstream sometimes wraps values as {"raw": 1.2, "fmt": "1.20"}
		if raw, ok := n["raw"]; ok {
			return toFloat(raw)
		}
	}
	return 0, false
}

// Symbols extracts ticker symbols in row order, skipping rows without one
func Symbols(rows []Row) []string {
	symbols := make([]string, 0, len(rows))
	for _, row := range rows {
		if s := row.Symbol(); s != "" {
			symbols = append(symbols, s)
		}
	}
	return symbols
}
