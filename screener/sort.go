package screener

import (
	"cmp"
	"slices"
	"strings"

	"github.com/s0up4200/yfscreener/filter"
	"github.com/s0up4200/yfscreener/quote"
)

// sortKeys maps a query sort field onto the row keys holding its value
var sortKeys = map[string][]string{
	filter.SortTicker:    {"symbol"},
	filter.SortPrice:     {"regularMarketPrice"},
	filter.SortMarketCap: {"marketCap"},
	filter.SortVolume:    {"regularMarketVolume", "volume"},
	filter.SortPERatio:   {"trailingPE"},
}

// SortRows returns a stably sorted copy of rows. Rows lacking the sort value
// are placed last whatever the order; ties keep their original order.
func SortRows(rows []quote.Row, field string, order filter.SortOrder) []quote.Row {
	sorted := slices.Clone(rows)
	keys, ok := sortKeys[field]
	if !ok {
		return sorted
	}

	textual := field == filter.SortTicker
	desc := order == filter.Descending

	slices.SortStableFunc(sorted, func(a, b quote.Row) int {
		var (
			c        int
			okA, okB bool
		)
		if textual {
			var sa, sb string
			sa, okA = text(a, keys)
			sb, okB = text(b, keys)
			if okA && okB {
				c = strings.Compare(sa, sb)
			}
		} else {
			var na, nb float64
			na, okA = a.Number(keys...)
			nb, okB = b.Number(keys...)
			if okA && okB {
				c = cmp.Compare(na, nb)
			}
		}

		switch {
		case !okA && !okB:
			return 0
		case !okA:
			return 1
		case !okB:
			return -1
		case desc:
			return -c
		default:
			return c
		}
	})
	return sorted
}

func text(row quote.Row, keys []string) (string, bool) {
	v, ok := row.Lookup(keys...)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}

// finalize sorts rows per q and truncates them to its result cap
func finalize(rows []quote.Row, q *filter.Query) []quote.Row {
	sorted := SortRows(rows, q.SortField(), q.SortOrder())
	if limit := q.MaxResults(); limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}
