package filter

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/s0up4200/yfscreener/quote"
)

// SortOrder is the direction of the final client-side sort
type SortOrder string

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

// ParseSortOrder accepts "asc"/"desc" in any case; empty means ascending
func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc":
		return Ascending, nil
	case "desc":
		return Descending, nil
	default:
		return "", invalid("", "invalid sort order '%s', must be 'asc' or 'desc'", s)
	}
}

// Sort fields accepted by Build
const (
	SortTicker    = "ticker"
	SortPrice     = FieldPrice
	SortMarketCap = FieldMarketCap
	SortVolume    = FieldVolume
	SortPERatio   = FieldPERatio
)

var sortFields = []string{SortTicker, SortPrice, SortMarketCap, SortVolume, SortPERatio}

var sortAliases = map[string]string{
	"symbol":     SortTicker,
	"price":      SortPrice,
	"market_cap": SortMarketCap,
	"pe_ratio":   SortPERatio,
}

// NormalizeSortField maps a sort field or friendly alias onto the allow-list
func NormalizeSortField(field string) (string, error) {
	field = strings.ToLower(strings.TrimSpace(field))
	if alias, ok := sortAliases[field]; ok {
		field = alias
	}
	if !slices.Contains(sortFields, field) {
		return "", invalid("", "invalid sort field '%s', must be one of %s", field, strings.Join(sortFields, ", "))
	}
	return field, nil
}

// Range bounds a numeric dimension; nil means unbounded on that side
type Range struct {
	Min *float64
	Max *float64
}

// AtLeast bounds a dimension from below
func AtLeast(min float64) Range { return Range{Min: &min} }

// AtMost bounds a dimension from above
func AtMost(max float64) Range { return Range{Max: &max} }

// Between bounds a dimension on both sides
func Between(min, max float64) Range { return Range{Min: &min, Max: &max} }

// IsZero reports whether neither bound is set
func (r Range) IsZero() bool { return r.Min == nil && r.Max == nil }

// Executor runs a built query. The screener implements it.
type Executor interface {
	Execute(ctx context.Context, q *Query) ([]quote.Row, error)
}

// Builder accumulates filters fluently. Accessor errors are collected and
// reported by Build, so a chain can be written without intermediate checks:
//
//	q, err := filter.NewBuilder().
//		Price(filter.Between(10, 100)).
//		Sector("Technology", "Healthcare").
//		SortBy("marketcap", filter.Descending).
//		Limit(50).
//		Build()
type Builder struct {
	nodes     []Node
	sortField string
	sortOrder SortOrder
	limit     int
	limitSet  bool
	regions   []string
	regionSet bool
	errs      []error
	executor  Executor
}

// NewBuilder creates an empty builder sorting by ticker ascending
func NewBuilder() *Builder {
	return &Builder{
		sortField: SortTicker,
		sortOrder: Ascending,
	}
}

// WithExecutor binds the builder to an executor used by Execute
func (b *Builder) WithExecutor(executor Executor) *Builder {
	b.executor = executor
	return b
}

// Price bounds the share price
func (b *Builder) Price(r Range) *Builder { return b.addRange("price", r) }

// MarketCap bounds the market capitalization
func (b *Builder) MarketCap(r Range) *Builder { return b.addRange("market_cap", r) }

// Volume bounds the trading volume
func (b *Builder) Volume(r Range) *Builder { return b.addRange("volume", r) }

// PERatio bounds the trailing P/E ratio
func (b *Builder) PERatio(r Range) *Builder { return b.addRange("pe_ratio", r) }

// PBRatio bounds the price/book ratio
func (b *Builder) PBRatio(r Range) *Builder { return b.addRange("pb_ratio", r) }

// PEGRatio bounds the PEG ratio
func (b *Builder) PEGRatio(r Range) *Builder { return b.addRange("peg_ratio", r) }

// DividendYield bounds the dividend yield
func (b *Builder) DividendYield(r Range) *Builder { return b.addRange("dividend_yield", r) }

// RevenueGrowth bounds the quarterly revenue growth
func (b *Builder) RevenueGrowth(r Range) *Builder { return b.addRange("revenue_growth", r) }

// EarningsGrowth bounds the quarterly earnings growth
func (b *Builder) EarningsGrowth(r Range) *Builder { return b.addRange("earnings_growth", r) }

// ProfitMargin bounds the net profit margin
func (b *Builder) ProfitMargin(r Range) *Builder { return b.addRange("profit_margin", r) }

// ROE bounds the return on equity
func (b *Builder) ROE(r Range) *Builder { return b.addRange("roe", r) }

// ROA bounds the return on assets
func (b *Builder) ROA(r Range) *Builder { return b.addRange("roa", r) }

// Sector matches any of the given sectors
func (b *Builder) Sector(sectors ...string) *Builder { return b.addCategorical("sector", sectors) }

// Industry matches any of the given industries
func (b *Builder) Industry(industries ...string) *Builder {
	return b.addCategorical("industry", industries)
}

// Exchange matches any of the given exchange codes
func (b *Builder) Exchange(exchanges ...string) *Builder {
	return b.addCategorical("exchange", exchanges)
}

// Region restricts results to the given region codes. Calling it with no
// codes searches all regions; never calling it restricts to DefaultRegion.
// The last call wins.
func (b *Builder) Region(codes ...string) *Builder {
	def := Fields["region"]
	for _, code := range codes {
		if !slices.Contains(def.Allowed, code) {
			b.errs = append(b.errs, invalid("region", "value '%s' is not valid, allowed values: %s", code, strings.Join(def.Allowed, ", ")))
			return b
		}
	}
	b.regionSet = true
	b.regions = slices.Clone(codes)
	return b
}

// SortBy sets the sort field and order; the field is validated by Build
func (b *Builder) SortBy(field string, order SortOrder) *Builder {
	if order != Ascending && order != Descending {
		b.errs = append(b.errs, invalid("", "invalid sort order '%s', must be 'asc' or 'desc'", order))
		return b
	}
	b.sortField = field
	b.sortOrder = order
	return b
}

// Limit caps the number of results; it must be positive
func (b *Builder) Limit(maxResults int) *Builder {
	b.limit = maxResults
	b.limitSet = true
	return b
}

// Err returns the accumulated accessor errors, if any
func (b *Builder) Err() error {
	return errors.Join(b.errs...)
}

// Build validates the staged state and freezes it into an immutable Query.
// Later accessor calls do not affect queries already built.
func (b *Builder) Build() (*Query, error) {
	if err := b.Err(); err != nil {
		return nil, err
	}

	sortField, err := NormalizeSortField(b.sortField)
	if err != nil {
		return nil, err
	}

	if b.limitSet && b.limit <= 0 {
		return nil, invalid("", "max_results must be a positive integer, got %d", b.limit)
	}

	nodes := slices.Clone(b.nodes)

	region := RegionFilter{policy: RegionDefaultUS, codes: []string{DefaultRegion}}
	if b.regionSet {
		if len(b.regions) == 0 {
			region = RegionFilter{policy: RegionAll}
		} else {
			region = RegionFilter{policy: RegionExplicit, codes: slices.Clone(b.regions)}
		}
	}
	if region.policy != RegionAll {
		node, err := categoricalNode(FieldRegion, region.codes)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}

	if len(nodes) == 0 {
		return nil, invalid("", "query must have at least one filter")
	}

	root, err := NewGroup(And, nodes...)
	if err != nil {
		return nil, err
	}

	q := &Query{
		root:      root,
		sortField: sortField,
		sortOrder: b.sortOrder,
		region:    region,
	}
	if b.limitSet {
		q.maxResults = b.limit
	}
	return q, nil
}

// Execute builds the query and runs it on the bound executor
func (b *Builder) Execute(ctx context.Context) ([]quote.Row, error) {
	if b.executor == nil {
		return nil, ErrNoExecutor
	}
	q, err := b.Build()
	if err != nil {
		return nil, err
	}
	return b.executor.Execute(ctx, q)
}

func (b *Builder) addRange(name string, r Range) *Builder {
	def := Fields[name]

	if r.IsZero() {
		b.errs = append(b.errs, invalid(name, "at least one of min or max is required"))
		return b
	}
	for _, v := range []*float64{r.Min, r.Max} {
		if v == nil {
			continue
		}
		if def.Min != nil && *v < *def.Min {
			b.errs = append(b.errs, invalid(name, "value %g is below minimum allowed value %g", *v, *def.Min))
			return b
		}
		if def.Max != nil && *v > *def.Max {
			b.errs = append(b.errs, invalid(name, "value %g exceeds maximum allowed value %g", *v, *def.Max))
			return b
		}
	}

	var (
		p   Predicate
		err error
	)
	switch {
	case r.Min != nil && r.Max != nil:
		p, err = NewPredicate(def.Upstream, OpBTWN, *r.Min, *r.Max)
	case r.Min != nil:
		p, err = NewPredicate(def.Upstream, OpGTE, *r.Min)
	default:
		p, err = NewPredicate(def.Upstream, OpLTE, *r.Max)
	}
	if err != nil {
		b.errs = append(b.errs, err)
		return b
	}

	b.nodes = append(b.nodes, p)
	return b
}

func (b *Builder) addCategorical(name string, values []string) *Builder {
	def := Fields[name]

	if len(values) == 0 {
		b.errs = append(b.errs, invalid(name, "requires at least one value"))
		return b
	}
	if def.Allowed != nil {
		for _, v := range values {
			if !slices.Contains(def.Allowed, v) {
				b.errs = append(b.errs, invalid(name, "value '%s' is not valid, allowed values: %s", v, strings.Join(def.Allowed, ", ")))
				return b
			}
		}
	}

	node, err := categoricalNode(def.Upstream, values)
	if err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	b.nodes = append(b.nodes, node)
	return b
}

// categoricalNode folds one value into EQ and several into an OR of EQs
func categoricalNode(field string, values []string) (Node, error) {
	if len(values) == 1 {
		return NewPredicate(field, OpEQ, values[0])
	}

	children := make([]Node, 0, len(values))
	for _, v := range values {
		p, err := NewPredicate(field, OpEQ, v)
		if err != nil {
			return nil, err
		}
		children = append(children, p)
	}
	return NewGroup(Or, children...)
}
