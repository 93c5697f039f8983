package filter

import (
	"context"

	"github.com/s0up4200/yfscreener/quote"
)

// Criteria is the flat keyword form of a screen. It is what presets in the
// config file and CLI flags decode into. A nil bound leaves that side open.
type Criteria struct {
	MinPrice          *float64 `mapstructure:"min_price"`
	MaxPrice          *float64 `mapstructure:"max_price"`
	MinMarketCap      *float64 `mapstructure:"min_market_cap"`
	MaxMarketCap      *float64 `mapstructure:"max_market_cap"`
	MinVolume         *float64 `mapstructure:"min_volume"`
	MaxVolume         *float64 `mapstructure:"max_volume"`
	MinPERatio        *float64 `mapstructure:"min_pe_ratio"`
	MaxPERatio        *float64 `mapstructure:"max_pe_ratio"`
	MinPBRatio        *float64 `mapstructure:"min_pb_ratio"`
	MaxPBRatio        *float64 `mapstructure:"max_pb_ratio"`
	MinPEGRatio       *float64 `mapstructure:"min_peg_ratio"`
	MaxPEGRatio       *float64 `mapstructure:"max_peg_ratio"`
	MinDividendYield  *float64 `mapstructure:"min_dividend_yield"`
	MaxDividendYield  *float64 `mapstructure:"max_dividend_yield"`
	MinRevenueGrowth  *float64 `mapstructure:"min_revenue_growth"`
	MaxRevenueGrowth  *float64 `mapstructure:"max_revenue_growth"`
	MinEarningsGrowth *float64 `mapstructure:"min_earnings_growth"`
	MaxEarningsGrowth *float64 `mapstructure:"max_earnings_growth"`
	MinProfitMargin   *float64 `mapstructure:"min_profit_margin"`
	MaxProfitMargin   *float64 `mapstructure:"max_profit_margin"`
	MinROE            *float64 `mapstructure:"min_roe"`
	MaxROE            *float64 `mapstructure:"max_roe"`
	MinROA            *float64 `mapstructure:"min_roa"`
	MaxROA            *float64 `mapstructure:"max_roa"`

	Sectors    []string `mapstructure:"sectors"`
	Industries []string `mapstructure:"industries"`
	Exchanges  []string `mapstructure:"exchanges"`

	// Regions restricts the search; leave empty with AllRegions unset for
	// the default region, or set AllRegions to search everywhere.
	Regions    []string `mapstructure:"regions"`
	AllRegions bool     `mapstructure:"all_regions"`

	MaxResults int    `mapstructure:"max_results"`
	SortBy     string `mapstructure:"sort_by"`
	SortOrder  string `mapstructure:"sort_order"`
}

// Apply stages every set criterion on b
func (c Criteria) Apply(b *Builder) *Builder {
	ranges := []struct {
		min, max *float64
		set      func(Range) *Builder
	}{
		{c.MinPrice, c.MaxPrice, b.Price},
		{c.MinMarketCap, c.MaxMarketCap, b.MarketCap},
		{c.MinVolume, c.MaxVolume, b.Volume},
		{c.MinPERatio, c.MaxPERatio, b.PERatio},
		{c.MinPBRatio, c.MaxPBRatio, b.PBRatio},
		{c.MinPEGRatio, c.MaxPEGRatio, b.PEGRatio},
		{c.MinDividendYield, c.MaxDividendYield, b.DividendYield},
		{c.MinRevenueGrowth, c.MaxRevenueGrowth, b.RevenueGrowth},
		{c.MinEarningsGrowth, c.MaxEarningsGrowth, b.EarningsGrowth},
		{c.MinProfitMargin, c.MaxProfitMargin, b.ProfitMargin},
		{c.MinROE, c.MaxROE, b.ROE},
		{c.MinROA, c.MaxROA, b.ROA},
	}
	for _, r := range ranges {
		if r.min == nil && r.max == nil {
			continue
		}
		r.set(Range{Min: r.min, Max: r.max})
	}

	if len(c.Sectors) > 0 {
		b.Sector(c.Sectors...)
	}
	if len(c.Industries) > 0 {
		b.Industry(c.Industries...)
	}
	if len(c.Exchanges) > 0 {
		b.Exchange(c.Exchanges...)
	}

	switch {
	case c.AllRegions:
		b.Region()
	case len(c.Regions) > 0:
		b.Region(c.Regions...)
	}

	if c.SortBy != "" || c.SortOrder != "" {
		order, err := ParseSortOrder(c.SortOrder)
		if err != nil {
			b.errs = append(b.errs, err)
		} else {
			field := c.SortBy
			if field == "" {
				field = SortTicker
			}
			b.SortBy(field, order)
		}
	}

	if c.MaxResults != 0 {
		b.Limit(c.MaxResults)
	}

	return b
}

// Builder returns a fresh builder with the criteria staged
func (c Criteria) Builder() *Builder {
	return c.Apply(NewBuilder())
}

// Build validates the criteria and returns the query
func (c Criteria) Build() (*Query, error) {
	return c.Builder().Build()
}

// Execute builds the criteria and runs them on executor
func (c Criteria) Execute(ctx context.Context, executor Executor) ([]quote.Row, error) {
	return c.Builder().WithExecutor(executor).Execute(ctx)
}
