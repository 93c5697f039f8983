package filter

import (
	"slices"
	"strings"
)

// Kind classifies how a screenable field is filtered
type Kind int

const (
	KindRange Kind = iota
	KindCategorical
)

// FieldDef describes one screenable dimension. Adding a new dimension means
// adding an entry to Fields and an accessor on Builder.
type FieldDef struct {
	Name        string // friendly name used by Criteria and the CLI
	Upstream    string // field name understood by the screener endpoint
	Kind        Kind
	Min         *float64
	Max         *float64
	Percentage  bool // bounded to [0, 100] at predicate construction
	Allowed     []string
	Description string
}

func bound(v float64) *float64 { return &v }

// Upstream field names
const (
	FieldPrice          = "intradayprice"
	FieldMarketCap      = "marketcap"
	FieldVolume         = "volume"
	FieldPERatio        = "peratio"
	FieldPBRatio        = "pbratio"
	FieldPEGRatio       = "pegratio"
	FieldDividendYield  = "dividendyield"
	FieldRevenueGrowth  = "revenuegrowth"
	FieldEarningsGrowth = "earningsgrowth"
	FieldProfitMargin   = "profitmargin"
	FieldROE            = "returnonequity"
	FieldROA            = "returnonassets"
	FieldSector         = "sector"
	FieldIndustry       = "industry"
	FieldRegion         = "region"
	FieldExchange       = "exchange"
)

// DefaultRegion is applied when the region accessor is never called
const DefaultRegion = "us"

// Sectors lists the sector values the upstream accepts
var Sectors = []string{
	"Technology",
	"Healthcare",
	"Financial Services",
	"Consumer Cyclical",
	"Industrials",
	"Communication Services",
	"Consumer Defensive",
	"Energy",
	"Real Estate",
	"Basic Materials",
	"Utilities",
}

// Regions lists the region codes the upstream accepts
var Regions = []string{"us", "eu", "asia", "au", "ca", "gb"}

// Industries is a representative sample; any industry string is accepted
var Industries = []string{
	"Software—Application",
	"Software—Infrastructure",
	"Semiconductors",
	"Internet Content & Information",
	"Electronic Components",
	"Computer Hardware",
	"Biotechnology",
	"Drug Manufacturers—General",
	"Medical Devices",
	"Banks—Regional",
	"Banks—Diversified",
	"Insurance—Life",
	"Asset Management",
	"Auto Manufacturers",
	"Aerospace & Defense",
	"Oil & Gas E&P",
	"Utilities—Regulated Electric",
	"Real Estate—Diversified",
	"Retail—Cyclical",
	"Consumer Electronics",
}

// Fields is the registry of screenable dimensions keyed by friendly name
var Fields = map[string]FieldDef{
	"price":           {Name: "price", Upstream: FieldPrice, Kind: KindRange, Min: bound(0.01), Description: "Stock price in dollars"},
	"market_cap":      {Name: "market_cap", Upstream: FieldMarketCap, Kind: KindRange, Min: bound(0), Description: "Market capitalization in dollars"},
	"volume":          {Name: "volume", Upstream: FieldVolume, Kind: KindRange, Min: bound(0), Description: "Trading volume (number of shares)"},
	"pe_ratio":        {Name: "pe_ratio", Upstream: FieldPERatio, Kind: KindRange, Description: "Price-to-earnings ratio"},
	"pb_ratio":        {Name: "pb_ratio", Upstream: FieldPBRatio, Kind: KindRange, Min: bound(0), Description: "Price-to-book ratio"},
	"peg_ratio":       {Name: "peg_ratio", Upstream: FieldPEGRatio, Kind: KindRange, Description: "Price/earnings to growth ratio"},
	"dividend_yield":  {Name: "dividend_yield", Upstream: FieldDividendYield, Kind: KindRange, Min: bound(0), Max: bound(100), Percentage: true, Description: "Dividend yield percentage"},
	"revenue_growth":  {Name: "revenue_growth", Upstream: FieldRevenueGrowth, Kind: KindRange, Description: "Revenue growth rate percentage"},
	"earnings_growth": {Name: "earnings_growth", Upstream: FieldEarningsGrowth, Kind: KindRange, Description: "Earnings growth rate percentage"},
	"profit_margin":   {Name: "profit_margin", Upstream: FieldProfitMargin, Kind: KindRange, Min: bound(0), Max: bound(100), Percentage: true, Description: "Profit margin percentage"},
	"roe":             {Name: "roe", Upstream: FieldROE, Kind: KindRange, Description: "Return on equity percentage"},
	"roa":             {Name: "roa", Upstream: FieldROA, Kind: KindRange, Description: "Return on assets percentage"},
	"sector":          {Name: "sector", Upstream: FieldSector, Kind: KindCategorical, Allowed: Sectors, Description: "Business sector"},
	"industry":        {Name: "industry", Upstream: FieldIndustry, Kind: KindCategorical, Description: "Business industry"},
	"region":          {Name: "region", Upstream: FieldRegion, Kind: KindCategorical, Allowed: Regions, Description: "Geographic region"},
	"exchange":        {Name: "exchange", Upstream: FieldExchange, Kind: KindCategorical, Description: "Stock exchange"},
}

// LookupField finds a field definition by friendly or upstream name
func LookupField(name string) (FieldDef, bool) {
	if def, ok := Fields[name]; ok {
		return def, true
	}
	for _, def := range Fields {
		if def.Upstream == name {
			return def, true
		}
	}
	return FieldDef{}, false
}

// FieldNames returns the friendly names of all registered fields, sorted
func FieldNames() []string {
	names := make([]string, 0, len(Fields))
	for name := range Fields {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Available returns the static reference values for a categorical dimension
func Available(dimension string) ([]string, error) {
	switch strings.ToLower(strings.TrimSpace(dimension)) {
	case "sector", "sectors":
		return slices.Clone(Sectors), nil
	case "industry", "industries":
		return slices.Clone(Industries), nil
	case "region", "regions":
		return slices.Clone(Regions), nil
	default:
		return nil, invalid(dimension, "no reference values; available dimensions: sector, industry, region")
	}
}
