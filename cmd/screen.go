package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/s0up4200/yfscreener/filter"
)

// rangeFlag binds a --min-x/--max-x flag to its Criteria bound
type rangeFlag struct {
	name  string
	usage string
	bound func(*filter.Criteria) **float64
}

var rangeFlags = []rangeFlag{
	{"min-price", "minimum share price", func(c *filter.Criteria) **float64 { return &c.MinPrice }},
	{"max-price", "maximum share price", func(c *filter.Criteria) **float64 { return &c.MaxPrice }},
	{"min-market-cap", "minimum market capitalization", func(c *filter.Criteria) **float64 { return &c.MinMarketCap }},
	{"max-market-cap", "maximum market capitalization", func(c *filter.Criteria) **float64 { return &c.MaxMarketCap }},
	{"min-volume", "minimum trading volume", func(c *filter.Criteria) **float64 { return &c.MinVolume }},
	{"max-volume", "maximum trading volume", func(c *filter.Criteria) **float64 { return &c.MaxVolume }},
	{"min-pe", "minimum trailing P/E ratio", func(c *filter.Criteria) **float64 { return &c.MinPERatio }},
	{"max-pe", "maximum trailing P/E ratio", func(c *filter.Criteria) **float64 { return &c.MaxPERatio }},
	{"min-pb", "minimum price/book ratio", func(c *filter.Criteria) **float64 { return &c.MinPBRatio }},
	{"max-pb", "maximum price/book ratio", func(c *filter.Criteria) **float64 { return &c.MaxPBRatio }},
	{"min-peg", "minimum PEG ratio", func(c *filter.Criteria) **float64 { return &c.MinPEGRatio }},
	{"max-peg", "maximum PEG ratio", func(c *filter.Criteria) **float64 { return &c.MaxPEGRatio }},
	{"min-dividend-yield", "minimum dividend yield (percent)", func(c *filter.Criteria) **float64 { return &c.MinDividendYield }},
	{"max-dividend-yield", "maximum dividend yield (percent)", func(c *filter.Criteria) **float64 { return &c.MaxDividendYield }},
	{"min-revenue-growth", "minimum quarterly revenue growth (percent)", func(c *filter.Criteria) **float64 { return &c.MinRevenueGrowth }},
	{"max-revenue-growth", "maximum quarterly revenue growth (percent)", func(c *filter.Criteria) **float64 { return &c.MaxRevenueGrowth }},
	{"min-earnings-growth", "minimum quarterly earnings growth (percent)", func(c *filter.Criteria) **float64 { return &c.MinEarningsGrowth }},
	{"max-earnings-growth", "maximum quarterly earnings growth (percent)", func(c *filter.Criteria) **float64 { return &c.MaxEarningsGrowth }},
	{"min-profit-margin", "minimum net profit margin (percent)", func(c *filter.Criteria) **float64 { return &c.MinProfitMargin }},
	{"max-profit-margin", "maximum net profit margin (percent)", func(c *filter.Criteria) **float64 { return &c.MaxProfitMargin }},
	{"min-roe", "minimum return on equity (percent)", func(c *filter.Criteria) **float64 { return &c.MinROE }},
	{"max-roe", "maximum return on equity (percent)", func(c *filter.Criteria) **float64 { return &c.MaxROE }},
	{"min-roa", "minimum return on assets (percent)", func(c *filter.Criteria) **float64 { return &c.MinROA }},
	{"max-roa", "maximum return on assets (percent)", func(c *filter.Criteria) **float64 { return &c.MaxROA }},
}

var (
	rangeValues = make(map[string]*float64, len(rangeFlags))

	sectors    []string
	industries []string
	exchanges  []string
	regions    []string
	allRegions bool
	maxResults int
	sortBy     string
	sortOrder  string
	basePreset string
)

// screenCmd represents the screen command
var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "Run a screen built from command line criteria",
	Long: `Run a screen built from command line criteria.

Range flags come in --min-x/--max-x pairs; setting one side leaves the other
open. Categorical flags accept several values and match any of them. Without
--region or --all-regions the search is restricted to the US.`,
	Example: `  yfscreener screen --min-market-cap 1e10 --max-pe 15 --sector "Financial Services"
  yfscreener screen --preset value --region gb --limit 20 --sort-by market_cap --sort-order desc
  yfscreener screen --min-price 5 --all-regions --where 'contains(longName, "bank")' -o symbols`,
	RunE: runScreen,
}

func init() {
	flags := screenCmd.Flags()
	for _, f := range rangeFlags {
		rangeValues[f.name] = flags.Float64(f.name, 0, f.usage)
	}

	flags.StringSliceVar(&sectors, "sector", nil, "sector(s) to include")
	flags.StringSliceVar(&industries, "industry", nil, "industry or industries to include")
	flags.StringSliceVar(&exchanges, "exchange", nil, "exchange code(s) to include")
	flags.StringSliceVar(&regions, "region", nil, "region code(s) to search (default us)")
	flags.BoolVar(&allRegions, "all-regions", false, "search every region")
	flags.IntVarP(&maxResults, "limit", "n", 0, "maximum number of results")
	flags.StringVar(&sortBy, "sort-by", "", "sort field (ticker, price, market_cap, volume, pe_ratio)")
	flags.StringVar(&sortOrder, "sort-order", "", "sort order (asc, desc)")
	flags.StringVarP(&basePreset, "preset", "p", "", "start from a preset in the config file")

	screenCmd.MarkFlagsMutuallyExclusive("region", "all-regions")
}

func runScreen(cmd *cobra.Command, args []string) error {
	criteria, err := criteriaFromFlags(cmd)
	if err != nil {
		return err
	}

	q, err := scr.BuildQuery(criteria)
	if err != nil {
		return fmt.Errorf("invalid criteria: %w", err)
	}

	logger.Info().Str("query", q.String()).Msg("Running screen")

	rows, err := scr.Execute(cmd.Context(), q)
	if err != nil {
		return err
	}

	rows, err = refine(rows, whereExpr)
	if err != nil {
		return err
	}

	kind, _ := parseOutputFormat(outputFormat)
	return render(os.Stdout, rows, kind)
}

// criteriaFromFlags merges explicitly set flags over the optional base preset
func criteriaFromFlags(cmd *cobra.Command) (filter.Criteria, error) {
	var criteria filter.Criteria
	if basePreset != "" {
		preset, ok := cfg.Presets[basePreset]
		if !ok {
			return criteria, fmt.Errorf("preset '%s' not found in config", basePreset)
		}
		criteria = preset
	}

	flags := cmd.Flags()
	for _, f := range rangeFlags {
		if !flags.Changed(f.name) {
			continue
		}
		v := *rangeValues[f.name]
		*f.bound(&criteria) = &v
	}

	if flags.Changed("sector") {
		criteria.Sectors = sectors
	}
	if flags.Changed("industry") {
		criteria.Industries = industries
	}
	if flags.Changed("exchange") {
		criteria.Exchanges = exchanges
	}
	if flags.Changed("region") {
		criteria.Regions = regions
		criteria.AllRegions = false
	}
	if flags.Changed("all-regions") {
		criteria.AllRegions = allRegions
		criteria.Regions = nil
	}
	if flags.Changed("limit") {
		criteria.MaxResults = maxResults
	}
	if flags.Changed("sort-by") {
		criteria.SortBy = sortBy
	}
	if flags.Changed("sort-order") {
		criteria.SortOrder = sortOrder
	}

	return criteria, nil
}
