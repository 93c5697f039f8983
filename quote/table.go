package quote

// Columns is the fixed column order of the tabular output
var Columns = []string{
	"symbol",
	"name",
	"price",
	"marketCap",
	"volume",
	"avgVolume",
	"pe",
	"forwardPE",
	"dividendYield",
	"sector",
	"industry",
	"exchange",
	"52WeekHigh",
	"52WeekLow",
}

// columnSources maps each output column to the upstream keys it is read
// from, in order of preference
var columnSources = map[string][]string{
	"symbol":        {"symbol"},
	"name":          {"longName", "shortName"},
	"price":         {"regularMarketPrice"},
	"marketCap":     {"marketCap"},
	"volume":        {"regularMarketVolume", "volume"},
	"avgVolume":     {"averageDailyVolume3Month", "averageVolume"},
	"pe":            {"trailingPE"},
	"forwardPE":     {"forwardPE"},
	"dividendYield": {"dividendYield", "trailingAnnualDividendYield"},
	"sector":        {"sector"},
	"industry":      {"industry"},
	"exchange":      {"exchange", "fullExchangeName"},
	"52WeekHigh":    {"fiftyTwoWeekHigh"},
	"52WeekLow":     {"fiftyTwoWeekLow"},
}

// Record is one row of the tabular output keyed by Columns. Missing values
// are nil.
type Record map[string]any

// Values returns the record's values in Columns order
func (r Record) Values() []any {
	values := make([]any, len(Columns))
	for i, col := range Columns {
		values[i] = r[col]
	}
	return values
}

// Table normalizes rows into fixed-column records
func Table(rows []Row) []Record {
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec := make(Record, len(Columns))
		for _, col := range Columns {
			v, ok := row.Lookup(columnSources[col]...)
			if !ok {
				rec[col] = nil
				continue
			}
			if f, isNum := toFloat(v); isNum {
				v = f
			}
			rec[col] = v
		}
		records = append(records, rec)
	}
	return records
}
