package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/s0up4200/yfscreener/quote"
)

type outputKind string

const (
	outputSymbols outputKind = "symbols"
	outputTable   outputKind = "table"
	outputJSON    outputKind = "json"
)

func parseOutputFormat(s string) (outputKind, error) {
	switch kind := outputKind(s); kind {
	case outputSymbols, outputTable, outputJSON:
		return kind, nil
	default:
		return "", fmt.Errorf("invalid output format '%s', must be one of: symbols, table, json", s)
	}
}

// refine applies the --where expression, if any
func refine(rows []quote.Row, expression string) ([]quote.Row, error) {
	if expression == "" {
		return rows, nil
	}
	where, err := quote.CompileWhere(expression)
	if err != nil {
		return nil, err
	}
	return where.Apply(rows), nil
}

// render writes rows to w in the requested format
func render(w io.Writer, rows []quote.Row, kind outputKind) error {
	switch kind {
	case outputSymbols:
		for _, symbol := range quote.Symbols(rows) {
			if _, err := fmt.Fprintln(w, symbol); err != nil {
				return err
			}
		}
		return nil

	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(quote.Table(rows))

	default:
		t := newTable(w)
		header := make(table.Row, len(quote.Columns))
		for i, col := range quote.Columns {
			header[i] = col
		}
		t.AppendHeader(header)

		for _, rec := range quote.Table(rows) {
			values := rec.Values()
			row := make(table.Row, len(values))
			for i, v := range values {
				row[i] = formatCell(quote.Columns[i], v)
			}
			t.AppendRow(row)
		}
		t.AppendFooter(table.Row{fmt.Sprintf("%d results", len(rows))})
		t.Render()
		return nil
	}
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Header = text.FormatDefault
	t.Style().Format.Footer = text.FormatDefault
	t.SetOutputMirror(w)
	return t
}

// formatCell renders a record value for the table. Large magnitudes are
// compacted so market caps stay readable.
func formatCell(col string, v any) string {
	switch val := v.(type) {
	case nil:
		return "-"
	case float64:
		switch col {
		case "marketCap", "volume", "avgVolume":
			return compact(val)
		case "dividendYield":
			return strconv.FormatFloat(val, 'f', 2, 64) + "%"
		default:
			return strconv.FormatFloat(val, 'f', 2, 64)
		}
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}

func compact(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1e12:
		return strconv.FormatFloat(v/1e12, 'f', 2, 64) + "T"
	case abs >= 1e9:
		return strconv.FormatFloat(v/1e9, 'f', 2, 64) + "B"
	case abs >= 1e6:
		return strconv.FormatFloat(v/1e6, 'f', 2, 64) + "M"
	case abs >= 1e3:
		return strconv.FormatFloat(v/1e3, 'f', 2, 64) + "K"
	default:
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
}
