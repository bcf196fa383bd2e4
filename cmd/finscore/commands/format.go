package commands

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/wonny/finscore/internal/contracts"
	"github.com/wonny/finscore/internal/scoring"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// PrintSeparator prints a visual separator
func PrintSeparator(w io.Writer) {
	fmt.Fprintln(w, "───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator(w io.Writer) {
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
}

// PrintHeader prints a titled block header
func PrintHeader(w io.Writer, title string) {
	fmt.Fprintln(w)
	PrintDoubleSeparator(w)
	fmt.Fprintf(w, "  %s\n", title)
	PrintSeparator(w)
}

// PrintScoredTable renders the raw metric values of every row, then the
// per-metric sub-scores with the weighted score. The focal company is
// marked with '*'.
func PrintScoredTable(w io.Writer, table *scoring.ScoredTable) {
	printRows(w, table, false, "%.2f", func(r scoring.Row) [contracts.MetricCount]float64 { return r.Values })
	fmt.Fprintln(w)
	printRows(w, table, true, "%.4f", func(r scoring.Row) [contracts.MetricCount]float64 { return r.SubScores })
}

func printRows(w io.Writer, table *scoring.ScoredTable, withScore bool, format string, cols func(scoring.Row) [contracts.MetricCount]float64) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	header := []string{"Symbol"}
	for _, m := range contracts.AllMetrics {
		header = append(header, m.String())
	}
	if withScore {
		header = append(header, "Score")
	}
	fmt.Fprintln(tw, strings.Join(header, "\t")+"\t")

	focal := len(table.Rows) - 1
	for i, row := range table.Rows {
		symbol := row.Symbol
		if i == focal {
			symbol = "*" + symbol
		}
		cells := []string{symbol}
		for _, v := range cols(row) {
			cells = append(cells, fmt.Sprintf(format, v))
		}
		if withScore {
			cells = append(cells, fmt.Sprintf("%.4f", row.Score))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t")+"\t")
	}

	_ = tw.Flush()
}

// PrintMetricRecord prints one company's metrics, "-" for missing values
func PrintMetricRecord(w io.Writer, rec contracts.MetricRecord) {
	for _, m := range contracts.AllMetrics {
		value := "-"
		if v, ok := rec.Get(m); ok {
			value = fmt.Sprintf("%.2f", v)
		}
		fmt.Fprintf(w, "  %-22s: %s\n", m.String(), value)
	}
}
