package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders a summary as Markdown string.
func RenderMarkdown(s *Summary) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# History: %s\n\n", s.Table))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", s.GeneratedAt.Format(time.RFC3339)))

	if s.Run != nil {
		r := s.Run
		sb.WriteString("## Run\n\n")
		sb.WriteString("| Metric | Value |\n")
		sb.WriteString("|--------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Run ID | %s |\n", r.RunID))
		sb.WriteString(fmt.Sprintf("| Funding Fetched | %d |\n", r.FundingFetched))
		sb.WriteString(fmt.Sprintf("| Candles Fetched | %d |\n", r.CandlesFetched))
		sb.WriteString(fmt.Sprintf("| Trades Fetched | %d |\n", r.TradesFetched))
		sb.WriteString(fmt.Sprintf("| Duplicates Dropped | %d |\n", r.Duplicates))
		sb.WriteString(fmt.Sprintf("| Trades Unbucketed | %d |\n", r.Unbucketed))
		if r.TradeCutoff != 0 {
			sb.WriteString(fmt.Sprintf("| Trade Cutoff | %d |\n", r.TradeCutoff))
		}
		sb.WriteString(fmt.Sprintf("| Rows Filtered | %d |\n", r.Filtered))
		sb.WriteString(fmt.Sprintf("| Rows Superseded | %d |\n", r.Superseded))
		sb.WriteString(fmt.Sprintf("| Duration | %s |\n", r.Duration.Round(time.Millisecond)))
		sb.WriteString("\n")
	}

	sb.WriteString("## Coverage\n\n")
	c := s.Coverage
	if c.Rows == 0 {
		sb.WriteString("Table is empty.\n\n")
		return sb.String()
	}
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Rows | %d |\n", c.Rows))
	sb.WriteString(fmt.Sprintf("| Rows With Candle | %d (%.1f%%) |\n", c.RowsWithCandle, percent(c.RowsWithCandle, c.Rows)))
	sb.WriteString(fmt.Sprintf("| Rows With Trades | %d (%.1f%%) |\n", c.RowsWithTrades, percent(c.RowsWithTrades, c.Rows)))
	sb.WriteString(fmt.Sprintf("| Trades | %d |\n", c.Trades))
	sb.WriteString(fmt.Sprintf("| First | %s |\n", formatUnix(c.FirstTimestamp)))
	sb.WriteString(fmt.Sprintf("| Last | %s |\n", formatUnix(c.LastTimestamp)))
	sb.WriteString(fmt.Sprintf("| Funding Min | %.8f |\n", c.MinFunding))
	sb.WriteString(fmt.Sprintf("| Funding Max | %.8f |\n", c.MaxFunding))
	sb.WriteString(fmt.Sprintf("| Funding Mean | %.8f |\n", c.MeanFunding))
	sb.WriteString("\n")

	return sb.String()
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

func formatUnix(sec int64) string {
	return time.Unix(sec, 0).UTC().Format(time.DateTime)
}
