package reporting

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/crynom/derive/internal/domain"
)

// HistoryHeader lists the CSV columns, in order.
var HistoryHeader = []string{
	"timestamp", "funding_rate",
	"open_price", "high_price", "low_price", "close_price",
	"trade_count", "min_price", "max_price", "min_vol", "max_vol",
	"last_price", "last_vol", "avg_index_price", "pnl_buy", "pnl_sell",
	"datetime",
}

// RenderHistoryCSV renders history rows as CSV string.
// Missing candle or trade data renders as empty cells.
func RenderHistoryCSV(rows []*domain.HistoryRow) string {
	var sb strings.Builder

	sb.WriteString(strings.Join(HistoryHeader, ","))
	sb.WriteString("\n")

	cells := make([]string, 0, len(HistoryHeader))
	for _, r := range rows {
		cells = cells[:0]
		cells = append(cells, strconv.FormatInt(r.Timestamp, 10), formatFloat(r.FundingRate))

		if c := r.Candle; c != nil {
			cells = append(cells,
				formatFloat(c.OpenPrice),
				formatFloat(c.HighPrice),
				formatFloat(c.LowPrice),
				formatFloat(c.ClosePrice),
			)
		} else {
			cells = append(cells, "", "", "", "")
		}

		if b := r.Trades; b != nil {
			cells = append(cells,
				strconv.Itoa(b.TradeCount),
				formatFloat(b.MinPrice),
				formatFloat(b.MaxPrice),
				formatFloat(b.MinVol),
				formatFloat(b.MaxVol),
				formatFloat(b.LastPrice),
				formatFloat(b.LastVol),
				formatFloat(b.AvgIndexPrice),
				formatFloat(b.PnlBuy),
				formatFloat(b.PnlSell),
			)
		} else {
			cells = append(cells, "", "", "", "", "", "", "", "", "", "")
		}

		cells = append(cells, r.Datetime.UTC().Format(time.DateTime))

		sb.WriteString(strings.Join(cells, ","))
		sb.WriteString("\n")
	}

	return sb.String()
}

// WriteHistoryCSV writes history rows as CSV to w.
func WriteHistoryCSV(w io.Writer, rows []*domain.HistoryRow) error {
	_, err := io.WriteString(w, RenderHistoryCSV(rows))
	return err
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
