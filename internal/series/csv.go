package series

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rotisserie/eris"
)

// WriteCSV emits the series with one row per calendar day. Absent days keep
// an empty value cell so a gap is never mistaken for a zero spread.
func WriteCSV(w io.Writer, results []DailyResult) error {
	cw := csv.NewWriter(w)

	header := []string{"date", "value_bps", "record_count", "weight_sum", "source", "quote_kind"}
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "series: write csv header")
	}

	for _, r := range results {
		value := ""
		kind := ""
		if r.HasValue {
			value = strconv.FormatFloat(r.Value, 'f', -1, 64)
			kind = string(r.Kind)
		}
		row := []string{
			r.Date.Format("2006-01-02"),
			value,
			strconv.Itoa(r.Count),
			strconv.FormatFloat(r.WeightSum, 'f', -1, 64),
			string(r.Source),
			kind,
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrapf(err, "series: write csv row %s", row[0])
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "series: flush csv")
}
