// Package series drives the day-by-day pipeline across a date range and
// assembles the dense, gap-aware output series.
package series

import (
	"time"

	"github.com/sells-group/cds-backfill/internal/filter"
)

// Source says where a day's value came from.
type Source string

const (
	// SourcePrimary: the first candidate host served the day.
	SourcePrimary Source = "primary"
	// SourceFallback: a mirror host served the day.
	SourceFallback Source = "fallback"
	// SourceSecondary: the optional historical fallback source matched the
	// literal calendar date after the feed yielded nothing.
	SourceSecondary Source = "secondary"
	// SourceNone: the day is absent.
	SourceNone Source = "none"
)

// QuoteKindLastPrint tags values taken from the secondary source, which
// publishes one last-traded print per date.
const QuoteKindLastPrint = filter.QuoteKind("last_print")

// DailyResult is one output row. HasValue distinguishes an absent day from
// a genuinely zero-valued one.
type DailyResult struct {
	Date      time.Time
	Value     float64
	HasValue  bool
	Count     int
	WeightSum float64
	Source    Source
	Kind      filter.QuoteKind
}

// Absent returns the explicit no-data row for date.
func Absent(date time.Time) DailyResult {
	return DailyResult{Date: date, Source: SourceNone}
}
