package series

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cds-backfill/internal/aggregate"
	"github.com/sells-group/cds-backfill/internal/filter"
	"github.com/sells-group/cds-backfill/internal/sbsdr"
	"github.com/sells-group/cds-backfill/internal/schema"
)

// DayFetcher retrieves one day's raw payload; satisfied by *sbsdr.Fetcher.
type DayFetcher interface {
	FetchDay(ctx context.Context, date time.Time) (sbsdr.DayPayload, error)
}

// SecondaryHistory answers exact-date lookups against a prefetched
// historical series from the secondary source.
type SecondaryHistory interface {
	Lookup(date time.Time) (float64, bool)
}

// Snapshotter captures raw day payloads for offline diagnosis.
type Snapshotter interface {
	Capture(date time.Time, host string, body []byte)
}

// Builder walks a date range one day at a time, sequentially. Each day is a
// pure function of its own inputs; the only shared state is the pooled HTTP
// client far below the fetcher.
type Builder struct {
	fetcher       DayFetcher
	params        filter.Params
	method        aggregate.Method
	coverageStart time.Time
	secondary     SecondaryHistory // optional
	snap          Snapshotter      // optional
}

// NewBuilder wires the pipeline. coverageStart is the earliest date the
// feed publishes anything; zero disables the short-circuit.
func NewBuilder(fetcher DayFetcher, params filter.Params, method aggregate.Method, coverageStart time.Time) *Builder {
	return &Builder{
		fetcher:       fetcher,
		params:        params,
		method:        method,
		coverageStart: coverageStart,
	}
}

// WithSecondary attaches the optional secondary historical source.
func (b *Builder) WithSecondary(h SecondaryHistory) *Builder {
	b.secondary = h
	return b
}

// WithSnapshotter attaches optional raw-payload capture.
func (b *Builder) WithSnapshotter(s Snapshotter) *Builder {
	b.snap = s
	return b
}

// Build produces one DailyResult per calendar day in [start, end] inclusive,
// dates strictly increasing, no gaps. Cancellation between days returns the
// rows built so far along with ctx.Err(); a single bad day never aborts the
// backfill.
func (b *Builder) Build(ctx context.Context, start, end time.Time) ([]DailyResult, error) {
	start = midnightUTC(start)
	end = midnightUTC(end)
	if end.Before(start) {
		return nil, eris.Errorf("series: end date %s before start date %s",
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	var out []DailyResult
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		out = append(out, b.buildDay(ctx, d))
	}
	return out, nil
}

func (b *Builder) buildDay(ctx context.Context, date time.Time) DailyResult {
	day := date.Format("2006-01-02")

	if !b.coverageStart.IsZero() && date.Before(b.coverageStart) {
		// Known empty before the feed went live; don't burn a request.
		zap.L().Debug("series: pre-coverage day, skipping fetch",
			zap.String("date", day),
			zap.String("coverage_start", b.coverageStart.Format("2006-01-02")),
		)
		return Absent(date)
	}

	payload, err := b.fetcher.FetchDay(ctx, date)
	if err != nil {
		// Only cancellation escapes the fetcher.
		return Absent(date)
	}
	if payload.Absent {
		return b.trySecondary(date, "feed empty")
	}

	if b.snap != nil {
		b.snap.Capture(date, payload.Host, payload.Body)
	}

	records, err := schema.Normalize(payload.Body)
	if err != nil {
		zap.L().Warn("series: day payload unparseable",
			zap.String("date", day),
			zap.String("host", payload.Host),
			zap.Error(err),
		)
		return b.trySecondary(date, "unparseable payload")
	}

	quotes := filter.Apply(records, b.params)
	res, ok := aggregate.Reduce(quotes, b.method)
	if !ok {
		zap.L().Debug("series: no matching quotes",
			zap.String("date", day),
			zap.Int("records", len(records)),
		)
		return b.trySecondary(date, "no matching quotes")
	}

	source := SourcePrimary
	if payload.HostRank > 0 {
		source = SourceFallback
	}
	zap.L().Info("series: day aggregated",
		zap.String("date", day),
		zap.Float64("value_bps", res.Value),
		zap.Int("count", res.Count),
		zap.String("source", string(source)),
	)
	return DailyResult{
		Date:      date,
		Value:     res.Value,
		HasValue:  true,
		Count:     res.Count,
		WeightSum: res.WeightSum,
		Source:    source,
		Kind:      res.Kind,
	}
}

// trySecondary consults the prefetched secondary history for the literal
// calendar date before declaring the day absent.
func (b *Builder) trySecondary(date time.Time, reason string) DailyResult {
	if b.secondary != nil {
		if v, ok := b.secondary.Lookup(date); ok {
			zap.L().Info("series: day filled from secondary source",
				zap.String("date", date.Format("2006-01-02")),
				zap.Float64("value_bps", v),
			)
			return DailyResult{
				Date:     date,
				Value:    v,
				HasValue: true,
				Count:    1,
				Source:   SourceSecondary,
				Kind:     QuoteKindLastPrint,
			}
		}
	}
	zap.L().Debug("series: day absent",
		zap.String("date", date.Format("2006-01-02")),
		zap.String("reason", reason),
	)
	return Absent(date)
}

func midnightUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
