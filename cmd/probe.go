package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/cds-backfill/internal/filter"
	"github.com/sells-group/cds-backfill/internal/sbsdr"
	"github.com/sells-group/cds-backfill/internal/schema"
)

var (
	probeStart string
	probeEnd   string
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Report per-day matching-row counts without aggregating",
	Long: `Explains data coverage and, when given a range, fetches each day and
reports how many rows survive the filters. Useful for diagnosing unexpected
empties before a long backfill.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		coverageStart, err := cfg.Feed.CoverageStartDate()
		if err != nil {
			return err
		}

		fmt.Println("Coverage notice:")
		if !coverageStart.IsZero() {
			fmt.Printf("  - Public dissemination of security-based swaps began on %s.\n",
				coverageStart.Format("2006-01-02"))
			fmt.Println("  - Days before that are recorded as absent without a network call.")
		}
		fmt.Println("  - Entity and column selectors are heuristic; capture snapshots (--snapshot-dir on fetch) to inspect raw payloads.")

		if probeStart == "" || probeEnd == "" {
			return nil
		}

		start, err := parseDateFlag("start", probeStart)
		if err != nil {
			return err
		}
		end, err := parseDateFlag("end", probeEnd)
		if err != nil {
			return err
		}

		fetcher := newDayFetcher(cfg)
		params := newFilterParams(cfg)

		fmt.Printf("\n%-12s %-10s %s\n", "date", "rows", "first_quote_kind")
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			if err := ctx.Err(); err != nil {
				return err
			}
			rows, kind := probeDay(ctx, fetcher, params, d, coverageStart)
			fmt.Printf("%-12s %-10d %s\n", d.Format("2006-01-02"), rows, kind)
		}
		return nil
	},
}

func probeDay(ctx context.Context, fetcher *sbsdr.Fetcher, params filter.Params, date, coverageStart time.Time) (int, filter.QuoteKind) {
	if !coverageStart.IsZero() && date.Before(coverageStart) {
		return 0, ""
	}
	payload, err := fetcher.FetchDay(ctx, date)
	if err != nil || payload.Absent {
		return 0, ""
	}
	records, err := schema.Normalize(payload.Body)
	if err != nil {
		return 0, ""
	}
	quotes := filter.Apply(records, params)
	if len(quotes) == 0 {
		return 0, ""
	}
	return len(quotes), quotes[0].Kind
}

func init() {
	probeCmd.Flags().StringVar(&probeStart, "start", "", "start date YYYY-MM-DD (optional)")
	probeCmd.Flags().StringVar(&probeEnd, "end", "", "end date YYYY-MM-DD (optional)")

	rootCmd.AddCommand(probeCmd)
}
