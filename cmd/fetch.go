package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/cds-backfill/internal/aggregate"
	"github.com/sells-group/cds-backfill/internal/series"
	"github.com/sells-group/cds-backfill/internal/snapshot"
	"github.com/sells-group/cds-backfill/pkg/investing"
)

var (
	fetchEntity      string
	fetchCurrency    string
	fetchTenorYears  float64
	fetchTenorTol    float64
	fetchAgg         string
	fetchStart       string
	fetchEnd         string
	fetchOut         string
	fetchSecondary   bool
	fetchSnapshotDir string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch disclosures and write the aggregated daily series",
	Long: `Walks the date range one calendar day at a time, pulls that day's
disclosure report, filters it down to the requested CDS reference and writes
one CSV row per day. Days with no usable data come out explicitly absent.

Examples:
  # US sovereign 5Y, weighted by notional
  cds-backfill fetch --start 2024-01-01 --end 2024-03-31 --out us5y.csv

  # Median aggregation with the secondary source filling feed gaps
  cds-backfill fetch --start 2024-01-01 --end 2024-01-31 \
    --agg median --with-secondary --out us5y.csv`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		applyFetchFlagOverrides(cmd)

		start, err := parseDateFlag("start", fetchStart)
		if err != nil {
			return err
		}
		end, err := parseDateFlag("end", fetchEnd)
		if err != nil {
			return err
		}
		if end.Before(start) {
			return eris.Errorf("--end %s is before --start %s", fetchEnd, fetchStart)
		}

		method, err := aggregate.ParseMethod(cfg.Query.Aggregation)
		if err != nil {
			return err
		}

		coverageStart, err := cfg.Feed.CoverageStartDate()
		if err != nil {
			return err
		}

		builder := series.NewBuilder(newDayFetcher(cfg), newFilterParams(cfg), method, coverageStart)

		if fetchSnapshotDir != "" {
			builder = builder.WithSnapshotter(snapshot.NewWriter(fetchSnapshotDir))
		}

		if fetchSecondary || cfg.Secondary.Enabled {
			var opts []investing.Option
			if cfg.Secondary.PageURL != "" {
				opts = append(opts, investing.WithPageURL(cfg.Secondary.PageURL))
			}
			hist, err := investing.NewClient(opts...).History(ctx)
			if err != nil {
				zap.L().Warn("secondary source unavailable, continuing without it", zap.Error(err))
			} else {
				zap.L().Info("secondary history loaded", zap.Int("dates", hist.Len()))
				builder = builder.WithSecondary(hist)
			}
		}

		results, err := builder.Build(ctx, start, end)
		if err != nil {
			// Cancellation mid-run: don't leave a half-written file behind.
			zap.L().Warn("run interrupted, discarding partial series",
				zap.Int("days_done", len(results)),
				zap.Error(err),
			)
			return err
		}

		out, err := os.Create(fetchOut)
		if err != nil {
			return eris.Wrapf(err, "create output %s", fetchOut)
		}
		defer out.Close() //nolint:errcheck

		if err := series.WriteCSV(out, results); err != nil {
			return err
		}

		present := 0
		for _, r := range results {
			if r.HasValue {
				present++
			}
		}
		zap.L().Info("series written",
			zap.String("out", fetchOut),
			zap.Int("days", len(results)),
			zap.Int("days_with_value", present),
		)
		return nil
	},
}

// applyFetchFlagOverrides lets flags win over config.yaml for the query
// parameters.
func applyFetchFlagOverrides(cmd *cobra.Command) {
	if cmd.Flags().Changed("entity") {
		cfg.Query.Entity = fetchEntity
	}
	if cmd.Flags().Changed("currency") {
		cfg.Query.Currency = fetchCurrency
	}
	if cmd.Flags().Changed("tenor-years") {
		cfg.Query.TenorYears = fetchTenorYears
	}
	if cmd.Flags().Changed("tenor-tolerance") {
		cfg.Query.TenorToleranceYears = fetchTenorTol
	}
	if cmd.Flags().Changed("agg") {
		cfg.Query.Aggregation = fetchAgg
	}
}

func init() {
	fetchCmd.Flags().StringVar(&fetchEntity, "entity", "United States of America", "reference entity name")
	fetchCmd.Flags().StringVar(&fetchCurrency, "currency", "USD", "notional currency")
	fetchCmd.Flags().Float64Var(&fetchTenorYears, "tenor-years", 5, "target tenor in years")
	fetchCmd.Flags().Float64Var(&fetchTenorTol, "tenor-tolerance", 1.0, "tenor tolerance in years")
	fetchCmd.Flags().StringVar(&fetchAgg, "agg", "weighted_mean", "daily aggregation: weighted_mean, mean or median")
	fetchCmd.Flags().StringVar(&fetchStart, "start", "", "start date YYYY-MM-DD (inclusive)")
	fetchCmd.Flags().StringVar(&fetchEnd, "end", "", "end date YYYY-MM-DD (inclusive)")
	fetchCmd.Flags().StringVar(&fetchOut, "out", "", "output CSV path")
	fetchCmd.Flags().BoolVar(&fetchSecondary, "with-secondary", false, "fill feed gaps from the secondary historical source")
	fetchCmd.Flags().StringVar(&fetchSnapshotDir, "snapshot-dir", "", "directory for raw per-day payload capture")
	_ = fetchCmd.MarkFlagRequired("start")
	_ = fetchCmd.MarkFlagRequired("end")
	_ = fetchCmd.MarkFlagRequired("out")

	rootCmd.AddCommand(fetchCmd)
}
