package main

import (
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/cds-backfill/internal/config"
	"github.com/sells-group/cds-backfill/internal/filter"
	"github.com/sells-group/cds-backfill/internal/resilience"
	"github.com/sells-group/cds-backfill/internal/sbsdr"
	"github.com/sells-group/cds-backfill/internal/transport"
)

// newLadder assembles the fallback routes: direct, then DoH+IP-pinned, then
// the passthrough proxy when a prefix is configured.
func newLadder(tc config.TransportConfig) *transport.Ladder {
	opts := transport.Options{
		UserAgent:      tc.UserAgent,
		ConnectTimeout: time.Duration(tc.ConnectTimeoutSecs) * time.Second,
		ReadTimeout:    time.Duration(tc.ReadTimeoutSecs) * time.Second,
		Retry: resilience.RetryConfig{
			MaxAttempts:    tc.MaxAttempts,
			InitialBackoff: time.Duration(tc.InitialBackoffSecs) * time.Second,
			MaxBackoff:     time.Duration(tc.MaxBackoffSecs) * time.Second,
		},
		RateLimit: rate.Limit(tc.RatePerSec),
		RateBurst: tc.RateBurst,
	}

	resolver := transport.NewDoHResolver(tc.DoHEndpoints, opts.ConnectTimeout)
	strategies := []transport.Strategy{
		transport.NewDirect(opts),
		transport.NewPinned(resolver, opts),
	}
	if tc.ProxyPrefix != "" {
		strategies = append(strategies, transport.NewPassthrough(tc.ProxyPrefix, opts))
	}
	return transport.NewLadder(strategies...)
}

// newDayFetcher wires the transport ladder under the day fetcher.
func newDayFetcher(c *config.Config) *sbsdr.Fetcher {
	return sbsdr.NewFetcher(sbsdr.FetcherConfig{
		Hosts:     c.Feed.Hosts,
		Path:      c.Feed.Path,
		DateParam: c.Feed.DateParam,
	}, newLadder(c.Transport))
}

// newFilterParams resolves the entity alias set once for the run.
func newFilterParams(c *config.Config) filter.Params {
	table := filter.BuiltinAliasTable()
	if c.Aliases.Path != "" {
		loaded, err := filter.LoadAliasTable(c.Aliases.Path)
		if err != nil {
			zap.L().Warn("alias table unreadable, using builtin",
				zap.String("path", c.Aliases.Path),
				zap.Error(err),
			)
		} else {
			for k, v := range loaded {
				table[k] = append(table[k], v...)
			}
		}
	}

	aliases := filter.ResolveAliases(c.Query.Entity, table)
	zap.L().Debug("resolved entity aliases",
		zap.String("entity", c.Query.Entity),
		zap.Strings("aliases", aliases.Names()),
	)

	return filter.Params{
		Aliases:        aliases,
		Currency:       c.Query.Currency,
		TenorYears:     c.Query.TenorYears,
		TenorTolerance: c.Query.TenorToleranceYears,
	}
}

func parseDateFlag(name, value string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "invalid --%s %q (want YYYY-MM-DD)", name, value)
	}
	return t, nil
}
