package sbsdr

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/cds-backfill/internal/resilience"
)

// Ladder is the transport surface the fetcher drives; satisfied by
// *transport.Ladder.
type Ladder interface {
	Fetch(ctx context.Context, rawURL string, host string) ([]byte, error)
}

// FetcherConfig names the feed endpoints. Every candidate host shares the
// same path and query contract.
type FetcherConfig struct {
	// Hosts in priority order; the first is the primary, the rest mirrors.
	Hosts []string
	// Path of the daily report endpoint.
	Path string
	// DateParam is the query parameter carrying the ISO date.
	DateParam string
}

// DefaultFetcherConfig points at the ICE Trade Vault public SBSDR report.
// The URL pattern is vendor-controlled and may change; fix it here.
func DefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{
		Hosts:     []string{"regreporting.theice.com"},
		Path:      "/trade-reporting/api/v1/public-data/sbs-transaction-csv",
		DateParam: "tradeDate",
	}
}

// Fetcher retrieves one day's raw payload.
type Fetcher struct {
	cfg    FetcherConfig
	ladder Ladder
}

// NewFetcher creates a day fetcher over the given transport ladder.
func NewFetcher(cfg FetcherConfig, ladder Ladder) *Fetcher {
	return &Fetcher{cfg: cfg, ladder: ladder}
}

// DayURL builds the query URL for one host and date.
func (f *Fetcher) DayURL(host string, date time.Time) string {
	return fmt.Sprintf("https://%s%s?%s=%s",
		host, f.cfg.Path, f.cfg.DateParam, date.Format("2006-01-02"))
}

// FetchDay tries each candidate host in order and returns the first
// non-empty payload. Absence — every host empty or unreachable after the
// full ladder — is a value, never an error; only context cancellation
// propagates as an error.
func (f *Fetcher) FetchDay(ctx context.Context, date time.Time) (DayPayload, error) {
	for rank, host := range f.cfg.Hosts {
		body, err := f.ladder.Fetch(ctx, f.DayURL(host, date), host)
		if err == nil {
			return DayPayload{
				Date:     date,
				Body:     body,
				Host:     host,
				HostRank: rank,
			}, nil
		}
		if ctx.Err() != nil {
			return AbsentPayload(date), ctx.Err()
		}
		if resilience.IsNoData(err) {
			zap.L().Debug("sbsdr: host has no data for day",
				zap.String("host", host),
				zap.String("date", date.Format("2006-01-02")),
			)
			continue
		}
		// Fatal-for-the-day: routes exhausted on this host. Keep going —
		// a mirror may still have the day.
		zap.L().Warn("sbsdr: host unreachable for day",
			zap.String("host", host),
			zap.String("date", date.Format("2006-01-02")),
			zap.Error(err),
		)
	}
	return AbsentPayload(date), nil
}
