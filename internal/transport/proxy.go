package transport

import (
	"context"
	"net/http"

	"github.com/sells-group/cds-backfill/internal/resilience"
)

// Passthrough is the last rung: a text-passthrough fetch proxy that accepts
// the original URL appended to a prefix and relays the body unchanged
// (reader-style services work this way).
type Passthrough struct {
	prefix   string
	client   *http.Client
	opts     Options
	limiters *hostLimiters
}

// NewPassthrough creates the proxy strategy. prefix is the proxy base, e.g.
// "https://r.jina.ai/"; the target URL is appended verbatim.
func NewPassthrough(prefix string, opts Options) *Passthrough {
	opts = opts.withDefaults()
	return &Passthrough{
		prefix:   prefix,
		client:   newPooledClient(opts.ConnectTimeout, opts.ReadTimeout),
		opts:     opts,
		limiters: newHostLimiters(opts.RateLimit, opts.RateBurst),
	}
}

func (p *Passthrough) Name() string { return "proxy" }

// Fetch relays the GET through the proxy with per-attempt retry.
func (p *Passthrough) Fetch(ctx context.Context, rawURL string, host string) ([]byte, error) {
	cfg := p.opts.Retry
	cfg.OnRetry = resilience.RetryLogger(p.Name(), host)
	return resilience.DoVal(ctx, cfg, func(ctx context.Context) ([]byte, error) {
		if err := p.limiters.get(host).Wait(ctx); err != nil {
			return nil, err
		}
		return doGet(ctx, p.client, p.prefix+rawURL, "", p.opts.UserAgent)
	})
}
