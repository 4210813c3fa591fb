package transport

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/sells-group/cds-backfill/internal/resilience"
)

// Direct fetches with the OS resolver and ordinary TLS verification.
// This is the first rung of the ladder.
type Direct struct {
	client   *http.Client
	opts     Options
	limiters *hostLimiters
}

// NewDirect creates the direct-route strategy. The underlying HTTP client is
// built once and reused for connection pooling.
func NewDirect(opts Options) *Direct {
	opts = opts.withDefaults()
	return &Direct{
		client:   newPooledClient(opts.ConnectTimeout, opts.ReadTimeout),
		opts:     opts,
		limiters: newHostLimiters(opts.RateLimit, opts.RateBurst),
	}
}

func (d *Direct) Name() string { return "direct" }

// Fetch issues the GET with per-attempt retry and backoff.
func (d *Direct) Fetch(ctx context.Context, rawURL string, host string) ([]byte, error) {
	cfg := d.opts.Retry
	cfg.OnRetry = resilience.RetryLogger(d.Name(), host)
	return resilience.DoVal(ctx, cfg, func(ctx context.Context) ([]byte, error) {
		if err := d.limiters.get(host).Wait(ctx); err != nil {
			return nil, err
		}
		return doGet(ctx, d.client, rawURL, "", d.opts.UserAgent)
	})
}

func newPooledClient(connectTimeout, readTimeout time.Duration) *http.Client {
	dialer := &net.Dialer{Timeout: connectTimeout}
	return &http.Client{
		Timeout: readTimeout,
		Transport: &http.Transport{
			DialContext:         dialer.DialContext,
			TLSHandshakeTimeout: connectTimeout,
			MaxIdleConnsPerHost: 10,
			MaxConnsPerHost:     20,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
