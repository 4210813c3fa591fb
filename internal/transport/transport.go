// Package transport fetches URLs from the disclosure feed through a ladder
// of fallback routes: direct HTTPS, then DNS-over-HTTPS with IP-pinned
// requests, then an optional text-passthrough proxy.
package transport

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/cds-backfill/internal/resilience"
)

// Strategy is one route for fetching a URL. host is the logical hostname the
// request is for; strategies that bypass DNS use it for the Host header and
// TLS SNI.
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, rawURL string, host string) ([]byte, error)
}

// Options configures the transport strategies.
type Options struct {
	UserAgent      string
	ConnectTimeout time.Duration // default 10s
	ReadTimeout    time.Duration // per-attempt total, default 90s
	Retry          resilience.RetryConfig
	RateLimit      rate.Limit // per-host request rate, default 2/s
	RateBurst      int
}

func (o Options) withDefaults() Options {
	if o.UserAgent == "" {
		o.UserAgent = "cds-backfill/1.0"
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 10 * time.Second
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = 90 * time.Second
	}
	if o.RateLimit <= 0 {
		o.RateLimit = 2
	}
	if o.RateBurst <= 0 {
		o.RateBurst = 2
	}
	return o
}

// Ladder tries strategies in priority order, returning the first success.
// A definitive no-data answer from any strategy stops the whole ladder:
// the day is empty, not unreachable.
type Ladder struct {
	strategies []Strategy
}

// NewLadder creates a Ladder over the given strategies, tried in order.
func NewLadder(strategies ...Strategy) *Ladder {
	return &Ladder{strategies: strategies}
}

// Fetch runs the ladder for a single URL.
func (l *Ladder) Fetch(ctx context.Context, rawURL string, host string) ([]byte, error) {
	var lastErr error
	for _, s := range l.strategies {
		body, err := s.Fetch(ctx, rawURL, host)
		if err == nil {
			return body, nil
		}
		if resilience.IsNoData(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, err
		}
		zap.L().Debug("transport: strategy failed, trying next",
			zap.String("strategy", s.Name()),
			zap.String("url", rawURL),
			zap.Error(err),
		)
		lastErr = err
	}
	if lastErr != nil {
		return nil, eris.Wrap(lastErr, "transport: all routes exhausted")
	}
	return nil, eris.Errorf("transport: no routes configured for %s", rawURL)
}

// hostLimiters hands out one rate limiter per logical host, shared across
// strategies so fallback routes do not multiply upstream load.
type hostLimiters struct {
	mu    sync.Mutex
	m     map[string]*rate.Limiter
	limit rate.Limit
	burst int
}

func newHostLimiters(limit rate.Limit, burst int) *hostLimiters {
	return &hostLimiters{
		m:     make(map[string]*rate.Limiter),
		limit: limit,
		burst: burst,
	}
}

func (h *hostLimiters) get(host string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()
	lim, ok := h.m[host]
	if !ok {
		lim = rate.NewLimiter(h.limit, h.burst)
		h.m[host] = lim
	}
	return lim
}

// doGet issues one GET and classifies the response. 404 and a 2xx empty body
// are definitive no-data; 429/5xx and network failures are transient.
func doGet(ctx context.Context, client *http.Client, rawURL, hostHeader, userAgent string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "transport: create request")
	}
	req.Header.Set("User-Agent", userAgent)
	if hostHeader != "" {
		// Preserve virtual-host routing when the URL carries an IP literal.
		req.Host = hostHeader
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(err, 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusNotFound {
		return nil, eris.Wrapf(resilience.ErrNoData, "http 404 from %s", rawURL)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := eris.Errorf("http %d from %s", resp.StatusCode, rawURL)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		// Unexpected but not known-terminal; the spec treats any
		// non-2xx/non-404 as retryable.
		return nil, resilience.NewTransientError(err, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "transport: read body"), resp.StatusCode)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, eris.Wrapf(resilience.ErrNoData, "empty body from %s", rawURL)
	}
	return body, nil
}
