package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DoHResolver resolves A records through public DNS-over-HTTPS JSON
// endpoints, for environments where the local resolver is broken or
// filtered. Endpoints are tried in order; the first non-empty answer wins.
type DoHResolver struct {
	endpoints []string
	client    *http.Client
}

// DefaultDoHEndpoints are two independent public resolvers speaking the
// DNS JSON API.
func DefaultDoHEndpoints() []string {
	return []string{
		"https://dns.google/resolve",
		"https://cloudflare-dns.com/dns-query",
	}
}

// NewDoHResolver creates a resolver over the given JSON API endpoints.
// If endpoints is empty, DefaultDoHEndpoints is used.
func NewDoHResolver(endpoints []string, timeout time.Duration) *DoHResolver {
	if len(endpoints) == 0 {
		endpoints = DefaultDoHEndpoints()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &DoHResolver{
		endpoints: endpoints,
		client:    &http.Client{Timeout: timeout},
	}
}

type dohAnswer struct {
	Type int    `json:"type"`
	Data string `json:"data"`
}

type dohResponse struct {
	Status int         `json:"Status"`
	Answer []dohAnswer `json:"Answer"`
}

// Resolve returns the IPv4 addresses for host, or an error if every
// endpoint fails or answers empty.
func (r *DoHResolver) Resolve(ctx context.Context, host string) ([]string, error) {
	var lastErr error
	for _, ep := range r.endpoints {
		ips, err := r.resolveVia(ctx, ep, host)
		if err != nil {
			zap.L().Debug("doh: endpoint failed",
				zap.String("endpoint", ep),
				zap.String("host", host),
				zap.Error(err),
			)
			lastErr = err
			continue
		}
		if len(ips) > 0 {
			return ips, nil
		}
		lastErr = eris.Errorf("doh: no A records for %s via %s", host, ep)
	}
	return nil, eris.Wrap(lastErr, "doh: all endpoints failed")
}

func (r *DoHResolver) resolveVia(ctx context.Context, endpoint, host string) ([]string, error) {
	u := fmt.Sprintf("%s?name=%s&type=A", endpoint, host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, eris.Wrap(err, "doh: create request")
	}
	// Cloudflare requires this; Google tolerates it.
	req.Header.Set("Accept", "application/dns-json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "doh: query")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("doh: http %d from %s", resp.StatusCode, endpoint)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "doh: read body")
	}

	var parsed dohResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "doh: decode response")
	}

	var ips []string
	for _, a := range parsed.Answer {
		if a.Type == 1 && a.Data != "" { // type 1 = A record
			ips = append(ips, a.Data)
		}
	}
	return ips, nil
}
