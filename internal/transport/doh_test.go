package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoHResolver_ParsesARecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/dns-json", r.Header.Get("Accept"))
		assert.Equal(t, "feed.example.com", r.URL.Query().Get("name"))
		assert.Equal(t, "A", r.URL.Query().Get("type"))
		w.Write([]byte(`{"Status":0,"Answer":[
			{"type":1,"data":"93.184.216.34"},
			{"type":5,"data":"alias.example.net."},
			{"type":1,"data":"93.184.216.35"}
		]}`))
	}))
	defer srv.Close()

	r := NewDoHResolver([]string{srv.URL}, 2*time.Second)
	ips, err := r.Resolve(context.Background(), "feed.example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"93.184.216.34", "93.184.216.35"}, ips, "CNAME answers must be skipped")
}

func TestDoHResolver_FallsThroughToSecondEndpoint(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer bad.Close()

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Status":0,"Answer":[{"type":1,"data":"10.0.0.1"}]}`))
	}))
	defer good.Close()

	r := NewDoHResolver([]string{bad.URL, good.URL}, 2*time.Second)
	ips, err := r.Resolve(context.Background(), "feed.example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.1"}, ips)
}

func TestDoHResolver_AllEndpointsFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Status":3,"Answer":[]}`))
	}))
	defer srv.Close()

	r := NewDoHResolver([]string{srv.URL, srv.URL}, 2*time.Second)
	_, err := r.Resolve(context.Background(), "feed.example.com")
	require.Error(t, err)
}

func TestDoHResolver_DefaultEndpoints(t *testing.T) {
	r := NewDoHResolver(nil, 0)
	require.Len(t, r.endpoints, 2, "need at least two independent resolvers")
}

func TestPinned_FetchesViaResolvedIP(t *testing.T) {
	// TLS server standing in for the resolved IP; the pinned client skips
	// verification exactly as it would for a real IP literal.
	var gotHost string
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHost = r.Host
		w.Write([]byte("pinned-body"))
	}))
	defer srv.Close()

	srvURL, err := url.Parse(srv.URL)
	require.NoError(t, err)
	ip, port, ok := strings.Cut(srvURL.Host, ":")
	require.True(t, ok)

	doh := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Status":0,"Answer":[{"type":1,"data":"` + ip + `"}]}`))
	}))
	defer doh.Close()

	p := NewPinned(NewDoHResolver([]string{doh.URL}, 2*time.Second), fastOpts())
	body, err := p.Fetch(context.Background(),
		"https://feed.example.com:"+port+"/report?tradeDate=2024-01-02",
		"feed.example.com")
	require.NoError(t, err)
	assert.Equal(t, "pinned-body", string(body))
	assert.Equal(t, "feed.example.com", gotHost, "Host header must carry the logical hostname")
}

func TestPinned_ResolutionFailure(t *testing.T) {
	doh := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Status":3}`))
	}))
	defer doh.Close()

	p := NewPinned(NewDoHResolver([]string{doh.URL}, 2*time.Second), fastOpts())
	_, err := p.Fetch(context.Background(), "https://feed.example.com/report", "feed.example.com")
	require.Error(t, err)
}
