package investing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const historyPage = `<html><body>
<table>
  <tr><th>Date</th><th>Price</th><th>Open</th></tr>
  <tr><td>Jan 2, 2024</td><td>42.5</td><td>41.9</td></tr>
  <tr><td>Jan 3, 2024</td><td>1,043.25</td><td>42.4</td></tr>
  <tr><td>Jan 3, 2024</td><td>99.9</td><td>0</td></tr>
  <tr><td>Totals</td><td>n/a</td><td></td></tr>
</table>
</body></html>`

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(WithPageURL(srv.URL), WithHTTPClient(srv.Client()))
}

func TestHistory_ParsesTable(t *testing.T) {
	var gotUA string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(historyPage))
	})

	h, err := c.History(context.Background())
	require.NoError(t, err)
	assert.Contains(t, gotUA, "Mozilla", "these pages 403 plain clients")

	assert.Equal(t, 2, h.Len(), "non-date rows are skipped, duplicate dates collapse")

	v, ok := h.Lookup(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, 42.5, v)

	v, ok = h.Lookup(time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, 1043.25, v, "first occurrence of a date wins, thousands separator stripped")

	_, ok = h.Lookup(time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC))
	assert.False(t, ok)
}

func TestHistory_LookupIgnoresTimeOfDay(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(historyPage))
	})

	h, err := c.History(context.Background())
	require.NoError(t, err)

	v, ok := h.Lookup(time.Date(2024, 1, 2, 17, 30, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, 42.5, v)
}

func TestHistory_Non200IsEmptyNotError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	h, err := c.History(context.Background())
	require.NoError(t, err, "the source is best-effort; unavailability is not fatal")
	assert.Equal(t, 0, h.Len())
}

func TestHistory_Points_SortedAscending(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(historyPage))
	})

	h, err := c.History(context.Background())
	require.NoError(t, err)

	pts := h.Points()
	require.Len(t, pts, 2)
	assert.True(t, pts[0].Date.Before(pts[1].Date))
}

func TestHistory_NilReceiverIsEmpty(t *testing.T) {
	var h *History
	_, ok := h.Lookup(time.Now())
	assert.False(t, ok)
	assert.Equal(t, 0, h.Len())
	assert.Nil(t, h.Points())
}
