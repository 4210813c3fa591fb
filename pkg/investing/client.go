// Package investing scrapes the historical-data table a market-data site
// publishes for a CDS instrument, used as a last-resort fill for days the
// regulatory feed has nothing.
package investing

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DefaultPageURL is the US 5Y CDS historical-data page.
const DefaultPageURL = "https://www.investing.com/rates-bonds/united-states-cds-5-years-usd-historical-data"

// Sites serving these tables tend to 403 plain clients.
const browserUA = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/112.0 Safari/537.36"

// Client fetches the full historical series shown on the page.
type Client interface {
	History(ctx context.Context) (*History, error)
}

// Point is one scraped observation.
type Point struct {
	Date  time.Time
	Value float64
}

// History is a date-keyed view of the scraped series.
type History struct {
	byDate map[time.Time]float64
}

// Lookup returns the value for the exact calendar date.
func (h *History) Lookup(date time.Time) (float64, bool) {
	if h == nil {
		return 0, false
	}
	v, ok := h.byDate[midnightUTC(date)]
	return v, ok
}

// Len returns the number of distinct dates.
func (h *History) Len() int {
	if h == nil {
		return 0
	}
	return len(h.byDate)
}

// Points returns the series sorted by date ascending.
func (h *History) Points() []Point {
	if h == nil {
		return nil
	}
	out := make([]Point, 0, len(h.byDate))
	for d, v := range h.byDate {
		out = append(out, Point{Date: d, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Option configures the client.
type Option func(*httpClient)

// WithPageURL sets a custom page URL (for testing).
func WithPageURL(url string) Option {
	return func(c *httpClient) {
		c.pageURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	pageURL string
	http    *http.Client
}

// NewClient creates a scraping client for the historical-data page.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		pageURL: DefaultPageURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// History fetches and parses the page. A non-200 answer yields an empty
// history rather than an error — the source is best-effort by design.
func (c *httpClient) History(ctx context.Context) (*History, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pageURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "investing: create request")
	}
	req.Header.Set("User-Agent", browserUA)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "investing: fetch page")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		zap.L().Warn("investing: page unavailable",
			zap.Int("status", resp.StatusCode),
		)
		return &History{byDate: map[time.Time]float64{}}, nil
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "investing: parse page")
	}

	return parseTable(doc), nil
}

var dateLayouts = []string{"Jan 2, 2006", "01/02/2006", "2006-01-02"}

// parseTable walks every table row and keeps rows whose first cell parses
// as a date and second as a number. The first occurrence of a date wins.
func parseTable(doc *goquery.Document) *History {
	byDate := make(map[time.Time]float64)
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		date, ok := parseCellDate(strings.TrimSpace(cells.Eq(0).Text()))
		if !ok {
			return
		}
		value, ok := parseCellValue(strings.TrimSpace(cells.Eq(1).Text()))
		if !ok {
			return
		}
		if _, exists := byDate[date]; !exists {
			byDate[date] = value
		}
	})
	zap.L().Debug("investing: parsed history", zap.Int("dates", len(byDate)))
	return &History{byDate: byDate}
}

func parseCellDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return midnightUTC(t), true
		}
	}
	return time.Time{}, false
}

func parseCellValue(s string) (float64, bool) {
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, "%")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func midnightUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
