package filter

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sells-group/cds-backfill/internal/schema"
)

// QuoteKind says which field a quote's value came from.
type QuoteKind string

const (
	QuoteSpread QuoteKind = "explicit_spread"
	QuotePrice  QuoteKind = "raw_price"
	QuoteCoupon QuoteKind = "derived_coupon"
)

// Quote is one usable print: a finite value in basis points and a
// non-negative aggregation weight.
type Quote struct {
	Value  float64
	Kind   QuoteKind
	Weight float64
}

// Params are the selection predicates for one run.
type Params struct {
	Aliases        AliasSet
	Currency       string
	TenorYears     float64
	TenorTolerance float64 // default 1.0 when zero
}

const daysPerYear = 365.25

// Apply filters the day's records down to quotes. Predicates are
// conjunctive; a missing column never excludes a record except for the
// entity, which is required: if no record in the whole payload resolved an
// entity column, the day yields nothing rather than a guess.
func Apply(records []schema.Record, p Params) []Quote {
	if p.TenorTolerance <= 0 {
		p.TenorTolerance = 1.0
	}

	if !anyEntityResolved(records) {
		return nil
	}

	var quotes []Quote
	for _, rec := range records {
		if !looksLikeCDS(rec) {
			continue
		}
		if !rec.Entity.OK || !p.Aliases.Matches(rec.Entity.Value) {
			continue
		}
		if rec.Currency.OK && p.Currency != "" &&
			!strings.EqualFold(strings.TrimSpace(rec.Currency.Value), p.Currency) {
			continue
		}
		if !tenorAcceptable(rec, p.TenorYears, p.TenorTolerance) {
			continue
		}
		if q, ok := selectQuote(rec); ok {
			quotes = append(quotes, q)
		}
	}
	return quotes
}

func anyEntityResolved(records []schema.Record) bool {
	for _, rec := range records {
		if rec.Entity.OK {
			return true
		}
	}
	return false
}

// looksLikeCDS requires a credit-default-swap indicator when the product
// column exists; its absence does not exclude the record.
func looksLikeCDS(rec schema.Record) bool {
	if !rec.AssetClass.OK {
		return true
	}
	v := strings.ToLower(rec.AssetClass.Value)
	return strings.Contains(v, "cds") || strings.Contains(v, "credit default swap") ||
		strings.Contains(v, "credit")
}

var tenorToken = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:y(?:ea)?r?s?)?\b`)

// tenorAcceptable checks an explicit tenor token first, then falls back to
// the effective/maturity span. With neither signal the record is kept — the
// tenor cannot be disproved.
func tenorAcceptable(rec schema.Record, years, tol float64) bool {
	if rec.Tenor.OK {
		return tenorTokenMatches(rec.Tenor.Value, years)
	}

	eff, effOK := parseFeedDate(rec.EffectiveDate)
	mat, matOK := parseFeedDate(rec.MaturityDate)
	if !effOK || !matOK {
		return true
	}
	days := mat.Sub(eff).Hours() / 24
	if days <= 0 {
		return false
	}
	return math.Abs(days/daysPerYear-years) <= tol
}

// tenorTokenMatches accepts "5Y", "5 YR", "5 years" or a bare "5" against
// the requested tenor.
func tenorTokenMatches(s string, years float64) bool {
	m := tenorToken.FindStringSubmatch(strings.ToLower(s))
	if m == nil {
		return false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return false
	}
	return v == years
}

// parseFeedDate handles ISO dates with or without a time suffix.
func parseFeedDate(f schema.Field) (time.Time, bool) {
	if !f.OK {
		return time.Time{}, false
	}
	v := strings.TrimSpace(f.Value)
	if i := strings.IndexByte(v, 'T'); i > 0 {
		v = v[:i]
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// selectQuote picks the best available numeric quote: an explicit spread,
// then a price (unless it is percent-typed, which cannot be converted
// safely), then a coupon under the decimal-fraction rule. Records with no
// usable number contribute nothing.
func selectQuote(rec schema.Record) (Quote, bool) {
	weight := quoteWeight(rec)

	if rec.Spread.OK {
		if v, ok := schema.CoerceNumber(rec.Spread.Value); ok {
			return Quote{Value: v, Kind: QuoteSpread, Weight: weight}, true
		}
	}

	if rec.Price.OK {
		if v, ok := schema.CoerceNumber(rec.Price.Value); ok {
			unit := schema.UnitUnknown
			if rec.PriceUnit.OK {
				unit = schema.DetectUnit(rec.PriceUnit.Value)
			}
			// Percent-typed prices (upfront quotes) have no reliable
			// spread conversion; drop rather than guess.
			if unit != schema.UnitPercent {
				return Quote{Value: v, Kind: QuotePrice, Weight: weight}, true
			}
		}
	}

	if rec.Coupon.OK {
		if v, ok := schema.CoerceNumber(rec.Coupon.Value); ok {
			if bps, ok := schema.FractionToBps(v); ok {
				return Quote{Value: bps, Kind: QuoteCoupon, Weight: weight}, true
			}
			// Already at bps scale (e.g. a running coupon of 500).
			if v >= 1 {
				return Quote{Value: v, Kind: QuoteCoupon, Weight: weight}, true
			}
		}
	}

	return Quote{}, false
}

func quoteWeight(rec schema.Record) float64 {
	if rec.Notional.OK {
		if v, ok := schema.CoerceNumber(rec.Notional.Value); ok && v > 0 {
			return v
		}
	}
	return 1.0
}
