// Package aggregate collapses one day's filtered quotes into a single
// representative value.
package aggregate

import (
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/cds-backfill/internal/filter"
)

// Method is the daily reduction statistic.
type Method string

const (
	WeightedMean Method = "weighted_mean"
	Mean         Method = "mean"
	Median       Method = "median"
)

// ParseMethod validates a method name from caller input.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case WeightedMean, Mean, Median:
		return Method(s), nil
	default:
		return "", eris.Errorf("aggregate: unknown method %q (want weighted_mean, mean or median)", s)
	}
}

// Result is the reduced day.
type Result struct {
	Value     float64
	Count     int
	WeightSum float64
	// Kind is the modal quote kind, for reporting which field family the
	// day's value mostly came from.
	Kind filter.QuoteKind
}

// Reduce computes the daily statistic. Empty input yields ok=false — an
// absent day is a state, never a zero. A weighted mean over all-zero
// weights falls back to the unweighted mean instead of dividing by zero.
func Reduce(quotes []filter.Quote, m Method) (Result, bool) {
	if len(quotes) == 0 {
		return Result{}, false
	}

	res := Result{
		Count: len(quotes),
		Kind:  modalKind(quotes),
	}
	for _, q := range quotes {
		res.WeightSum += q.Weight
	}

	switch m {
	case WeightedMean:
		if res.WeightSum > 0 {
			var sum float64
			for _, q := range quotes {
				sum += q.Value * q.Weight
			}
			res.Value = sum / res.WeightSum
		} else {
			res.Value = mean(quotes)
		}
	case Median:
		res.Value = median(quotes)
	default:
		res.Value = mean(quotes)
	}

	return res, true
}

func mean(quotes []filter.Quote) float64 {
	var sum float64
	for _, q := range quotes {
		sum += q.Value
	}
	return sum / float64(len(quotes))
}

func median(quotes []filter.Quote) float64 {
	vals := make([]float64, len(quotes))
	for i, q := range quotes {
		vals[i] = q.Value
	}
	sort.Float64s(vals)
	n := len(vals)
	if n%2 == 1 {
		return vals[n/2]
	}
	return (vals[n/2-1] + vals[n/2]) / 2
}

func modalKind(quotes []filter.Quote) filter.QuoteKind {
	counts := make(map[filter.QuoteKind]int)
	for _, q := range quotes {
		counts[q.Kind]++
	}
	var best filter.QuoteKind
	bestN := -1
	// Stable preference order breaks ties deterministically.
	for _, k := range []filter.QuoteKind{filter.QuoteSpread, filter.QuotePrice, filter.QuoteCoupon} {
		if counts[k] > bestN {
			best, bestN = k, counts[k]
		}
	}
	return best
}
