package aggregate

import (
	"testing"

	"github.com/sells-group/cds-backfill/internal/filter"
)

func spread(v, w float64) filter.Quote {
	return filter.Quote{Value: v, Kind: filter.QuoteSpread, Weight: w}
}

func TestReduce_WeightedMean(t *testing.T) {
	quotes := []filter.Quote{spread(10, 1), spread(20, 3)}

	res, ok := Reduce(quotes, WeightedMean)
	if !ok {
		t.Fatal("expected a result")
	}
	if res.Value != 17.5 {
		t.Errorf("weighted mean = %v, want 17.5", res.Value)
	}
	if res.Count != 2 {
		t.Errorf("count = %d, want 2", res.Count)
	}
	if res.WeightSum != 4 {
		t.Errorf("weight sum = %v, want 4", res.WeightSum)
	}
}

func TestReduce_WeightedMeanZeroWeightsFallsBackToMean(t *testing.T) {
	quotes := []filter.Quote{spread(10, 0), spread(30, 0)}

	res, ok := Reduce(quotes, WeightedMean)
	if !ok {
		t.Fatal("expected a result")
	}
	if res.Value != 20 {
		t.Errorf("value = %v, want unweighted mean 20", res.Value)
	}
}

func TestReduce_Mean(t *testing.T) {
	quotes := []filter.Quote{spread(10, 5), spread(20, 1), spread(60, 1)}

	res, ok := Reduce(quotes, Mean)
	if !ok {
		t.Fatal("expected a result")
	}
	if res.Value != 30 {
		t.Errorf("mean = %v, want 30 (weights ignored)", res.Value)
	}
}

func TestReduce_MedianOdd(t *testing.T) {
	quotes := []filter.Quote{spread(40, 1), spread(10, 1), spread(20, 1)}

	res, _ := Reduce(quotes, Median)
	if res.Value != 20 {
		t.Errorf("median = %v, want 20", res.Value)
	}
}

func TestReduce_MedianEven(t *testing.T) {
	quotes := []filter.Quote{spread(10, 1), spread(40, 1), spread(20, 1), spread(30, 1)}

	res, _ := Reduce(quotes, Median)
	if res.Value != 25 {
		t.Errorf("median = %v, want 25 (average of middle pair)", res.Value)
	}
}

func TestReduce_EmptyIsAbsent(t *testing.T) {
	if _, ok := Reduce(nil, WeightedMean); ok {
		t.Error("empty input must not produce a value")
	}
}

func TestReduce_SingleQuote(t *testing.T) {
	res, ok := Reduce([]filter.Quote{spread(42.5, 1e6)}, WeightedMean)
	if !ok || res.Value != 42.5 || res.Count != 1 {
		t.Errorf("got (%+v, %v), want the quote passed through", res, ok)
	}
}

func TestReduce_ModalKind(t *testing.T) {
	quotes := []filter.Quote{
		{Value: 1, Kind: filter.QuoteCoupon, Weight: 1},
		{Value: 2, Kind: filter.QuoteCoupon, Weight: 1},
		{Value: 3, Kind: filter.QuotePrice, Weight: 1},
	}
	res, _ := Reduce(quotes, Mean)
	if res.Kind != filter.QuoteCoupon {
		t.Errorf("kind = %q, want the majority kind", res.Kind)
	}

	// Ties resolve by preference order: spread beats price beats coupon.
	quotes = []filter.Quote{
		{Value: 1, Kind: filter.QuoteCoupon, Weight: 1},
		{Value: 2, Kind: filter.QuoteSpread, Weight: 1},
	}
	res, _ = Reduce(quotes, Mean)
	if res.Kind != filter.QuoteSpread {
		t.Errorf("kind = %q, want spread on ties", res.Kind)
	}
}

func TestParseMethod(t *testing.T) {
	for _, valid := range []string{"weighted_mean", "mean", "median"} {
		m, err := ParseMethod(valid)
		if err != nil {
			t.Errorf("ParseMethod(%q) error: %v", valid, err)
		}
		if string(m) != valid {
			t.Errorf("ParseMethod(%q) = %q", valid, m)
		}
	}
	if _, err := ParseMethod("p95"); err == nil {
		t.Error("unknown method must be rejected")
	}
}
