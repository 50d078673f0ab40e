package pricing

import (
	"errors"
	"math"
	"testing"
)

func TestRecommendNoSamples(t *testing.T) {
	if _, err := Recommend(nil); !errors.Is(err, ErrNoSamples) {
		t.Fatalf("Recommend(nil) error = %v, want ErrNoSamples", err)
	}
}

func TestRecommendSingleSample(t *testing.T) {
	if _, err := Recommend([]int64{100}); !errors.Is(err, ErrNotEnoughSamples) {
		t.Fatalf("Recommend(one price) error = %v, want ErrNotEnoughSamples", err)
	}
}

func TestRecommendBasicRange(t *testing.T) {
	rec, err := Recommend([]int64{10, 20, 30, 40})
	if err != nil {
		t.Fatalf("Recommend() error: %v", err)
	}

	if rec.Count != 4 || rec.OriginalCount != 4 {
		t.Errorf("Count/OriginalCount = %d/%d, want 4/4", rec.Count, rec.OriginalCount)
	}
	if rec.Median != 25 {
		t.Errorf("Median = %d, want 25", rec.Median)
	}
	// Relative spread clamps at 15%: 25 ± 3.75.
	if rec.ConservativeBid != 21 {
		t.Errorf("ConservativeBid = %d, want 21", rec.ConservativeBid)
	}
	if rec.AggressiveBid != 29 {
		t.Errorf("AggressiveBid = %d, want 29", rec.AggressiveBid)
	}
	if rec.Trend.Direction != "flat" {
		t.Errorf("Trend.Direction = %q, want flat (too few samples)", rec.Trend.Direction)
	}
}

func TestRecommendRejectsOutliers(t *testing.T) {
	rec, err := Recommend([]int64{100, 100, 100, 100, 100, 10000})
	if err != nil {
		t.Fatalf("Recommend() error: %v", err)
	}

	if rec.OriginalCount != 6 {
		t.Errorf("OriginalCount = %d, want 6", rec.OriginalCount)
	}
	if rec.Count != 5 {
		t.Errorf("Count = %d, want 5 after outlier rejection", rec.Count)
	}
	if rec.Median != 100 {
		t.Errorf("Median = %d, want 100", rec.Median)
	}
	if rec.AggressiveBid > 200 {
		t.Errorf("AggressiveBid = %d, want <= 2x median", rec.AggressiveBid)
	}
}

func TestRecommendMinimumWidth(t *testing.T) {
	// Identical prices: stdev 0, so the 3% floor and the 2%-of-median
	// minimum width keep the range from collapsing to a point.
	rec, err := Recommend([]int64{100, 100, 100, 100})
	if err != nil {
		t.Fatalf("Recommend() error: %v", err)
	}

	if rec.ConservativeBid >= rec.AggressiveBid {
		t.Errorf("range collapsed: %d >= %d", rec.ConservativeBid, rec.AggressiveBid)
	}
	if rec.ConservativeBid != 97 || rec.AggressiveBid != 103 {
		t.Errorf("range = [%d, %d], want [97, 103]", rec.ConservativeBid, rec.AggressiveBid)
	}
}

func TestRecommendTrendUp(t *testing.T) {
	rec, err := Recommend([]int64{100, 105, 110, 115, 120, 125, 130})
	if err != nil {
		t.Fatalf("Recommend() error: %v", err)
	}

	if rec.Trend.Direction != "up" {
		t.Fatalf("Trend.Direction = %q, want up", rec.Trend.Direction)
	}
	if rec.Trend.N != 7 {
		t.Errorf("Trend.N = %d, want 7", rec.Trend.N)
	}
	// Steady +5 per sale over 7 samples saturates the trend clamp.
	if rec.Trend.TrendPct != 0.25 {
		t.Errorf("Trend.TrendPct = %v, want 0.25", rec.Trend.TrendPct)
	}
	if rec.Median != 115 {
		t.Errorf("Median = %d, want 115", rec.Median)
	}
	// The upward trend lifts the aggressive bid, capped at 2x median.
	if rec.AggressiveBid != 157 {
		t.Errorf("AggressiveBid = %d, want 157", rec.AggressiveBid)
	}
	if rec.AggressiveBid > 2*rec.Median {
		t.Errorf("AggressiveBid = %d exceeds 2x median", rec.AggressiveBid)
	}
}

func TestRecommendTrendDown(t *testing.T) {
	rec, err := Recommend([]int64{130, 125, 120, 115, 110, 105, 100})
	if err != nil {
		t.Fatalf("Recommend() error: %v", err)
	}

	if rec.Trend.Direction != "down" {
		t.Fatalf("Trend.Direction = %q, want down", rec.Trend.Direction)
	}
	if rec.Trend.TrendPct != -0.25 {
		t.Errorf("Trend.TrendPct = %v, want -0.25", rec.Trend.TrendPct)
	}
	// A falling market shifts the whole range below the median.
	if rec.AggressiveBid >= rec.Median {
		t.Errorf("AggressiveBid = %d, want below median %d", rec.AggressiveBid, rec.Median)
	}
	if rec.ConservativeBid < 1 {
		t.Errorf("ConservativeBid = %d, want >= 1", rec.ConservativeBid)
	}
	if rec.ConservativeBid > rec.AggressiveBid {
		t.Errorf("inverted range: [%d, %d]", rec.ConservativeBid, rec.AggressiveBid)
	}
}

func TestRecommendZeroMedian(t *testing.T) {
	rec, err := Recommend([]int64{0, 0})
	if err != nil {
		t.Fatalf("Recommend() error: %v", err)
	}

	if rec.ConservativeBid != 1 {
		t.Errorf("ConservativeBid = %d, want floor of 1", rec.ConservativeBid)
	}
	if rec.AggressiveBid != 5 {
		t.Errorf("AggressiveBid = %d, want 5", rec.AggressiveBid)
	}
}

func TestRecommendInvariants(t *testing.T) {
	inputs := [][]int64{
		{1, 1},
		{5, 10},
		{100, 200, 300},
		{1000, 1000, 1000, 1000, 1000, 1000, 1000, 1000},
		{50, 49, 48, 47, 46, 45, 44, 43, 42, 41},
		{10, 10000, 10, 10, 10, 10, 10, 9},
	}

	for _, prices := range inputs {
		rec, err := Recommend(prices)
		if err != nil {
			t.Fatalf("Recommend(%v) error: %v", prices, err)
		}
		if rec.ConservativeBid < 1 {
			t.Errorf("Recommend(%v): ConservativeBid = %d, want >= 1", prices, rec.ConservativeBid)
		}
		if rec.ConservativeBid > rec.AggressiveBid {
			t.Errorf("Recommend(%v): inverted range [%d, %d]", prices, rec.ConservativeBid, rec.AggressiveBid)
		}
		if rec.Median > 0 && rec.AggressiveBid > 2*rec.Median {
			t.Errorf("Recommend(%v): AggressiveBid = %d exceeds 2x median %d", prices, rec.AggressiveBid, rec.Median)
		}
		if rec.Count > rec.OriginalCount {
			t.Errorf("Recommend(%v): Count %d > OriginalCount %d", prices, rec.Count, rec.OriginalCount)
		}
	}
}

func TestQuartilesExclusiveMethod(t *testing.T) {
	q1, q3, ok := quartiles([]float64{10, 20, 30, 40})
	if !ok {
		t.Fatal("quartiles() not ok")
	}
	if math.Abs(q1-12.5) > 1e-9 {
		t.Errorf("q1 = %v, want 12.5", q1)
	}
	if math.Abs(q3-37.5) > 1e-9 {
		t.Errorf("q3 = %v, want 37.5", q3)
	}
}

func TestMedianEvenOdd(t *testing.T) {
	if got := median([]float64{3, 1, 2}); got != 2 {
		t.Errorf("median odd = %v, want 2", got)
	}
	if got := median([]float64{4, 1, 2, 3}); got != 2.5 {
		t.Errorf("median even = %v, want 2.5", got)
	}
}

func TestWeightedSlopeLinearData(t *testing.T) {
	// A perfect line recovers its slope regardless of the weights.
	got := weightedSlope([]float64{100, 105, 110, 115, 120, 125})
	if math.Abs(got-5) > 1e-9 {
		t.Errorf("weightedSlope = %v, want 5", got)
	}
}
