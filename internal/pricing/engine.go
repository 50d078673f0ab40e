// Package pricing computes bid recommendations from historical sale
// prices.
//
// The algorithm is a pure function of a chronological price sequence:
// outliers are rejected with an IQR fence, the base range comes from
// the median and a clamped relative spread, and a time-weighted trend
// estimate tilts the range when enough samples exist. Every caller
// (CLI, web server, MCP server) shares this one implementation.
package pricing

import (
	"errors"
	"math"
	"sort"
)

var (
	// ErrNoSamples is returned for an empty cohort.
	ErrNoSamples = errors.New("no past sales found for these criteria")
	// ErrNotEnoughSamples is returned when fewer than two numeric
	// samples are available.
	ErrNotEnoughSamples = errors.New("not enough numeric sales for a reliable recommendation")
)

const (
	maxDevPercent = 0.15
	minDevPercent = 0.03
	maxMultiplier = 2.0
	maxTrendPct   = 0.25
	recentWindow  = 20
	minTrendCount = 6
)

// Trend describes the exponentially time-weighted price trend.
type Trend struct {
	Slope     float64 `json:"slope"`
	TrendPct  float64 `json:"trend_pct"`
	Direction string  `json:"direction"` // "up", "down" or "flat"
	N         int     `json:"n"`
}

// Recommendation is the bid range derived from a cohort's price history.
// It is recomputed per request and never persisted.
type Recommendation struct {
	Count           int     `json:"count"`          // samples after outlier cleaning
	OriginalCount   int     `json:"original_count"` // samples examined
	Median          int64   `json:"median"`
	Stdev           float64 `json:"stdev"`
	ConservativeBid int64   `json:"conservative_bid"`
	AggressiveBid   int64   `json:"aggressive_bid"`
	Trend           Trend   `json:"trend"`
}

// Recommend turns a chronologically ordered (oldest to newest) price
// sequence into a bounded bid range. Pure function: no I/O, no side
// effects, safe to call concurrently.
func Recommend(prices []int64) (*Recommendation, error) {
	if len(prices) == 0 {
		return nil, ErrNoSamples
	}

	nums := make([]float64, 0, len(prices))
	for _, p := range prices {
		nums = append(nums, float64(p))
	}
	n := len(nums)
	if n < 2 {
		return nil, ErrNotEnoughSamples
	}

	// Outlier rejection: drop points outside the 1.5-IQR fence, but
	// only keep the cleaned set if it retains at least two points.
	cleaned := nums
	if n >= 4 {
		if q1, q3, ok := quartiles(nums); ok {
			iqr := q3 - q1
			lower := q1 - 1.5*iqr
			upper := q3 + 1.5*iqr
			kept := make([]float64, 0, n)
			for _, p := range nums {
				if p >= lower && p <= upper {
					kept = append(kept, p)
				}
			}
			if len(kept) >= 2 {
				cleaned = kept
			}
		}
	}

	m := len(cleaned)
	med := median(cleaned)
	sd := 0.0
	if m > 1 {
		sd = sampleStdev(cleaned)
	}

	var conservative, aggressive float64
	if med <= 0 {
		baseDev := math.Max(1.0, math.Max(sd, 5.0))
		conservative = math.Max(1.0, med-baseDev)
		aggressive = med + baseDev
	} else {
		pct := sd / med
		pct = math.Max(minDevPercent, math.Min(pct, maxDevPercent))
		conservative = med * (1.0 - pct)
		aggressive = med * (1.0 + pct)

		minFloor := math.Max(1.0, 0.02*med)
		if med-conservative < minFloor {
			conservative = math.Max(1.0, med-minFloor)
		}
		if aggressive-med < minFloor {
			aggressive = med + minFloor
		}
		aggressive = math.Min(aggressive, med*maxMultiplier)
	}

	trend := Trend{Direction: "flat", N: m}
	if m >= minTrendCount {
		slope := weightedSlope(cleaned)
		window := math.Min(recentWindow, float64(m))
		trendPct := 0.0
		if med != 0 {
			trendPct = slope * window / med
		}
		trendPct = math.Max(-maxTrendPct, math.Min(maxTrendPct, trendPct))

		direction := "flat"
		if trendPct > 1e-4 {
			direction = "up"
		} else if trendPct < -1e-4 {
			direction = "down"
		}
		trend = Trend{
			Slope:     round6(slope),
			TrendPct:  round6(trendPct),
			Direction: direction,
			N:         m,
		}

		if trendPct > 0 {
			aggressive = math.Min(aggressive*(1.0+trendPct), med*maxMultiplier)
		} else if trendPct < 0 {
			conservative *= 1.0 + trendPct
			aggressive *= 1.0 + trendPct
			conservative = math.Max(1.0, conservative)
			aggressive = math.Max(aggressive, conservative)
		}
	}

	conservativeBid := int64(math.Max(1, math.Round(conservative)))
	aggressiveBid := int64(math.Round(aggressive))
	if aggressiveBid < conservativeBid {
		aggressiveBid = conservativeBid
	}

	return &Recommendation{
		Count:           m,
		OriginalCount:   n,
		Median:          int64(math.Round(med)),
		Stdev:           round2(sd),
		ConservativeBid: conservativeBid,
		AggressiveBid:   aggressiveBid,
		Trend:           trend,
	}, nil
}

// quartiles computes Q1 and Q3 with exclusive-method interpolation over
// the value set, ignoring chronological order. ok is false when the
// input is too small to interpolate.
func quartiles(data []float64) (q1, q3 float64, ok bool) {
	if len(data) < 2 {
		return 0, 0, false
	}
	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	n := len(sorted)
	cut := func(i int) float64 {
		pos := float64(i) * float64(n+1) / 4.0
		j := int(math.Floor(pos))
		delta := pos - float64(j)
		if j < 1 {
			j, delta = 1, 0
		}
		if j > n-1 {
			j, delta = n-1, 1
		}
		return sorted[j-1] + (sorted[j]-sorted[j-1])*delta
	}
	return cut(1), cut(3), true
}

// median of the values; order does not matter.
func median(data []float64) float64 {
	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2.0
}

// sampleStdev is the n-1 standard deviation.
func sampleStdev(data []float64) float64 {
	n := len(data)
	if n < 2 {
		return 0
	}
	mean := 0.0
	for _, v := range data {
		mean += v
	}
	mean /= float64(n)

	ss := 0.0
	for _, v := range data {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

// weightedSlope fits a linear trend over the chronological index with
// exponential time weights: half the weight decays over the sample
// span, so the most recent sale counts twice as much as the oldest.
func weightedSlope(data []float64) float64 {
	m := len(data)
	decay := math.Log(2.0) / math.Max(1, float64(m-1))

	weights := make([]float64, m)
	wSum := 0.0
	for i := range data {
		weights[i] = math.Exp(decay * float64(i))
		wSum += weights[i]
	}

	xMean, yMean := 0.0, 0.0
	for i, y := range data {
		xMean += weights[i] * float64(i)
		yMean += weights[i] * y
	}
	xMean /= wSum
	yMean /= wSum

	num, den := 0.0, 0.0
	for i, y := range data {
		dx := float64(i) - xMean
		num += weights[i] * dx * (y - yMean)
		den += weights[i] * dx * dx
	}
	if den == 0 {
		return 0
	}
	return num / den
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
