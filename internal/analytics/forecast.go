package analytics

import (
	"math"
	"sort"
	"time"
)

const (
	hoursPerDay = 24.0
	// rmseHighConfidenceCeiling bounds the fit residual below which a
	// well-sampled series earns high confidence.
	rmseHighConfidenceCeiling = 5.0
)

// Sample is one (timestamp, value) observation in a trend series.
type Sample struct {
	At    time.Time `json:"timestamp"`
	Value float64   `json:"value"`
}

// TrendSeries is an ordered sequence of samples covering a bounded
// historical window. Timestamps are kept non-decreasing; Append restores
// the order for out-of-order arrivals.
type TrendSeries struct {
	samples []Sample
}

// NewTrendSeries builds a series from samples, sorting them by timestamp.
func NewTrendSeries(samples ...Sample) TrendSeries {
	s := TrendSeries{samples: append([]Sample(nil), samples...)}
	sort.SliceStable(s.samples, func(i, j int) bool {
		return s.samples[i].At.Before(s.samples[j].At)
	})
	return s
}

// Append adds a sample, keeping timestamps non-decreasing.
func (s *TrendSeries) Append(sample Sample) {
	n := len(s.samples)
	if n == 0 || !sample.At.Before(s.samples[n-1].At) {
		s.samples = append(s.samples, sample)
		return
	}
	idx := sort.Search(n, func(i int) bool { return s.samples[i].At.After(sample.At) })
	s.samples = append(s.samples, Sample{})
	copy(s.samples[idx+1:], s.samples[idx:])
	s.samples[idx] = sample
}

// DropBefore discards samples older than the cutoff, bounding the window.
func (s *TrendSeries) DropBefore(cutoff time.Time) {
	idx := sort.Search(len(s.samples), func(i int) bool {
		return !s.samples[i].At.Before(cutoff)
	})
	if idx > 0 {
		s.samples = append([]Sample(nil), s.samples[idx:]...)
	}
}

// Samples returns the ordered observations.
func (s TrendSeries) Samples() []Sample { return s.samples }

// Len returns the number of observations.
func (s TrendSeries) Len() int { return len(s.samples) }

// Values returns the observation values in timestamp order.
func (s TrendSeries) Values() []float64 {
	out := make([]float64, len(s.samples))
	for i, sample := range s.samples {
		out[i] = sample.Value
	}
	return out
}

// Latest returns the most recent sample, if any.
func (s TrendSeries) Latest() (Sample, bool) {
	if len(s.samples) == 0 {
		return Sample{}, false
	}
	return s.samples[len(s.samples)-1], true
}

// Confidence qualifies a forecast by sample count and fit residual.
type Confidence string

const (
	ConfidenceNone   Confidence = "none"
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Priority tiers a forecast by how soon the projected crossing lands.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ForecastResult is the outcome of fitting a linear trend to a series.
type ForecastResult struct {
	SlopePerDay      float64    `json:"slope_per_day"`
	WeeklyGrowth     float64    `json:"growth_per_week"`
	Intercept        float64    `json:"intercept"`
	ApproachingLimit bool       `json:"approaching_limit"`
	ExhaustionDate   *time.Time `json:"exhaustion_date,omitempty"`
	Confidence       Confidence `json:"confidence"`
	Priority         Priority   `json:"priority"`
	Samples          int        `json:"samples"`
}

// Forecast fits an ordinary least-squares line value = a + b*t over the
// series, t in days since the first sample, and extrapolates the date at
// which the fitted line crosses target. Fewer than two distinct timestamps
// degrade to confidence "none" with slope and exhaustion omitted. A
// non-positive slope means the series is not approaching the limit.
//
// Priority tiers by the crossing against the horizon: within
// horizonDays is high, within twice that is medium, otherwise low.
func Forecast(series TrendSeries, target float64, horizonDays int, now time.Time) ForecastResult {
	samples := series.Samples()
	result := ForecastResult{
		Samples:    len(samples),
		Confidence: ConfidenceNone,
		Priority:   PriorityLow,
	}

	if len(samples) < 2 || !hasDistinctTimestamps(samples) {
		return result
	}

	first := samples[0].At
	xs := make([]float64, len(samples))
	ys := make([]float64, len(samples))
	for i, s := range samples {
		xs[i] = s.At.Sub(first).Hours() / hoursPerDay
		ys[i] = s.Value
	}

	xMean := Mean(xs)
	yMean := Mean(ys)
	numerator := 0.0
	denominator := 0.0
	for i := range xs {
		numerator += (xs[i] - xMean) * (ys[i] - yMean)
		denominator += (xs[i] - xMean) * (xs[i] - xMean)
	}
	if denominator == 0 {
		return result
	}

	slope := numerator / denominator
	intercept := yMean - slope*xMean

	result.SlopePerDay = slope
	result.WeeklyGrowth = Round2(slope * 7)
	result.Intercept = intercept
	result.Confidence = fitConfidence(xs, ys, slope, intercept)

	if slope <= 0 {
		return result
	}

	result.ApproachingLimit = true
	crossingDays := (target - intercept) / slope
	crossing := first.Add(time.Duration(crossingDays * float64(hoursPerDay) * float64(time.Hour)))
	result.ExhaustionDate = &crossing

	daysOut := crossing.Sub(now).Hours() / hoursPerDay
	switch {
	case daysOut <= float64(horizonDays):
		result.Priority = PriorityHigh
	case daysOut <= float64(2*horizonDays):
		result.Priority = PriorityMedium
	default:
		result.Priority = PriorityLow
	}
	return result
}

func hasDistinctTimestamps(samples []Sample) bool {
	for i := 1; i < len(samples); i++ {
		if !samples[i].At.Equal(samples[0].At) {
			return true
		}
	}
	return false
}

// fitConfidence qualifies the regression: sample count dominates, the
// residual decides between medium and high.
func fitConfidence(xs, ys []float64, slope, intercept float64) Confidence {
	n := len(xs)
	if n < 5 {
		return ConfidenceLow
	}

	sumSquares := 0.0
	for i := range xs {
		residual := ys[i] - (intercept + slope*xs[i])
		sumSquares += residual * residual
	}
	rmse := math.Sqrt(sumSquares / float64(n))

	if n >= 10 && rmse <= rmseHighConfidenceCeiling {
		return ConfidenceHigh
	}
	return ConfidenceMedium
}
