package analytics

import (
	"math"
	"testing"
)

func TestMean(t *testing.T) {
	if got := Mean(nil); got != 0 {
		t.Errorf("Expected mean of empty slice to be 0, got %f", got)
	}
	if got := Mean([]float64{2, 4, 6}); got != 4 {
		t.Errorf("Expected mean 4, got %f", got)
	}
}

func TestStdDev(t *testing.T) {
	if got := StdDev([]float64{42}); got != 0 {
		t.Errorf("Expected stddev of single value to be 0, got %f", got)
	}
	// Population stddev of [2, 4, 4, 4, 5, 5, 7, 9] is exactly 2.
	got := StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if math.Abs(got-2) > 1e-9 {
		t.Errorf("Expected stddev 2, got %f", got)
	}
}

func TestMedian(t *testing.T) {
	if got := Median([]float64{3, 1, 2}); got != 2 {
		t.Errorf("Expected median 2, got %f", got)
	}
	if got := Median([]float64{4, 1, 3, 2}); got != 2.5 {
		t.Errorf("Expected median 2.5, got %f", got)
	}

	// Median must not reorder the input.
	values := []float64{9, 1, 5}
	Median(values)
	if values[0] != 9 || values[1] != 1 || values[2] != 5 {
		t.Errorf("Expected input untouched, got %v", values)
	}
}

func TestClamp(t *testing.T) {
	cases := []struct {
		v, lo, hi, want float64
	}{
		{-5, 0, 100, 0},
		{150, 0, 100, 100},
		{50, 0, 100, 50},
	}
	for _, c := range cases {
		if got := Clamp(c.v, c.lo, c.hi); got != c.want {
			t.Errorf("Clamp(%f, %f, %f): expected %f, got %f", c.v, c.lo, c.hi, c.want, got)
		}
	}
}

func TestRound2(t *testing.T) {
	if got := Round2(78.125); got != 78.13 {
		t.Errorf("Expected 78.13, got %f", got)
	}
	if got := Round2(33.333333); got != 33.33 {
		t.Errorf("Expected 33.33, got %f", got)
	}
}

func TestTail(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	if got := Tail(values, 2); len(got) != 2 || got[0] != 4 {
		t.Errorf("Expected trailing [4 5], got %v", got)
	}
	if got := Tail(values, 10); len(got) != 5 {
		t.Errorf("Expected full slice for oversized n, got %v", got)
	}
	if got := Tail(values, 0); len(got) != 5 {
		t.Errorf("Expected full slice for n=0, got %v", got)
	}
}
