package analytics

import "math"

// DefaultAnomalySigma is the outlier boundary used when no per-deployment
// tuning is configured.
const DefaultAnomalySigma = 2.0

// AnomalyFlag marks one sample as statistically deviant. The z-score and
// the population statistics that produced it ride along for display; they
// are informational and never re-thresholded downstream.
type AnomalyFlag struct {
	Index  int     `json:"index"`
	Value  float64 `json:"value"`
	ZScore float64 `json:"z_score"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// DetectAnomalies flags every sample deviating from the population mean by
// more than sigma standard deviations. A constant series (stddev 0) flags
// nothing. A non-positive sigma falls back to the default boundary.
func DetectAnomalies(values []float64, sigma float64) []AnomalyFlag {
	if sigma <= 0 {
		sigma = DefaultAnomalySigma
	}

	mean := Mean(values)
	stdDev := StdDev(values)
	if stdDev == 0 {
		return nil
	}

	var flags []AnomalyFlag
	for i, v := range values {
		z := (v - mean) / stdDev
		if math.Abs(z) <= sigma {
			continue
		}
		flags = append(flags, AnomalyFlag{
			Index:  i,
			Value:  v,
			ZScore: Round2(z),
			Mean:   Round2(mean),
			StdDev: Round2(stdDev),
		})
	}
	return flags
}
