package analytics

import (
	"fmt"
	"sort"
	"time"

	"netinsights/internal/inventory"
)

// Status classifies a utilization percentage against configured thresholds.
type Status string

const (
	StatusOK       Status = "ok"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
)

// Thresholds are the warning and critical utilization boundaries in percent.
type Thresholds struct {
	Warning  float64 `json:"warning"`
	Critical float64 `json:"critical"`
}

// Validate rejects contradictory or out-of-range boundaries.
func (t Thresholds) Validate() error {
	if t.Warning <= 0 || t.Warning > 100 {
		return fmt.Errorf("warning threshold %.1f out of range (0, 100]", t.Warning)
	}
	if t.Critical <= 0 || t.Critical > 100 {
		return fmt.Errorf("critical threshold %.1f out of range (0, 100]", t.Critical)
	}
	if t.Warning >= t.Critical {
		return fmt.Errorf("warning threshold %.1f must be below critical %.1f", t.Warning, t.Critical)
	}
	return nil
}

// ClassifyUtilization maps a percentage onto a status. Boundaries resolve
// upward: a value exactly at a threshold takes the higher severity.
func ClassifyUtilization(pct float64, t Thresholds) Status {
	switch {
	case pct >= t.Critical:
		return StatusCritical
	case pct >= t.Warning:
		return StatusWarning
	default:
		return StatusOK
	}
}

// MetricResult is a named utilization figure with its classification and
// the counts that produced it.
type MetricResult struct {
	Name       string  `json:"name"`
	Site       string  `json:"site,omitempty"`
	Percentage float64 `json:"percentage"`
	Status     Status  `json:"status"`
	Total      int64   `json:"total"`
	Used       int64   `json:"used"`
	Available  int64   `json:"available"`
}

// IPAMSummary aggregates prefix utilization across a snapshot.
type IPAMSummary struct {
	Total      int            `json:"total_prefixes"`
	Healthy    int            `json:"healthy_count"`
	Warning    int            `json:"warning_count"`
	Critical   int            `json:"critical_count"`
	Results    []MetricResult `json:"prefixes"`
	Thresholds Thresholds     `json:"thresholds"`
}

// PrefixUtilization computes used/total as a percentage clamped to [0, 100].
// A prefix with no addresses is defined as 0% utilized.
func PrefixUtilization(rec inventory.PrefixRecord) float64 {
	if rec.TotalAddresses <= 0 {
		return 0
	}
	pct := float64(rec.UsedAddresses) / float64(rec.TotalAddresses) * 100
	return Clamp(pct, 0, 100)
}

// SummarizeIPAM classifies every prefix and returns the topN by utilization.
// Zero-capacity prefixes are counted but excluded from the ranking. The
// ranking is stable: utilization descending, prefix name ascending on ties.
func SummarizeIPAM(prefixes []inventory.PrefixRecord, t Thresholds, topN int) IPAMSummary {
	summary := IPAMSummary{Thresholds: t}

	var ranked []MetricResult
	for _, p := range prefixes {
		pct := PrefixUtilization(p)
		status := ClassifyUtilization(pct, t)

		summary.Total++
		switch status {
		case StatusCritical:
			summary.Critical++
		case StatusWarning:
			summary.Warning++
		default:
			summary.Healthy++
		}

		if p.TotalAddresses <= 0 {
			continue
		}

		available := p.TotalAddresses - p.UsedAddresses
		if available < 0 {
			available = 0
		}
		ranked = append(ranked, MetricResult{
			Name:       p.Prefix,
			Site:       p.Site,
			Percentage: Round2(pct),
			Status:     status,
			Total:      p.TotalAddresses,
			Used:       p.UsedAddresses,
			Available:  available,
		})
	}

	sortMetricResults(ranked)
	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}
	summary.Results = ranked
	return summary
}

// VLANUsageBySite aggregates VLAN usage per site and returns the topN sites
// by utilization, using the same ranking and clamping rules as prefixes.
func VLANUsageBySite(vlans []inventory.VLANRecord, t Thresholds, topN int) []MetricResult {
	type siteCount struct {
		total int64
		used  int64
	}
	bySite := make(map[string]*siteCount)
	for _, v := range vlans {
		site := v.Site
		if site == "" {
			site = "No Site"
		}
		c, ok := bySite[site]
		if !ok {
			c = &siteCount{}
			bySite[site] = c
		}
		c.total++
		if v.AttachedInterfaces > 0 {
			c.used++
		}
	}

	var results []MetricResult
	for site, c := range bySite {
		if c.total == 0 {
			continue
		}
		pct := Clamp(float64(c.used)/float64(c.total)*100, 0, 100)
		results = append(results, MetricResult{
			Name:       site,
			Site:       site,
			Percentage: Round2(pct),
			Status:     ClassifyUtilization(pct, t),
			Total:      c.total,
			Used:       c.used,
			Available:  c.total - c.used,
		})
	}

	sortMetricResults(results)
	if topN > 0 && len(results) > topN {
		results = results[:topN]
	}
	return results
}

func sortMetricResults(results []MetricResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Percentage != results[j].Percentage {
			return results[i].Percentage > results[j].Percentage
		}
		return results[i].Name < results[j].Name
	})
}

// GrowthMetric tracks how fast one record kind grows over a window.
type GrowthMetric struct {
	Kind          string  `json:"kind"`
	Total         int     `json:"total"`
	New           int     `json:"new"`
	PerWeek       float64 `json:"per_week"`
	GrowthRatePct float64 `json:"growth_rate"`
}

// GrowthMetrics counts records created within the trailing window per kind.
// It feeds the capacity-planning widget and the count forecaster.
func GrowthMetrics(snap inventory.Snapshot, days int, now time.Time) []GrowthMetric {
	if days <= 0 {
		days = 1
	}
	cutoff := now.AddDate(0, 0, -days)
	weeks := float64(days) / 7.0

	count := func(kind string, total int, created func(i int) time.Time) GrowthMetric {
		fresh := 0
		for i := 0; i < total; i++ {
			if !created(i).Before(cutoff) {
				fresh++
			}
		}
		m := GrowthMetric{Kind: kind, Total: total, New: fresh}
		if weeks > 0 {
			m.PerWeek = Round2(float64(fresh) / weeks)
		}
		if total > 0 {
			m.GrowthRatePct = Round2(float64(fresh) / float64(total) * 100)
		}
		return m
	}

	return []GrowthMetric{
		count("devices", len(snap.Devices), func(i int) time.Time { return snap.Devices[i].Created }),
		count("prefixes", len(snap.Prefixes), func(i int) time.Time { return snap.Prefixes[i].Created }),
		count("circuits", len(snap.Circuits), func(i int) time.Time { return snap.Circuits[i].Created }),
	}
}

// CountForecast extrapolates a record count forward from its weekly rate.
type CountForecast struct {
	Kind       string `json:"kind"`
	Current    int    `json:"current"`
	Forecasted int    `json:"forecasted"`
	Growth     int    `json:"growth"`
}

// ForecastCounts projects each growth metric months ahead at its current
// weekly rate. Months convert at the 4.33 average weeks per month.
func ForecastCounts(metrics []GrowthMetric, months int) []CountForecast {
	weeks := float64(months) * 4.33
	out := make([]CountForecast, 0, len(metrics))
	for _, m := range metrics {
		growth := int(m.PerWeek * weeks)
		out = append(out, CountForecast{
			Kind:       m.Kind,
			Current:    m.Total,
			Forecasted: m.Total + growth,
			Growth:     growth,
		})
	}
	return out
}
