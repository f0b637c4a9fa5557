package analytics

import (
	"fmt"
	"sort"
	"time"

	"netinsights/internal/inventory"
)

// Alert severities, ordered for sorting.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

var severityRank = map[string]int{
	SeverityHigh:   0,
	SeverityMedium: 1,
	SeverityLow:    2,
}

// Alert is one proactive finding: an approaching exhaustion, a statistical
// anomaly, or a stale record.
type Alert struct {
	Type               string     `json:"type"`
	Severity           string     `json:"severity"`
	Subject            string     `json:"subject"`
	Site               string     `json:"site,omitempty"`
	Message            string     `json:"message"`
	Recommendation     string     `json:"recommendation,omitempty"`
	CurrentUtilization float64    `json:"current_utilization,omitempty"`
	GrowthPerWeek      float64    `json:"growth_rate,omitempty"`
	WeeksRemaining     float64    `json:"weeks_remaining,omitempty"`
	EstimatedCrossing  *time.Time `json:"estimated_exhaustion,omitempty"`
	ZScore             float64    `json:"z_score,omitempty"`
	DaysSinceUpdate    int        `json:"days_since_update,omitempty"`
}

// AlertConfig carries the forecaster and detector tuning for alerting.
type AlertConfig struct {
	HorizonDays     int
	GrowthThreshold float64 // percent per week
	Sigma           float64
}

// ExhaustionAlerts forecasts every utilization history toward 100% and
// alerts on series growing at or above the configured weekly rate whose
// projected crossing lands within the horizon. Crossings under four weeks
// out are high severity, the rest medium.
func ExhaustionAlerts(histories map[string]TrendSeries, sites map[string]string, cfg AlertConfig, now time.Time) []Alert {
	var alerts []Alert
	for subject, series := range histories {
		fc := Forecast(series, 100, cfg.HorizonDays, now)
		if !fc.ApproachingLimit || fc.Confidence == ConfidenceNone {
			continue
		}
		if fc.WeeklyGrowth < cfg.GrowthThreshold {
			continue
		}
		if fc.ExhaustionDate == nil || fc.ExhaustionDate.After(now.AddDate(0, 0, cfg.HorizonDays)) {
			continue
		}

		weeksRemaining := fc.ExhaustionDate.Sub(now).Hours() / (hoursPerDay * 7)
		severity := SeverityMedium
		if weeksRemaining < 4 {
			severity = SeverityHigh
		}
		latest, _ := series.Latest()

		alerts = append(alerts, Alert{
			Type:               "ipam_exhaustion",
			Severity:           severity,
			Subject:            subject,
			Site:               sites[subject],
			CurrentUtilization: Round2(latest.Value),
			GrowthPerWeek:      fc.WeeklyGrowth,
			WeeksRemaining:     Round2(weeksRemaining),
			EstimatedCrossing:  fc.ExhaustionDate,
			Message:            fmt.Sprintf("%s projected to exhaust in %.1f weeks", subject, weeksRemaining),
			Recommendation:     "Consider expanding the prefix or implementing IPv6",
		})
	}
	SortAlerts(alerts)
	return alerts
}

// anomalyWindow bounds the population the detector compares the latest
// sample against, so long-settled history does not dilute the statistics.
const anomalyWindow = 30

// AnomalyAlerts flags histories whose latest sample deviates beyond the
// sigma boundary from the mean of the trailing window.
func AnomalyAlerts(histories map[string]TrendSeries, sites map[string]string, sigma float64, minSamples int) []Alert {
	if minSamples < 2 {
		minSamples = 5
	}

	var alerts []Alert
	for subject, series := range histories {
		if series.Len() < minSamples {
			continue
		}
		values := Tail(series.Values(), anomalyWindow)
		flags := DetectAnomalies(values, sigma)

		// Only the most recent observation raises an alert; older
		// deviations are history, not findings.
		for _, flag := range flags {
			if flag.Index != len(values)-1 {
				continue
			}
			alerts = append(alerts, Alert{
				Type:               "anomaly_detected",
				Severity:           SeverityMedium,
				Subject:            subject,
				Site:               sites[subject],
				CurrentUtilization: Round2(flag.Value),
				ZScore:             flag.ZScore,
				Message:            fmt.Sprintf("unusual growth pattern detected in %s", subject),
				Recommendation:     "Investigate recent changes or automation errors",
			})
		}
	}
	SortAlerts(alerts)
	return alerts
}

// StaleDeviceAlerts reports active devices whose last update exceeds the
// staleness boundary.
func StaleDeviceAlerts(devs []inventory.DeviceRecord, staleAfter time.Duration, now time.Time) []Alert {
	var alerts []Alert
	for _, dev := range devs {
		if dev.Status != "active" || dev.LastUpdated.IsZero() {
			continue
		}
		age := now.Sub(dev.LastUpdated)
		if age <= staleAfter {
			continue
		}
		days := int(age.Hours() / hoursPerDay)
		alerts = append(alerts, Alert{
			Type:            "stale_device_data",
			Severity:        SeverityLow,
			Subject:         dev.Name,
			Site:            dev.Site,
			DaysSinceUpdate: days,
			Message:         fmt.Sprintf("device %s has not been updated in %d days", dev.Name, days),
			Recommendation:  "Verify the device is still active and refresh its record",
		})
	}
	SortAlerts(alerts)
	return alerts
}

// SortAlerts orders alerts by severity (high first), then subject for
// deterministic output.
func SortAlerts(alerts []Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		ri, rj := severityRank[alerts[i].Severity], severityRank[alerts[j].Severity]
		if ri != rj {
			return ri < rj
		}
		return alerts[i].Subject < alerts[j].Subject
	})
}
