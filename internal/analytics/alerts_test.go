package analytics

import (
	"testing"
	"time"

	"netinsights/internal/inventory"
)

var alertNow = time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

// utilizationHistory samples a linear utilization ramp ending at alertNow.
func utilizationHistory(start, slopePerDay float64, days int) TrendSeries {
	first := alertNow.AddDate(0, 0, -days)
	var samples []Sample
	for d := 0; d <= days; d += 5 {
		samples = append(samples, Sample{
			At:    first.AddDate(0, 0, d),
			Value: start + slopePerDay*float64(d),
		})
	}
	return NewTrendSeries(samples...)
}

func TestExhaustionAlerts(t *testing.T) {
	histories := map[string]TrendSeries{
		// 1%/day from 50: crosses 100 twenty days from now. 7%/week.
		"10.0.0.0/24": utilizationHistory(50, 1, 30),
		// Flat: never crosses.
		"10.0.1.0/24": utilizationHistory(40, 0, 30),
		// Slow growth below the weekly threshold.
		"10.0.2.0/24": utilizationHistory(50, 0.5, 30),
	}
	sites := map[string]string{"10.0.0.0/24": "ber"}
	cfg := AlertConfig{HorizonDays: 180, GrowthThreshold: 5, Sigma: 2}

	alerts := ExhaustionAlerts(histories, sites, cfg, alertNow)

	if len(alerts) != 1 {
		t.Fatalf("Expected exactly one exhaustion alert, got %d", len(alerts))
	}
	a := alerts[0]
	if a.Type != "ipam_exhaustion" {
		t.Errorf("Expected type ipam_exhaustion, got %s", a.Type)
	}
	if a.Subject != "10.0.0.0/24" || a.Site != "ber" {
		t.Errorf("Expected subject 10.0.0.0/24 at ber, got %s at %s", a.Subject, a.Site)
	}
	// Under four weeks remaining is high severity.
	if a.Severity != SeverityHigh {
		t.Errorf("Expected high severity, got %s", a.Severity)
	}
	if a.WeeksRemaining < 2.5 || a.WeeksRemaining > 3.2 {
		t.Errorf("Expected roughly 2.9 weeks remaining, got %f", a.WeeksRemaining)
	}
	if a.GrowthPerWeek != 7 {
		t.Errorf("Expected 7%%/week growth, got %f", a.GrowthPerWeek)
	}
	if a.EstimatedCrossing == nil {
		t.Errorf("Expected an estimated crossing date")
	}
}

func TestExhaustionAlerts_MediumBeyondFourWeeks(t *testing.T) {
	histories := map[string]TrendSeries{
		// 1%/day from 30: crosses 100 forty days from now.
		"10.0.0.0/16": utilizationHistory(30, 1, 30),
	}
	cfg := AlertConfig{HorizonDays: 180, GrowthThreshold: 5, Sigma: 2}

	alerts := ExhaustionAlerts(histories, nil, cfg, alertNow)
	if len(alerts) != 1 {
		t.Fatalf("Expected one alert, got %d", len(alerts))
	}
	if alerts[0].Severity != SeverityMedium {
		t.Errorf("Expected medium severity at 5.7 weeks out, got %s", alerts[0].Severity)
	}
}

func TestAnomalyAlerts_OnlyLatestSampleAlerts(t *testing.T) {
	first := alertNow.AddDate(0, 0, -6)
	build := func(values ...float64) TrendSeries {
		var samples []Sample
		for i, v := range values {
			samples = append(samples, Sample{At: first.AddDate(0, 0, i), Value: v})
		}
		return NewTrendSeries(samples...)
	}

	histories := map[string]TrendSeries{
		"spiking": build(10, 10, 10, 10, 10, 100),
		"settled": build(10, 100, 10, 10, 10, 10), // old spike, calm now
		"short":   build(10, 100),                 // under the sample floor
	}

	alerts := AnomalyAlerts(histories, nil, 2.0, 5)

	if len(alerts) != 1 {
		t.Fatalf("Expected one anomaly alert, got %d", len(alerts))
	}
	if alerts[0].Subject != "spiking" {
		t.Errorf("Expected alert on spiking series, got %s", alerts[0].Subject)
	}
	if alerts[0].Severity != SeverityMedium {
		t.Errorf("Expected medium severity, got %s", alerts[0].Severity)
	}
	if alerts[0].ZScore <= 2 {
		t.Errorf("Expected z-score above the boundary, got %f", alerts[0].ZScore)
	}
}

func TestAnomalyAlerts_TrailingWindowDropsOldHistory(t *testing.T) {
	// Five wild swings that settled 30+ samples ago, then a calm stretch of
	// 10s, then a latest sample of 50. Against the trailing window the 50
	// stands out; against the full history the old swings would swallow it.
	values := []float64{200, -200, 200, -200, 200}
	for i := 0; i < 29; i++ {
		values = append(values, 10)
	}
	values = append(values, 50)

	first := alertNow.AddDate(0, 0, -len(values))
	var samples []Sample
	for i, v := range values {
		samples = append(samples, Sample{At: first.AddDate(0, 0, i), Value: v})
	}
	histories := map[string]TrendSeries{"10.0.3.0/24": NewTrendSeries(samples...)}

	alerts := AnomalyAlerts(histories, nil, 2.0, 5)

	if len(alerts) != 1 {
		t.Fatalf("Expected one anomaly alert, got %d", len(alerts))
	}
	if alerts[0].Subject != "10.0.3.0/24" {
		t.Errorf("Expected alert on 10.0.3.0/24, got %s", alerts[0].Subject)
	}
	if alerts[0].ZScore < 4 {
		t.Errorf("Expected a strong deviation within the window, got z=%f", alerts[0].ZScore)
	}
}

func TestStaleDeviceAlerts(t *testing.T) {
	staleAfter := 30 * 24 * time.Hour
	devs := []inventory.DeviceRecord{
		{Name: "stale", Site: "ber", Status: "active", LastUpdated: alertNow.AddDate(0, 0, -45)},
		{Name: "fresh", Status: "active", LastUpdated: alertNow.AddDate(0, 0, -5)},
		{Name: "retired", Status: "offline", LastUpdated: alertNow.AddDate(0, 0, -365)},
		{Name: "unknown-age", Status: "active"},
	}

	alerts := StaleDeviceAlerts(devs, staleAfter, alertNow)

	if len(alerts) != 1 {
		t.Fatalf("Expected one stale alert, got %d", len(alerts))
	}
	a := alerts[0]
	if a.Subject != "stale" || a.Severity != SeverityLow {
		t.Errorf("Expected low severity alert on stale, got %+v", a)
	}
	if a.DaysSinceUpdate != 45 {
		t.Errorf("Expected 45 days since update, got %d", a.DaysSinceUpdate)
	}
}

func TestSortAlerts(t *testing.T) {
	alerts := []Alert{
		{Severity: SeverityLow, Subject: "z"},
		{Severity: SeverityHigh, Subject: "b"},
		{Severity: SeverityMedium, Subject: "m"},
		{Severity: SeverityHigh, Subject: "a"},
	}
	SortAlerts(alerts)

	want := []string{"a", "b", "m", "z"}
	for i, subject := range want {
		if alerts[i].Subject != subject {
			t.Errorf("Expected position %d to be %s, got %s", i, subject, alerts[i].Subject)
		}
	}
}
