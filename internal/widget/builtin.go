package widget

import (
	"context"
	"time"

	"netinsights/internal/analytics"
	"netinsights/internal/config"
	"netinsights/internal/ingest"
	"netinsights/internal/inventory"
)

// Built-in widget refresh intervals. Each doubles as the cache TTL for
// that widget's results.
const (
	ipamRefresh       = 60 * time.Second
	healthRefresh     = 300 * time.Second
	qualityRefresh    = 300 * time.Second
	predictiveRefresh = 600 * time.Second
	capacityRefresh   = 900 * time.Second
	topologyRefresh   = 300 * time.Second
)

// Result list caps, keeping payloads bounded for any consumer.
const (
	topPrefixes       = 20
	topVLANSites      = 10
	topCriticalDevs   = 10
	topAlertsPerTier  = 10
	topLowAlerts      = 5
	maxReportedCables = 50
)

// IPAMData is the ipam_utilization widget payload.
type IPAMData struct {
	Summary analytics.IPAMSummary    `json:"summary"`
	VLANs   []analytics.MetricResult `json:"vlan_data,omitempty"`
}

// PredictiveData is the predictive_maintenance widget payload.
type PredictiveData struct {
	TotalAlerts  int               `json:"total_alerts"`
	HighCount    int               `json:"high_priority_count"`
	MediumCount  int               `json:"medium_priority_count"`
	LowCount     int               `json:"low_priority_count"`
	HighAlerts   []analytics.Alert `json:"high_priority_alerts,omitempty"`
	MediumAlerts []analytics.Alert `json:"medium_priority_alerts,omitempty"`
	LowAlerts    []analytics.Alert `json:"low_priority_alerts,omitempty"`
	ByType       map[string]int    `json:"alert_types,omitempty"`
}

// CapacityData is the capacity_planning widget payload.
type CapacityData struct {
	Growth30Days     []analytics.GrowthMetric `json:"growth_30_days"`
	GrowthHistorical []analytics.GrowthMetric `json:"growth_historical"`
	Forecast6Months  []analytics.CountForecast `json:"forecast_6_months"`
	NearCapacity     []analytics.MetricResult  `json:"prefixes_near_capacity,omitempty"`
}

// TopologyData is the topology_status widget payload.
type TopologyData struct {
	Cables   analytics.CableHealth    `json:"cables"`
	Circuits analytics.CircuitSummary `json:"circuits"`
}

// RegisterBuiltins wires the stock widgets to the accessor and sample
// store. Rule compilation happens here so a bad naming convention blocks
// registration instead of failing per-request.
func RegisterBuiltins(reg *Registry, cfg *config.AppConfig, acc inventory.Accessor, samples *ingest.SampleStore) error {
	// Quality compliance checks its own field set, distinct from the
	// health scorer's RequiredDeviceFields.
	rules, err := analytics.CompileRules(cfg.RequiredFields, cfg.NamingConventions)
	if err != nil {
		return err
	}

	descriptors := []Descriptor{
		{
			Name:            "ipam_utilization",
			RefreshInterval: ipamRefresh,
			ConfigKeys:      []string{"IPAM_WARNING_THRESHOLD", "IPAM_CRITICAL_THRESHOLD"},
			Compute: func(ctx context.Context, _ Params) (any, error) {
				snap, err := acc.Snapshot(ctx)
				if err != nil {
					return nil, err
				}
				return IPAMData{
					Summary: analytics.SummarizeIPAM(snap.Prefixes, cfg.IPAMThresholds, topPrefixes),
					VLANs:   analytics.VLANUsageBySite(snap.VLANs, cfg.IPAMThresholds, topVLANSites),
				}, nil
			},
		},
		{
			Name:            "device_health",
			RefreshInterval: healthRefresh,
			ConfigKeys:      []string{"REQUIRED_DEVICE_FIELDS", "STALE_DATA_DAYS"},
			Compute: func(ctx context.Context, _ Params) (any, error) {
				snap, err := acc.Snapshot(ctx)
				if err != nil {
					return nil, err
				}
				now := snap.TakenAt
				if now.IsZero() {
					now = time.Now()
				}
				return analytics.ScorePopulation(snap.Devices, cfg.RequiredDeviceFields, cfg.StaleAfter(), now, topCriticalDevs), nil
			},
		},
		{
			Name:            "data_quality",
			RefreshInterval: qualityRefresh,
			ConfigKeys:      []string{"REQUIRED_FIELDS", "NAMING_CONVENTIONS"},
			Compute: func(ctx context.Context, _ Params) (any, error) {
				snap, err := acc.Snapshot(ctx)
				if err != nil {
					return nil, err
				}
				return analytics.ValidateDevices(snap.Devices, snap.Interfaces, rules), nil
			},
		},
		{
			Name:            "predictive_maintenance",
			RefreshInterval: predictiveRefresh,
			ConfigKeys: []string{
				"TREND_PERIOD_DAYS", "FORECAST_HORIZON_DAYS",
				"GROWTH_RATE_THRESHOLD", "STALE_DATA_DAYS", "ANOMALY_SIGMA",
			},
			Compute: func(ctx context.Context, _ Params) (any, error) {
				snap, err := acc.Snapshot(ctx)
				if err != nil {
					return nil, err
				}
				now := snap.TakenAt
				if now.IsZero() {
					now = time.Now()
				}

				histories, sites := samples.Histories()
				alertCfg := analytics.AlertConfig{
					HorizonDays:     cfg.ForecastHorizonDays,
					GrowthThreshold: cfg.GrowthRateThreshold,
					Sigma:           cfg.AnomalySigma,
				}

				var alerts []analytics.Alert
				alerts = append(alerts, analytics.ExhaustionAlerts(histories, sites, alertCfg, now)...)
				alerts = append(alerts, analytics.AnomalyAlerts(histories, sites, cfg.AnomalySigma, 5)...)
				alerts = append(alerts, analytics.StaleDeviceAlerts(snap.Devices, cfg.StaleAfter(), now)...)
				analytics.SortAlerts(alerts)

				return buildPredictiveData(alerts), nil
			},
		},
		{
			Name:            "capacity_planning",
			RefreshInterval: capacityRefresh,
			ConfigKeys:      []string{"HISTORICAL_PERIOD_DAYS", "CAPACITY_WARNING_THRESHOLD"},
			Compute: func(ctx context.Context, _ Params) (any, error) {
				snap, err := acc.Snapshot(ctx)
				if err != nil {
					return nil, err
				}
				now := snap.TakenAt
				if now.IsZero() {
					now = time.Now()
				}

				historical := analytics.GrowthMetrics(snap, cfg.HistoricalPeriodDays, now)
				summary := analytics.SummarizeIPAM(snap.Prefixes, cfg.IPAMThresholds, 0)

				var near []analytics.MetricResult
				for _, r := range summary.Results {
					if r.Percentage >= cfg.CapacityThreshold {
						near = append(near, r)
					}
				}

				return CapacityData{
					Growth30Days:     analytics.GrowthMetrics(snap, 30, now),
					GrowthHistorical: historical,
					Forecast6Months:  analytics.ForecastCounts(historical, 6),
					NearCapacity:     near,
				}, nil
			},
		},
		{
			Name:            "topology_status",
			RefreshInterval: topologyRefresh,
			ConfigKeys:      nil,
			Compute: func(ctx context.Context, _ Params) (any, error) {
				snap, err := acc.Snapshot(ctx)
				if err != nil {
					return nil, err
				}
				return TopologyData{
					Cables:   analytics.ValidateCables(snap.Cables, maxReportedCables),
					Circuits: analytics.SummarizeCircuits(snap.Circuits),
				}, nil
			},
		},
	}

	for _, d := range descriptors {
		if err := reg.Register(d); err != nil {
			return err
		}
	}
	return nil
}

func buildPredictiveData(alerts []analytics.Alert) PredictiveData {
	data := PredictiveData{
		TotalAlerts: len(alerts),
		ByType:      make(map[string]int),
	}
	for _, a := range alerts {
		data.ByType[a.Type]++
		switch a.Severity {
		case analytics.SeverityHigh:
			data.HighCount++
			if len(data.HighAlerts) < topAlertsPerTier {
				data.HighAlerts = append(data.HighAlerts, a)
			}
		case analytics.SeverityMedium:
			data.MediumCount++
			if len(data.MediumAlerts) < topAlertsPerTier {
				data.MediumAlerts = append(data.MediumAlerts, a)
			}
		default:
			data.LowCount++
			if len(data.LowAlerts) < topLowAlerts {
				data.LowAlerts = append(data.LowAlerts, a)
			}
		}
	}
	return data
}
