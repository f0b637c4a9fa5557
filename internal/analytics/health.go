package analytics

import (
	"fmt"
	"sort"
	"time"

	"netinsights/internal/inventory"
)

// StalenessPenalty is deducted once from a device whose last update is
// older than the configured staleness boundary, regardless of how stale.
const StalenessPenalty = 20.0

// Health classification boundaries. These are fixed score bands,
// distinct from the configurable IPAM utilization thresholds.
const (
	healthyFloor  = 80.0
	warningFloor  = 50.0
	staleRuleName = "stale_data"
)

// RuleViolation records one violated scoring rule.
type RuleViolation struct {
	Rule        string  `json:"rule"`
	Penalty     float64 `json:"penalty"`
	Description string  `json:"description"`
}

// ScoreRecord is an entity-level score with the rules it violated.
// The score is always max(0, 100 - sum of penalties).
type ScoreRecord struct {
	Name       string          `json:"name"`
	Score      float64         `json:"score"`
	Violations []RuleViolation `json:"violations,omitempty"`
}

// applyPenalties finalizes a score record from its violations, deduplicating
// by rule name so a rule never penalizes twice.
func applyPenalties(name string, violations []RuleViolation) ScoreRecord {
	seen := make(map[string]bool, len(violations))
	total := 0.0
	deduped := violations[:0]
	for _, v := range violations {
		if seen[v.Rule] {
			continue
		}
		seen[v.Rule] = true
		total += v.Penalty
		deduped = append(deduped, v)
	}

	score := 100.0 - total
	if score < 0 {
		score = 0
	}
	return ScoreRecord{Name: name, Score: Round2(score), Violations: deduped}
}

// ScoreDevice scores a single device against the required fields and the
// staleness boundary. Required fields share equal penalty weight; rules are
// evaluated in declared field order, staleness last, so results are
// reproducible across runs.
func ScoreDevice(dev inventory.DeviceRecord, requiredFields []string, staleAfter time.Duration, now time.Time) ScoreRecord {
	var violations []RuleViolation

	if len(requiredFields) > 0 {
		weight := 100.0 / float64(len(requiredFields))
		for _, field := range requiredFields {
			value, known := dev.Field(field)
			if known && value != "" {
				continue
			}
			violations = append(violations, RuleViolation{
				Rule:        "missing_" + field,
				Penalty:     weight,
				Description: fmt.Sprintf("required field %q is empty", field),
			})
		}
	}

	if staleAfter > 0 && !dev.LastUpdated.IsZero() && now.Sub(dev.LastUpdated) > staleAfter {
		violations = append(violations, RuleViolation{
			Rule:        staleRuleName,
			Penalty:     StalenessPenalty,
			Description: fmt.Sprintf("not updated since %s", dev.LastUpdated.Format("2006-01-02")),
		})
	}

	return applyPenalties(dev.Name, violations)
}

// PopulationHealth aggregates per-device scores across a snapshot.
type PopulationHealth struct {
	Mean            float64       `json:"mean_score"`
	Median          float64       `json:"median_score"`
	Total           int           `json:"total_devices"`
	Healthy         int           `json:"healthy_count"`
	Warning         int           `json:"warning_count"`
	Critical        int           `json:"critical_count"`
	StaleCount      int           `json:"stale_count"`
	CriticalDevices []ScoreRecord `json:"critical_devices,omitempty"`
}

// ScorePopulation scores every device and buckets the population into
// healthy (>=80), warning (50-79) and critical (<50). The worst topK
// devices are returned ascending by score, ties broken by name.
func ScorePopulation(devs []inventory.DeviceRecord, requiredFields []string, staleAfter time.Duration, now time.Time, topK int) PopulationHealth {
	health := PopulationHealth{Total: len(devs)}
	if len(devs) == 0 {
		return health
	}

	var critical []ScoreRecord
	scores := make([]float64, 0, len(devs))
	sum := 0.0
	for _, dev := range devs {
		rec := ScoreDevice(dev, requiredFields, staleAfter, now)
		scores = append(scores, rec.Score)
		sum += rec.Score

		switch {
		case rec.Score >= healthyFloor:
			health.Healthy++
		case rec.Score >= warningFloor:
			health.Warning++
		default:
			health.Critical++
			critical = append(critical, rec)
		}

		for _, v := range rec.Violations {
			if v.Rule == staleRuleName {
				health.StaleCount++
				break
			}
		}
	}

	sort.Slice(critical, func(i, j int) bool {
		if critical[i].Score != critical[j].Score {
			return critical[i].Score < critical[j].Score
		}
		return critical[i].Name < critical[j].Name
	})
	if topK > 0 && len(critical) > topK {
		critical = critical[:topK]
	}

	health.Mean = Round2(sum / float64(len(devs)))
	health.Median = Round2(Median(scores))
	health.CriticalDevices = critical
	return health
}
