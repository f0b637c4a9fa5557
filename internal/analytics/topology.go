package analytics

import (
	"fmt"
	"sort"

	"netinsights/internal/inventory"
)

// CableIssue describes one cable failing validation.
type CableIssue struct {
	Label  string   `json:"label"`
	Issues []string `json:"issues"`
}

// CableHealth summarizes physical connectivity validation.
type CableHealth struct {
	Total   int          `json:"total"`
	Valid   int          `json:"valid"`
	Invalid []CableIssue `json:"invalid,omitempty"`
}

// ValidateCables checks every cable for termination on both ends and a
// declared type. The invalid list is capped to keep payloads bounded.
func ValidateCables(cables []inventory.CableRecord, maxReported int) CableHealth {
	health := CableHealth{Total: len(cables)}
	for _, cable := range cables {
		var issues []string
		if !cable.ATerminated {
			issues = append(issues, "missing A-side termination")
		}
		if !cable.BTerminated {
			issues = append(issues, "missing B-side termination")
		}
		if cable.Type == "" {
			issues = append(issues, "missing cable type")
		}

		if len(issues) == 0 {
			health.Valid++
			continue
		}
		label := cable.Label
		if label == "" {
			label = fmt.Sprintf("cable #%d", cable.ID)
		}
		health.Invalid = append(health.Invalid, CableIssue{Label: label, Issues: issues})
	}

	sort.Slice(health.Invalid, func(i, j int) bool {
		return health.Invalid[i].Label < health.Invalid[j].Label
	})
	if maxReported > 0 && len(health.Invalid) > maxReported {
		health.Invalid = health.Invalid[:maxReported]
	}
	return health
}

// CircuitSummary aggregates circuits by status with their committed bandwidth.
type CircuitSummary struct {
	Total           int            `json:"total"`
	ByStatus        map[string]int `json:"by_status"`
	CommittedMbps   int            `json:"committed_mbps"`
	ActiveCommitted int            `json:"active_committed_mbps"`
}

// SummarizeCircuits counts circuits per status and totals commit rates.
func SummarizeCircuits(circuits []inventory.CircuitRecord) CircuitSummary {
	summary := CircuitSummary{
		Total:    len(circuits),
		ByStatus: make(map[string]int),
	}
	for _, c := range circuits {
		summary.ByStatus[c.Status]++
		summary.CommittedMbps += c.CommitRateMbps
		if c.Status == "active" {
			summary.ActiveCommitted += c.CommitRateMbps
		}
	}
	return summary
}
