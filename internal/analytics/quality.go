package analytics

import (
	"fmt"
	"regexp"
	"sort"

	"netinsights/internal/inventory"
)

// Quality violation penalty weights. Missing required fields share the
// health scorer's equal weighting; format and uniqueness violations carry
// fixed weights.
const (
	namingPenalty    = 15.0
	duplicatePenalty = 25.0
)

// Rules holds the compiled data-quality configuration.
type Rules struct {
	RequiredFields    []string
	NamingConventions map[string]*regexp.Regexp
}

// CompileRules validates and compiles the field->pattern mapping. A pattern
// that does not compile is a configuration error, surfaced before any
// widget registers.
func CompileRules(requiredFields []string, patterns map[string]string) (Rules, error) {
	rules := Rules{RequiredFields: requiredFields}
	if len(patterns) == 0 {
		return rules, nil
	}

	rules.NamingConventions = make(map[string]*regexp.Regexp, len(patterns))
	for field, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return Rules{}, fmt.Errorf("naming convention for %q: %w", field, err)
		}
		rules.NamingConventions[field] = re
	}
	return rules, nil
}

// DuplicateGroup reports a set of records sharing a value that should be unique.
type DuplicateGroup struct {
	Field   string   `json:"field"`
	Value   string   `json:"value"`
	Members []string `json:"members"`
}

// Recommendation is a data-form remediation hint: one entry per violation
// category present, carrying the affected record count.
type Recommendation struct {
	Category string `json:"category"`
	Affected int    `json:"affected"`
}

// QualityReport is the validator's aggregate output.
type QualityReport struct {
	Score           float64          `json:"score"`
	Compliant       int              `json:"compliant_count"`
	Total           int              `json:"total_count"`
	Records         []ScoreRecord    `json:"records,omitempty"`
	Duplicates      []DuplicateGroup `json:"duplicates,omitempty"`
	Recommendations []Recommendation `json:"recommendations,omitempty"`
}

// ValidateDevices checks every device for required-field completeness and
// naming-pattern compliance, and reports duplicate serial numbers and MAC
// addresses. The global score is 100 * compliant / total; an empty
// population scores 0, not an error.
//
// Compliance is a function of required fields and naming patterns only;
// duplicate membership is reported as a violation but does not flip the
// compliance bit, since the offending value may be correct on one member.
func ValidateDevices(devs []inventory.DeviceRecord, ifaces []inventory.InterfaceRecord, rules Rules) QualityReport {
	report := QualityReport{Total: len(devs)}
	if len(devs) == 0 {
		return report
	}

	duplicateSerials := duplicateValues("serial", devs, func(d inventory.DeviceRecord) (string, string) {
		return d.Serial, d.Name
	})
	duplicateMACs := duplicateMACGroups(ifaces)

	serialOffenders := memberSet(duplicateSerials)
	macOffenders := macOffendingDevices(duplicateMACs)

	affected := make(map[string]int)
	fieldWeight := 0.0
	if len(rules.RequiredFields) > 0 {
		fieldWeight = 100.0 / float64(len(rules.RequiredFields))
	}

	records := make([]ScoreRecord, 0, len(devs))
	for _, dev := range devs {
		var violations []RuleViolation
		compliant := true
		hitCategories := make(map[string]bool)

		for _, field := range rules.RequiredFields {
			value, known := dev.Field(field)
			if known && value != "" {
				continue
			}
			compliant = false
			hitCategories["missing_field"] = true
			violations = append(violations, RuleViolation{
				Rule:        "missing_" + field,
				Penalty:     fieldWeight,
				Description: fmt.Sprintf("required field %q is empty", field),
			})
		}

		// Deterministic pattern order: sort the declared fields.
		for _, field := range sortedFields(rules.NamingConventions) {
			value, known := dev.Field(field)
			if !known || value == "" {
				continue
			}
			if rules.NamingConventions[field].MatchString(value) {
				continue
			}
			compliant = false
			hitCategories["naming_violation"] = true
			violations = append(violations, RuleViolation{
				Rule:        "naming_" + field,
				Penalty:     namingPenalty,
				Description: fmt.Sprintf("field %q value %q violates naming convention", field, value),
			})
		}

		if serialOffenders[dev.Name] {
			hitCategories["duplicate_serial"] = true
			violations = append(violations, RuleViolation{
				Rule:        "duplicate_serial",
				Penalty:     duplicatePenalty,
				Description: fmt.Sprintf("serial %q is shared with another device", dev.Serial),
			})
		}
		if macOffenders[dev.Name] {
			hitCategories["duplicate_mac"] = true
			violations = append(violations, RuleViolation{
				Rule:        "duplicate_mac",
				Penalty:     duplicatePenalty,
				Description: "an interface MAC address is shared with another device",
			})
		}

		// Affected counts are per record, not per violation instance.
		for category := range hitCategories {
			affected[category]++
		}

		if compliant {
			report.Compliant++
		}
		records = append(records, applyPenalties(dev.Name, violations))
	}

	report.Score = Round2(float64(report.Compliant) / float64(report.Total) * 100)
	report.Records = records
	report.Duplicates = append(duplicateSerials, duplicateMACs...)
	report.Recommendations = buildRecommendations(affected)
	return report
}

func sortedFields(patterns map[string]*regexp.Regexp) []string {
	fields := make([]string, 0, len(patterns))
	for field := range patterns {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// duplicateValues groups records by a candidate-unique field value; any
// group larger than one is a duplicate attributed to every member.
func duplicateValues(field string, devs []inventory.DeviceRecord, extract func(inventory.DeviceRecord) (value, member string)) []DuplicateGroup {
	groups := make(map[string][]string)
	for _, d := range devs {
		value, member := extract(d)
		if value == "" {
			continue
		}
		groups[value] = append(groups[value], member)
	}

	var out []DuplicateGroup
	for value, members := range groups {
		if len(members) < 2 {
			continue
		}
		sort.Strings(members)
		out = append(out, DuplicateGroup{Field: field, Value: value, Members: members})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out
}

func duplicateMACGroups(ifaces []inventory.InterfaceRecord) []DuplicateGroup {
	groups := make(map[string][]string)
	for _, iface := range ifaces {
		if iface.MAC == "" {
			continue
		}
		groups[iface.MAC] = append(groups[iface.MAC], iface.Device+":"+iface.Name)
	}

	var out []DuplicateGroup
	for mac, members := range groups {
		if len(members) < 2 {
			continue
		}
		sort.Strings(members)
		out = append(out, DuplicateGroup{Field: "mac_address", Value: mac, Members: members})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out
}

func memberSet(groups []DuplicateGroup) map[string]bool {
	set := make(map[string]bool)
	for _, g := range groups {
		for _, m := range g.Members {
			set[m] = true
		}
	}
	return set
}

func macOffendingDevices(groups []DuplicateGroup) map[string]bool {
	set := make(map[string]bool)
	for _, g := range groups {
		for _, m := range g.Members {
			// Members are device:interface pairs.
			for i := 0; i < len(m); i++ {
				if m[i] == ':' {
					set[m[:i]] = true
					break
				}
			}
		}
	}
	return set
}

// buildRecommendations emits one entry per violation category present,
// ordered by affected count descending, category name ascending on ties.
func buildRecommendations(affected map[string]int) []Recommendation {
	var out []Recommendation
	for category, count := range affected {
		if count == 0 {
			continue
		}
		out = append(out, Recommendation{Category: category, Affected: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Affected != out[j].Affected {
			return out[i].Affected > out[j].Affected
		}
		return out[i].Category < out[j].Category
	})
	return out
}
