package main

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

const (
	defaultTopParts = 15
	defaultTopSlots = 20

	serialAnomalyToken = "XXX"
	missingCell        = "—"
)

// serialColumnCandidates is the priority order for locating serial-like
// values when the canonical serial field is unpopulated. Only the first
// populated candidate is used.
var serialColumnCandidates = []string{"serial_number", "serial_no", "serial", "batch_number"}

// ComponentSummary is the scalar headline snapshot of a normalized table.
type ComponentSummary struct {
	TotalComponents     int       `json:"total_components"`
	UniqueParts         int       `json:"unique_parts"`
	UniqueAircraft      int       `json:"unique_aircraft"`
	OverdueComponents   int       `json:"overdue_components"`
	DueWithin30Days     int       `json:"due_within_30_days"`
	DueWithin90Days     int       `json:"due_within_90_days"`
	SerialAnomalies     int       `json:"serial_anomalies"`
	AverageDaysUntilDue float64   `json:"average_days_until_due"`
	AverageDaysOverdue  float64   `json:"average_days_overdue"`
	ReportDate          time.Time `json:"report_date"`
}

type AircraftExposure struct {
	Aircraft    string `json:"aircraft"`
	Components  int    `json:"components"`
	Overdue     int    `json:"overdue"`
	DueWithin30 int    `json:"due_within_30"`
}

type PartExposure struct {
	PartName    string `json:"part_name"`
	Occurrences int    `json:"occurrences"`
	Overdue     int    `json:"overdue"`
}

type BucketCount struct {
	Bucket     string `json:"bucket"`
	Components int    `json:"components"`
}

type ConfigSlotSchedule struct {
	ConfigSlot      string    `json:"config_slot"`
	Components      int       `json:"components"`
	EarliestDue     time.Time `json:"earliest_due"`
	MedianDue       time.Time `json:"median_due"`
	LatestDue       time.Time `json:"latest_due"`
	AvgDaysUntilDue float64   `json:"avg_days_until_due"`
}

// ReportTable is a rendered table: ordered column labels plus formatted
// string cells. Renderers always emit the column set, even for zero rows.
type ReportTable struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Report bundles every derived artifact for printing, export, and storage.
type Report struct {
	Summary     ComponentSummary     `json:"summary"`
	Cohorts     ReportTable          `json:"cohort_summary"`
	Aircraft    []AircraftExposure   `json:"aircraft_exposure"`
	Parts       []PartExposure       `json:"top_components"`
	Buckets     []BucketCount        `json:"due_buckets"`
	ConfigSlots []ConfigSlotSchedule `json:"config_slot_schedule"`
	Components  []Component          `json:"components"`
}

func buildReport(components []Component, reportDate time.Time, topParts int, topSlots int) Report {
	return Report{
		Summary:     buildSummary(components, reportDate),
		Cohorts:     buildCohortTable(components, reportDate),
		Aircraft:    aircraftBreakdown(components),
		Parts:       partBreakdown(components, topParts),
		Buckets:     bucketBreakdown(components),
		ConfigSlots: configSlotBreakdown(components, topSlots),
		Components:  components,
	}
}

// buildSummary computes the headline KPIs over the normalized table.
func buildSummary(components []Component, reportDate time.Time) ComponentSummary {
	summary := ComponentSummary{ReportDate: dateOnly(reportDate)}
	if len(components) == 0 {
		return summary
	}

	summary.TotalComponents = len(components)
	summary.UniqueParts = distinctCount(components, func(c Component) string { return c.PartName })
	summary.UniqueAircraft = distinctCount(components, func(c Component) string { return c.AircraftRegistration })
	summary.SerialAnomalies = serialAnomalyCount(components)

	sumUntilDue := 0.0
	sumOverdue := 0.0
	for _, component := range components {
		sumUntilDue += component.DaysUntilDue
		if component.IsOverdue {
			summary.OverdueComponents++
			sumOverdue += component.DaysOverdue
		}
		if component.DaysUntilDue >= 0 && component.DaysUntilDue <= 30 {
			summary.DueWithin30Days++
		}
		if component.DaysUntilDue >= 0 && component.DaysUntilDue <= 90 {
			summary.DueWithin90Days++
		}
	}
	summary.AverageDaysUntilDue = round2(sumUntilDue / float64(len(components)))
	if summary.OverdueComponents > 0 {
		summary.AverageDaysOverdue = round2(sumOverdue / float64(summary.OverdueComponents))
	}
	return summary
}

func distinctCount(components []Component, key func(Component) string) int {
	seen := map[string]struct{}{}
	for _, component := range components {
		value := key(component)
		if value == "" {
			continue
		}
		seen[value] = struct{}{}
	}
	return len(seen)
}

// serialValues returns the values of the first populated serial-like column,
// checking the canonical field before the extra-column candidates.
func serialValues(components []Component) []string {
	for _, candidate := range serialColumnCandidates {
		values := make([]string, 0, len(components))
		populated := false
		for _, component := range components {
			value := ""
			if candidate == "serial_number" {
				value = component.SerialNumber
			} else if component.Extra != nil {
				value = component.Extra[candidate]
			}
			if value != "" {
				populated = true
			}
			values = append(values, value)
		}
		if populated {
			return values
		}
	}
	return nil
}

func serialAnomalyCount(components []Component) int {
	count := 0
	for _, value := range serialValues(components) {
		if strings.Contains(strings.ToUpper(value), serialAnomalyToken) {
			count++
		}
	}
	return count
}

// cohorts are the fixed, ordered column set of the cohort summary table.
type cohortSpec struct {
	name  string
	match func(Component) bool
}

func cohortSpecs() []cohortSpec {
	return []cohortSpec{
		{"All components", func(Component) bool { return true }},
		{"Overdue", func(c Component) bool { return c.IsOverdue }},
		{"Due ≤ 30d", func(c Component) bool { return c.DaysUntilDue >= 0 && c.DaysUntilDue <= 30 }},
		{"Due ≤ 90d", func(c Component) bool { return c.DaysUntilDue >= 0 && c.DaysUntilDue <= 90 }},
	}
}

// buildCohortTable computes each metric across the fixed cohort columns and
// appends the report-generation row.
func buildCohortTable(components []Component, reportDate time.Time) ReportTable {
	specs := cohortSpecs()
	table := ReportTable{Columns: make([]string, 0, len(specs)+1)}
	table.Columns = append(table.Columns, "Metric")
	for _, spec := range specs {
		table.Columns = append(table.Columns, spec.name)
	}

	subsets := make([][]Component, len(specs))
	for i, spec := range specs {
		for _, component := range components {
			if spec.match(component) {
				subsets[i] = append(subsets[i], component)
			}
		}
	}

	metrics := []struct {
		name    string
		compute func([]Component) string
	}{
		{"Total components", func(subset []Component) string { return formatCount(len(subset)) }},
		{"Unique components", func(subset []Component) string {
			if serialValues(subset) == nil {
				return missingCell
			}
			return formatCount(distinctSerials(subset))
		}},
		{"Unique parts", func(subset []Component) string {
			return formatCount(distinctCount(subset, func(c Component) string { return c.PartName }))
		}},
		{"Unique aircraft", func(subset []Component) string {
			return formatCount(distinctCount(subset, func(c Component) string { return c.AircraftRegistration }))
		}},
		{"Overdue components", func(subset []Component) string {
			return formatCount(countMatching(subset, func(c Component) bool { return c.IsOverdue }))
		}},
		{"Serials with XXX", func(subset []Component) string {
			if serialValues(subset) == nil {
				return missingCell
			}
			return formatCount(serialAnomalyCount(subset))
		}},
		{"Due ≤ 30d", func(subset []Component) string {
			return formatCount(countMatching(subset, func(c Component) bool { return c.DaysUntilDue >= 0 && c.DaysUntilDue <= 30 }))
		}},
		{"Due ≤ 90d", func(subset []Component) string {
			return formatCount(countMatching(subset, func(c Component) bool { return c.DaysUntilDue >= 0 && c.DaysUntilDue <= 90 }))
		}},
	}

	for _, metric := range metrics {
		row := make([]string, 0, len(specs)+1)
		row = append(row, metric.name)
		for _, subset := range subsets {
			row = append(row, metric.compute(subset))
		}
		table.Rows = append(table.Rows, row)
	}

	generated := make([]string, 0, len(specs)+1)
	generated = append(generated, "Report generated", formatDate(dateOnly(reportDate)))
	for i := 1; i < len(specs); i++ {
		generated = append(generated, missingCell)
	}
	table.Rows = append(table.Rows, generated)
	return table
}

func distinctSerials(components []Component) int {
	seen := map[string]struct{}{}
	for _, value := range serialValues(components) {
		if value == "" {
			continue
		}
		seen[value] = struct{}{}
	}
	return len(seen)
}

func countMatching(components []Component, match func(Component) bool) int {
	count := 0
	for _, component := range components {
		if match(component) {
			count++
		}
	}
	return count
}

// aircraftBreakdown groups overdue exposure by registration. Components with
// no extracted registration carry no aircraft attribution and are excluded.
func aircraftBreakdown(components []Component) []AircraftExposure {
	grouped := map[string]*AircraftExposure{}
	for _, component := range components {
		if component.AircraftRegistration == "" {
			continue
		}
		entry, ok := grouped[component.AircraftRegistration]
		if !ok {
			entry = &AircraftExposure{Aircraft: component.AircraftRegistration}
			grouped[component.AircraftRegistration] = entry
		}
		entry.Components++
		if component.IsOverdue {
			entry.Overdue++
		}
		if component.DaysUntilDue >= 0 && component.DaysUntilDue <= 30 {
			entry.DueWithin30++
		}
	}

	result := make([]AircraftExposure, 0, len(grouped))
	for _, entry := range grouped {
		result = append(result, *entry)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Overdue != result[j].Overdue {
			return result[i].Overdue > result[j].Overdue
		}
		if result[i].Components != result[j].Components {
			return result[i].Components > result[j].Components
		}
		return result[i].Aircraft < result[j].Aircraft
	})
	return result
}

// partKey picks the grouping value for the part breakdown: the canonical
// part name when populated, otherwise the first extra column whose label
// mentions a part or component.
func partKey(components []Component) func(Component) string {
	for _, component := range components {
		if component.PartName != "" {
			return func(c Component) string { return c.PartName }
		}
	}
	candidates := map[string]struct{}{}
	for _, component := range components {
		for key := range component.Extra {
			if strings.Contains(key, "part") || strings.Contains(key, "component") {
				candidates[key] = struct{}{}
			}
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	keys := make([]string, 0, len(candidates))
	for key := range candidates {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	fallback := keys[0]
	return func(c Component) string {
		if c.Extra == nil {
			return ""
		}
		return c.Extra[fallback]
	}
}

func partBreakdown(components []Component, topN int) []PartExposure {
	if topN <= 0 {
		topN = defaultTopParts
	}
	key := partKey(components)
	if key == nil {
		return nil
	}

	grouped := map[string]*PartExposure{}
	for _, component := range components {
		name := key(component)
		if name == "" {
			continue
		}
		entry, ok := grouped[name]
		if !ok {
			entry = &PartExposure{PartName: name}
			grouped[name] = entry
		}
		entry.Occurrences++
		if component.IsOverdue {
			entry.Overdue++
		}
	}

	result := make([]PartExposure, 0, len(grouped))
	for _, entry := range grouped {
		result = append(result, *entry)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Overdue != result[j].Overdue {
			return result[i].Overdue > result[j].Overdue
		}
		if result[i].Occurrences != result[j].Occurrences {
			return result[i].Occurrences > result[j].Occurrences
		}
		return result[i].PartName < result[j].PartName
	})
	if len(result) > topN {
		result = result[:topN]
	}
	return result
}

// bucketOrder fixes the tie-break sequence for equal bucket counts.
var bucketOrder = map[string]int{
	bucketOverdue: 0,
	bucketDue7:    1,
	bucketDue30:   2,
	bucketDue90:   3,
	bucketLater:   4,
	bucketUnknown: 5,
}

func bucketBreakdown(components []Component) []BucketCount {
	grouped := map[string]int{}
	for _, component := range components {
		grouped[component.DueBucket]++
	}
	result := make([]BucketCount, 0, len(grouped))
	for bucket, count := range grouped {
		result = append(result, BucketCount{Bucket: bucket, Components: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Components != result[j].Components {
			return result[i].Components > result[j].Components
		}
		return bucketOrder[result[i].Bucket] < bucketOrder[result[j].Bucket]
	})
	return result
}

// configSlotBreakdown restricts to the most frequent slots, then reports due
// date spread per slot, ordered by the earliest due date ascending.
func configSlotBreakdown(components []Component, topN int) []ConfigSlotSchedule {
	if topN <= 0 {
		topN = defaultTopSlots
	}

	counts := map[string]int{}
	for _, component := range components {
		if component.ConfigSlot == "" {
			continue
		}
		counts[component.ConfigSlot]++
	}
	if len(counts) == 0 {
		return nil
	}

	slots := make([]string, 0, len(counts))
	for slot := range counts {
		slots = append(slots, slot)
	}
	sort.Slice(slots, func(i, j int) bool {
		if counts[slots[i]] != counts[slots[j]] {
			return counts[slots[i]] > counts[slots[j]]
		}
		return slots[i] < slots[j]
	})
	if len(slots) > topN {
		slots = slots[:topN]
	}
	keep := map[string]struct{}{}
	for _, slot := range slots {
		keep[slot] = struct{}{}
	}

	dues := map[string][]time.Time{}
	daysSums := map[string]float64{}
	for _, component := range components {
		if _, ok := keep[component.ConfigSlot]; !ok {
			continue
		}
		dues[component.ConfigSlot] = append(dues[component.ConfigSlot], component.DueDate)
		daysSums[component.ConfigSlot] += component.DaysUntilDue
	}

	result := make([]ConfigSlotSchedule, 0, len(slots))
	for _, slot := range slots {
		sorted := dues[slot]
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })
		result = append(result, ConfigSlotSchedule{
			ConfigSlot:      slot,
			Components:      len(sorted),
			EarliestDue:     sorted[0],
			MedianDue:       medianTime(sorted),
			LatestDue:       sorted[len(sorted)-1],
			AvgDaysUntilDue: round1(daysSums[slot] / float64(len(sorted))),
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].EarliestDue.Equal(result[j].EarliestDue) {
			return result[i].EarliestDue.Before(result[j].EarliestDue)
		}
		if result[i].Components != result[j].Components {
			return result[i].Components > result[j].Components
		}
		return result[i].ConfigSlot < result[j].ConfigSlot
	})
	return result
}

// medianTime takes the middle of a due-date-sorted slice, interpolating the
// midpoint for even lengths.
func medianTime(sorted []time.Time) time.Time {
	n := len(sorted)
	if n == 0 {
		return time.Time{}
	}
	mid := n / 2
	if n%2 == 1 {
		return sorted[mid]
	}
	lower, upper := sorted[mid-1], sorted[mid]
	return lower.Add(upper.Sub(lower) / 2)
}

func round1(value float64) float64 {
	return math.Round(value*10) / 10
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

// formatCount renders an integer with thousands separators.
func formatCount(value int) string {
	text := fmt.Sprintf("%d", value)
	negative := strings.HasPrefix(text, "-")
	digits := strings.TrimPrefix(text, "-")
	if len(digits) <= 3 {
		return text
	}
	var groups []string
	for len(digits) > 3 {
		groups = append([]string{digits[len(digits)-3:]}, groups...)
		digits = digits[:len(digits)-3]
	}
	groups = append([]string{digits}, groups...)
	joined := strings.Join(groups, ",")
	if negative {
		return "-" + joined
	}
	return joined
}

func formatFloat(value float64) string {
	if math.IsNaN(value) {
		return missingCell
	}
	return fmt.Sprintf("%.2f", value)
}
