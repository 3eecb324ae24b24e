package main

import (
	"reflect"
	"testing"
	"time"
)

func preparedSample(t *testing.T) []Component {
	t.Helper()
	rows := [][]string{
		{"Part Name", "Installed on", "Config slot", "Due Date"},
		{"Part A", "BOEING 787-8 - ET-ATG", "76-11-00-ZA2", "2024-09-10"},
		{"Part B", "BOEING 787-8 - ET-ATG", "76-11-00-ZA2", "2024-08-10"},
		{"Part B", "BOEING 787-9 - ET-AUR", "32-11-00-ZA7", "2024-10-10"},
	}
	grid := canonicalizeGrid(repairHeader(rows))
	return prepareComponents(grid, time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC))
}

func TestBuildSummaryMetrics(t *testing.T) {
	components := preparedSample(t)
	summary := buildSummary(components, time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC))

	if summary.TotalComponents != 3 {
		t.Fatalf("expected 3 components, got %d", summary.TotalComponents)
	}
	if summary.UniqueParts != 2 {
		t.Fatalf("expected 2 unique parts, got %d", summary.UniqueParts)
	}
	if summary.UniqueAircraft != 2 {
		t.Fatalf("expected 2 unique aircraft, got %d", summary.UniqueAircraft)
	}
	if summary.OverdueComponents != 1 {
		t.Fatalf("expected 1 overdue, got %d", summary.OverdueComponents)
	}
	if summary.DueWithin30Days != 1 {
		t.Fatalf("expected 1 due within 30d, got %d", summary.DueWithin30Days)
	}
	if summary.DueWithin90Days != 2 {
		t.Fatalf("expected 2 due within 90d, got %d", summary.DueWithin90Days)
	}
	if !floatEqual(summary.AverageDaysUntilDue, 8.67) {
		t.Fatalf("expected avg days until due 8.67, got %.2f", summary.AverageDaysUntilDue)
	}
	if !floatEqual(summary.AverageDaysOverdue, 22.0) {
		t.Fatalf("expected avg days overdue 22, got %.2f", summary.AverageDaysOverdue)
	}
}

func TestBuildSummaryEmptyInput(t *testing.T) {
	summary := buildSummary(nil, time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC))
	if summary.TotalComponents != 0 || summary.OverdueComponents != 0 {
		t.Fatalf("expected zero summary, got %+v", summary)
	}
}

func TestAircraftBreakdownOrdering(t *testing.T) {
	components := preparedSample(t)
	breakdown := aircraftBreakdown(components)
	if len(breakdown) != 2 {
		t.Fatalf("expected 2 aircraft, got %d", len(breakdown))
	}
	if breakdown[0].Aircraft != "ET-ATG" {
		t.Fatalf("expected ET-ATG first (most overdue), got %q", breakdown[0].Aircraft)
	}
	if breakdown[0].Components != 2 || breakdown[0].Overdue != 1 || breakdown[0].DueWithin30 != 1 {
		t.Fatalf("unexpected ET-ATG exposure: %+v", breakdown[0])
	}
	if breakdown[1].Aircraft != "ET-AUR" {
		t.Fatalf("expected ET-AUR second, got %q", breakdown[1].Aircraft)
	}
}

func TestAircraftBreakdownMissingRegistrations(t *testing.T) {
	rows := [][]string{
		{"Part Name", "Due Date"},
		{"Part A", "2024-09-10"},
	}
	grid := canonicalizeGrid(repairHeader(rows))
	components := prepareComponents(grid, time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC))

	breakdown := aircraftBreakdown(components)
	if len(breakdown) != 0 {
		t.Fatalf("expected empty breakdown, got %d rows", len(breakdown))
	}

	rendered := renderAircraftTable(breakdown)
	expected := []string{"Aircraft", "Components", "Overdue", "Due ≤ 30d"}
	if !reflect.DeepEqual(rendered.Columns, expected) {
		t.Fatalf("expected shaped empty table %v, got %v", expected, rendered.Columns)
	}
	if len(rendered.Rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(rendered.Rows))
	}
}

func TestPartBreakdownOrderingAndTruncation(t *testing.T) {
	components := preparedSample(t)
	breakdown := partBreakdown(components, 15)
	if len(breakdown) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(breakdown))
	}
	if breakdown[0].PartName != "Part B" || breakdown[0].Occurrences != 2 || breakdown[0].Overdue != 1 {
		t.Fatalf("expected Part B first with 2/1, got %+v", breakdown[0])
	}

	truncated := partBreakdown(components, 1)
	if len(truncated) != 1 {
		t.Fatalf("expected truncation to 1, got %d", len(truncated))
	}
}

func TestBucketBreakdownSumsToTotal(t *testing.T) {
	components := preparedSample(t)
	breakdown := bucketBreakdown(components)

	total := 0
	for _, entry := range breakdown {
		total += entry.Components
	}
	if total != len(components) {
		t.Fatalf("bucket counts sum %d, expected %d", total, len(components))
	}

	// Equal counts fall back to the bucket severity order.
	expected := []string{bucketOverdue, bucketDue30, bucketDue90}
	got := make([]string, 0, len(breakdown))
	for _, entry := range breakdown {
		got = append(got, entry.Bucket)
	}
	if !reflect.DeepEqual(got, expected) {
		t.Fatalf("expected bucket order %v, got %v", expected, got)
	}
}

func TestConfigSlotBreakdown(t *testing.T) {
	components := preparedSample(t)
	breakdown := configSlotBreakdown(components, 20)
	if len(breakdown) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(breakdown))
	}

	first := breakdown[0]
	if first.ConfigSlot != "76-11-00-ZA2" {
		t.Fatalf("expected earliest-due slot first, got %q", first.ConfigSlot)
	}
	if formatDate(first.EarliestDue) != "2024-08-10" || formatDate(first.LatestDue) != "2024-09-10" {
		t.Fatalf("unexpected due range: %s .. %s", formatDate(first.EarliestDue), formatDate(first.LatestDue))
	}
	if formatDate(first.MedianDue) != "2024-08-25" {
		t.Fatalf("expected interpolated median 2024-08-25, got %s", formatDate(first.MedianDue))
	}
	if !floatEqual(first.AvgDaysUntilDue, -6.5) {
		t.Fatalf("expected avg days -6.5, got %.1f", first.AvgDaysUntilDue)
	}

	limited := configSlotBreakdown(components, 1)
	if len(limited) != 1 {
		t.Fatalf("expected top-1 restriction, got %d", len(limited))
	}
	if limited[0].ConfigSlot != "76-11-00-ZA2" {
		t.Fatalf("expected most frequent slot kept, got %q", limited[0].ConfigSlot)
	}
}

func TestBuildCohortTableShape(t *testing.T) {
	components := preparedSample(t)
	reportDate := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	table := buildCohortTable(components, reportDate)

	expectedColumns := []string{"Metric", "All components", "Overdue", "Due ≤ 30d", "Due ≤ 90d"}
	if !reflect.DeepEqual(table.Columns, expectedColumns) {
		t.Fatalf("expected columns %v, got %v", expectedColumns, table.Columns)
	}
	if len(table.Rows) != 9 {
		t.Fatalf("expected 9 metric rows, got %d", len(table.Rows))
	}

	first := table.Rows[0]
	if first[0] != "Total components" || first[1] != "3" || first[2] != "1" {
		t.Fatalf("unexpected totals row: %v", first)
	}

	// The sample has no serial column, so serial-backed metrics degrade.
	for _, row := range table.Rows {
		if row[0] == "Unique components" && row[1] != missingCell {
			t.Fatalf("expected %q for unique components, got %q", missingCell, row[1])
		}
	}

	last := table.Rows[len(table.Rows)-1]
	if last[0] != "Report generated" || last[1] != "2024-09-01" {
		t.Fatalf("unexpected trailer row: %v", last)
	}
	for _, cell := range last[2:] {
		if cell != missingCell {
			t.Fatalf("expected trailer placeholders, got %v", last)
		}
	}
}

func TestSerialAnomalyCandidatePriority(t *testing.T) {
	canonical := []Component{
		{SerialNumber: "AB-XXX-1", Extra: map[string]string{"serial_no": "clean"}},
		{SerialNumber: "CLEAN"},
	}
	if got := serialAnomalyCount(canonical); got != 1 {
		t.Fatalf("expected 1 anomaly from canonical serials, got %d", got)
	}

	fallback := []Component{
		{Extra: map[string]string{"serial_no": "xxx-22"}},
		{Extra: map[string]string{"serial_no": "ok"}},
	}
	if got := serialAnomalyCount(fallback); got != 1 {
		t.Fatalf("expected 1 anomaly from fallback column, got %d", got)
	}

	if got := serialAnomalyCount([]Component{{PartName: "A"}}); got != 0 {
		t.Fatalf("expected 0 anomalies without serial columns, got %d", got)
	}
}

func TestFormatCount(t *testing.T) {
	cases := map[int]string{
		0:       "0",
		999:     "999",
		1000:    "1,000",
		1234567: "1,234,567",
		-4321:   "-4,321",
	}
	for value, expected := range cases {
		if got := formatCount(value); got != expected {
			t.Fatalf("formatCount(%d) = %q, expected %q", value, got, expected)
		}
	}
}

func TestBuildReportRecomputesFreshly(t *testing.T) {
	components := preparedSample(t)
	reportDate := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	first := buildReport(components, reportDate, defaultTopParts, defaultTopSlots)
	second := buildReport(components, reportDate, defaultTopParts, defaultTopSlots)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeated aggregation produced different reports")
	}
}
