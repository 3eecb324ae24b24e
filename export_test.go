package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

func sampleReport(t *testing.T) Report {
	t.Helper()
	components := preparedSample(t)
	reportDate := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	return buildReport(components, reportDate, defaultTopParts, defaultTopSlots)
}

func TestComponentTableColumns(t *testing.T) {
	components := preparedSample(t)
	table := componentTable(components)

	if len(table.Columns) != len(componentColumns) {
		t.Fatalf("expected %d columns, got %d", len(componentColumns), len(table.Columns))
	}
	if len(table.Rows) != len(components) {
		t.Fatalf("expected %d rows, got %d", len(components), len(table.Rows))
	}
	if table.Rows[0][5] != "2024-09-10" {
		t.Fatalf("expected ISO due date, got %q", table.Rows[0][5])
	}
	if table.Rows[1][9] != "true" {
		t.Fatalf("expected overdue flag rendered, got %q", table.Rows[1][9])
	}
}

func TestExportExcelReport(t *testing.T) {
	report := sampleReport(t)
	path := filepath.Join(t.TempDir(), "analytics.xlsx")
	if err := exportExcelReport(report, path); err != nil {
		t.Fatalf("export excel: %v", err)
	}

	file, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	expected := []string{"Components", "Summary", "Aircraft Exposure", "Top Components", "Due Buckets", "Config Slot Schedule"}
	for _, name := range expected {
		found := false
		for _, sheet := range sheets {
			if sheet == name {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("expected sheet %q in %v", name, sheets)
		}
	}

	rows, err := file.GetRows("Summary")
	if err != nil {
		t.Fatalf("read summary sheet: %v", err)
	}
	if len(rows) == 0 || rows[0][0] != "Metric" {
		t.Fatalf("unexpected summary sheet header: %v", rows)
	}
}

func TestWriteConfigSlotCSV(t *testing.T) {
	report := sampleReport(t)
	path := filepath.Join(t.TempDir(), "schedule.csv")
	if err := writeConfigSlotCSV(report.ConfigSlots, path); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != len(report.ConfigSlots)+1 {
		t.Fatalf("expected header plus %d rows, got %d lines", len(report.ConfigSlots), len(lines))
	}
	if !strings.HasPrefix(lines[0], "Config Slot,Components,Earliest Due") {
		t.Fatalf("unexpected header: %q", lines[0])
	}
}

func TestWriteJSONRoundTrip(t *testing.T) {
	report := sampleReport(t)
	path := filepath.Join(t.TempDir(), "report.json")
	if err := writeJSON(report, path); err != nil {
		t.Fatalf("write json: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read json: %v", err)
	}
	var decoded Report
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if decoded.Summary.TotalComponents != report.Summary.TotalComponents {
		t.Fatalf("summary total mismatch: %d vs %d", decoded.Summary.TotalComponents, report.Summary.TotalComponents)
	}
	if len(decoded.Components) != len(report.Components) {
		t.Fatalf("component count mismatch")
	}
}

func TestBuildPDFReportWritesFile(t *testing.T) {
	report := sampleReport(t)
	path := filepath.Join(t.TempDir(), "analytics.pdf")
	if err := buildPDFReport(report, path); err != nil {
		t.Fatalf("build pdf: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat pdf: %v", err)
	}
	if info.Size() == 0 {
		t.Fatalf("expected non-empty PDF")
	}
}

func TestSummaryTableEmptyAverages(t *testing.T) {
	table := summaryTable(buildSummary(nil, time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)))
	for _, row := range table.Rows {
		if row[0] == "Average days until due" && row[1] != missingCell {
			t.Fatalf("expected placeholder average, got %q", row[1])
		}
	}
}
