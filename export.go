package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/xuri/excelize/v2"
)

var componentColumns = []string{
	"part_name",
	"oem_part_number",
	"serial_number",
	"installation_site",
	"config_slot",
	"due_date",
	"task_code",
	"position",
	"days_until_due",
	"is_overdue",
	"days_overdue",
	"due_bucket",
	"aircraft_registration",
	"aircraft_type",
}

// componentTable renders the normalized table for export: the canonical
// columns followed by any preserved extra columns in sorted order.
func componentTable(components []Component) ReportTable {
	extraKeys := map[string]struct{}{}
	for _, component := range components {
		for key := range component.Extra {
			extraKeys[key] = struct{}{}
		}
	}
	extras := make([]string, 0, len(extraKeys))
	for key := range extraKeys {
		extras = append(extras, key)
	}
	sort.Strings(extras)

	table := ReportTable{Columns: append(append([]string{}, componentColumns...), extras...)}
	for _, component := range components {
		row := []string{
			component.PartName,
			component.OEMPartNumber,
			component.SerialNumber,
			component.InstallationSite,
			component.ConfigSlot,
			formatDate(component.DueDate),
			component.TaskCode,
			component.Position,
			fmt.Sprintf("%.2f", component.DaysUntilDue),
			strconv.FormatBool(component.IsOverdue),
			fmt.Sprintf("%.2f", component.DaysOverdue),
			component.DueBucket,
			component.AircraftRegistration,
			component.AircraftType,
		}
		for _, key := range extras {
			row = append(row, component.Extra[key])
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

func summaryTable(summary ComponentSummary) ReportTable {
	avgUntilDue := missingCell
	avgOverdue := missingCell
	if summary.TotalComponents > 0 {
		avgUntilDue = formatFloat(summary.AverageDaysUntilDue)
		avgOverdue = formatFloat(summary.AverageDaysOverdue)
	}
	return ReportTable{
		Columns: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Total components", formatCount(summary.TotalComponents)},
			{"Unique parts", formatCount(summary.UniqueParts)},
			{"Unique aircraft", formatCount(summary.UniqueAircraft)},
			{"Overdue components", formatCount(summary.OverdueComponents)},
			{"Due within 30 days", formatCount(summary.DueWithin30Days)},
			{"Due within 90 days", formatCount(summary.DueWithin90Days)},
			{"Serials with XXX", formatCount(summary.SerialAnomalies)},
			{"Average days until due", avgUntilDue},
			{"Average days overdue", avgOverdue},
			{"Report generated", formatDate(summary.ReportDate)},
		},
	}
}

func renderAircraftTable(entries []AircraftExposure) ReportTable {
	table := ReportTable{Columns: []string{"Aircraft", "Components", "Overdue", "Due ≤ 30d"}}
	for _, entry := range entries {
		table.Rows = append(table.Rows, []string{
			entry.Aircraft,
			formatCount(entry.Components),
			formatCount(entry.Overdue),
			formatCount(entry.DueWithin30),
		})
	}
	return table
}

func renderPartTable(entries []PartExposure) ReportTable {
	table := ReportTable{Columns: []string{"Part Name", "Occurrences", "Overdue"}}
	for _, entry := range entries {
		table.Rows = append(table.Rows, []string{
			entry.PartName,
			formatCount(entry.Occurrences),
			formatCount(entry.Overdue),
		})
	}
	return table
}

func renderBucketTable(entries []BucketCount) ReportTable {
	table := ReportTable{Columns: []string{"Due Bucket", "Components"}}
	for _, entry := range entries {
		table.Rows = append(table.Rows, []string{entry.Bucket, formatCount(entry.Components)})
	}
	return table
}

func renderConfigSlotTable(entries []ConfigSlotSchedule) ReportTable {
	table := ReportTable{Columns: []string{"Config Slot", "Components", "Earliest Due", "Median Due", "Latest Due", "Avg Days Until Due"}}
	for _, entry := range entries {
		table.Rows = append(table.Rows, []string{
			entry.ConfigSlot,
			formatCount(entry.Components),
			formatDate(entry.EarliestDue),
			formatDate(entry.MedianDue),
			formatDate(entry.LatestDue),
			fmt.Sprintf("%.1f", entry.AvgDaysUntilDue),
		})
	}
	return table
}

// exportExcelReport writes the analytics workbook: the enriched component
// table, the headline summary, and every non-empty breakdown, one sheet each.
func exportExcelReport(report Report, path string) error {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", "Components"); err != nil {
		return err
	}
	if err := writeSheet(file, "Components", componentTable(report.Components), false); err != nil {
		return err
	}
	if err := writeSheet(file, "Summary", summaryTable(report.Summary), true); err != nil {
		return err
	}

	sections := []struct {
		name  string
		table ReportTable
		empty bool
	}{
		{"Aircraft Exposure", renderAircraftTable(report.Aircraft), len(report.Aircraft) == 0},
		{"Top Components", renderPartTable(report.Parts), len(report.Parts) == 0},
		{"Due Buckets", renderBucketTable(report.Buckets), len(report.Buckets) == 0},
		{"Config Slot Schedule", renderConfigSlotTable(report.ConfigSlots), len(report.ConfigSlots) == 0},
	}
	for _, section := range sections {
		if section.empty {
			continue
		}
		if err := writeSheet(file, section.name, section.table, true); err != nil {
			return err
		}
	}

	if err := file.SaveAs(path); err != nil {
		return fmt.Errorf("unable to write workbook: %w", err)
	}
	return nil
}

func writeSheet(file *excelize.File, sheet string, table ReportTable, create bool) error {
	if create {
		if _, err := file.NewSheet(sheet); err != nil {
			return err
		}
	}
	header := make([]interface{}, len(table.Columns))
	for i, column := range table.Columns {
		header[i] = column
	}
	cell, err := excelize.CoordinatesToCellName(1, 1)
	if err != nil {
		return err
	}
	if err := file.SetSheetRow(sheet, cell, &header); err != nil {
		return err
	}
	for i, row := range table.Rows {
		cells := make([]interface{}, len(row))
		for j, value := range row {
			cells[j] = value
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := file.SetSheetRow(sheet, cell, &cells); err != nil {
			return err
		}
	}
	return nil
}

// writeConfigSlotCSV exports the config-slot schedule as a CSV extract.
func writeConfigSlotCSV(entries []ConfigSlotSchedule, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	table := renderConfigSlotTable(entries)
	writer := csv.NewWriter(file)
	if err := writer.Write(table.Columns); err != nil {
		return err
	}
	for _, row := range table.Rows {
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func writeJSON(report Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
