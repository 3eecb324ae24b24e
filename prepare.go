package main

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Due buckets classify a component by its distance to the due date. Unknown
// is unreachable after the row-drop policy but kept as a defensive branch.
const (
	bucketOverdue = "Overdue"
	bucketDue7    = "Due ≤ 7d"
	bucketDue30   = "Due ≤ 30d"
	bucketDue90   = "Due ≤ 90d"
	bucketLater   = "Due > 90d"
	bucketUnknown = "Unknown"
)

const dateColumnHint = "date"

var (
	nonAlnumPattern     = regexp.MustCompile(`[^0-9a-zA-Z]+`)
	registrationPattern = regexp.MustCompile(`\b[A-Z]{2}-[A-Z0-9]{2,}\b`)
)

// columnAliases maps canonicalised header variants to the fixed field set.
var columnAliases = map[string]string{
	"part_name":              "part_name",
	"oem_part_no":            "oem_part_number",
	"oem_part_number":        "oem_part_number",
	"serial_no_batch_no":     "serial_number",
	"serial_number":          "serial_number",
	"installed_on":           "installation_site",
	"aircraft":               "installation_site",
	"aircraft_description":   "installation_site",
	"config_slot":            "config_slot",
	"config_slot_definition": "config_slot",
	"due_date":               "due_date",
	"due":                    "due_date",
	"due_dt":                 "due_date",
	"due_dt_local":           "due_date",
	"due_dt_utc":             "due_date",
	"task":                   "task_code",
	"task_code":              "task_code",
	"position":               "position",
}

var canonicalFields = map[string]struct{}{
	"part_name":         {},
	"oem_part_number":   {},
	"serial_number":     {},
	"installation_site": {},
	"config_slot":       {},
	"due_date":          {},
	"task_code":         {},
	"position":          {},
}

// Component is one normalized maintenance-tracked component/task instance.
type Component struct {
	PartName             string            `json:"part_name"`
	OEMPartNumber        string            `json:"oem_part_number"`
	SerialNumber         string            `json:"serial_number"`
	InstallationSite     string            `json:"installation_site"`
	ConfigSlot           string            `json:"config_slot"`
	DueDate              time.Time         `json:"due_date"`
	TaskCode             string            `json:"task_code"`
	Position             string            `json:"position"`
	DaysUntilDue         float64           `json:"days_until_due"`
	IsOverdue            bool              `json:"is_overdue"`
	DaysOverdue          float64           `json:"days_overdue"`
	DueBucket            string            `json:"due_bucket"`
	AircraftRegistration string            `json:"aircraft_registration"`
	AircraftType         string            `json:"aircraft_type"`
	Extra                map[string]string `json:"extra,omitempty"`
}

// canonicalColumn converts a header to snake_case and resolves known aliases.
// Unrecognized headers keep their snake_case form.
func canonicalColumn(raw string) string {
	clean := nonAlnumPattern.ReplaceAllString(strings.ToLower(strings.TrimSpace(raw)), "_")
	clean = strings.Trim(clean, "_")
	if target, ok := columnAliases[clean]; ok {
		return target
	}
	return clean
}

// canonicalizeGrid returns a renamed copy of the grid. Distinct raw headers
// that collapse onto the same canonical name are suffixed, never overwritten.
func canonicalizeGrid(grid *Grid) *Grid {
	renamed := make([]string, len(grid.Headers))
	for i, header := range grid.Headers {
		renamed[i] = canonicalColumn(header)
	}
	return &Grid{Headers: dedupeLabels(renamed), Rows: grid.Rows}
}

func columnIndex(grid *Grid, name string) int {
	for i, header := range grid.Headers {
		if header == name {
			return i
		}
	}
	return -1
}

// prepareComponents derives the normalized component table from a
// canonicalized grid. Rows without a parseable due date are dropped before
// any derived field is computed; risk metrics are meaningless without one.
func prepareComponents(grid *Grid, referenceDate time.Time) []Component {
	if grid == nil || len(grid.Rows) == 0 {
		return nil
	}
	if referenceDate.IsZero() {
		referenceDate = dateOnly(time.Now().UTC())
	}

	dueIdx := columnIndex(grid, "due_date")
	if dueIdx < 0 {
		return nil
	}

	partIdx := columnIndex(grid, "part_name")
	oemIdx := columnIndex(grid, "oem_part_number")
	serialIdx := columnIndex(grid, "serial_number")
	siteIdx := columnIndex(grid, "installation_site")
	slotIdx := columnIndex(grid, "config_slot")
	taskIdx := columnIndex(grid, "task_code")
	positionIdx := columnIndex(grid, "position")

	components := make([]Component, 0, len(grid.Rows))
	for _, row := range grid.Rows {
		due, ok := parseWorkbookDate(getValue(row, dueIdx))
		if !ok {
			continue
		}

		component := Component{
			PartName:         getValue(row, partIdx),
			OEMPartNumber:    getValue(row, oemIdx),
			SerialNumber:     getValue(row, serialIdx),
			InstallationSite: getValue(row, siteIdx),
			ConfigSlot:       getValue(row, slotIdx),
			DueDate:          due,
			TaskCode:         getValue(row, taskIdx),
			Position:         getValue(row, positionIdx),
		}

		days := due.Sub(referenceDate).Hours() / 24
		component.DaysUntilDue = days
		component.IsOverdue = days < 0
		if component.IsOverdue {
			component.DaysOverdue = -days
		}
		component.DueBucket = dueBucket(days, true)

		component.AircraftRegistration = extractRegistration(component.InstallationSite)
		if component.AircraftRegistration == "" {
			component.AircraftRegistration = extractRegistration(component.ConfigSlot)
		}
		if component.AircraftRegistration == "" {
			component.AircraftRegistration = extractRegistration(component.Position)
		}
		component.AircraftType = extractAircraftType(component.InstallationSite)

		for col, header := range grid.Headers {
			if _, canonical := canonicalFields[header]; canonical {
				continue
			}
			value := getValue(row, col)
			if strings.Contains(header, dateColumnHint) {
				if parsed, ok := parseWorkbookDate(value); ok {
					value = parsed.Format("2006-01-02")
				} else {
					value = ""
				}
			}
			if component.Extra == nil {
				component.Extra = map[string]string{}
			}
			component.Extra[header] = value
		}

		components = append(components, component)
	}
	return components
}

// dueBucket classifies days-until-due. Thresholds are evaluated in order and
// the 7/30/90 boundaries are closed.
func dueBucket(days float64, known bool) string {
	switch {
	case !known:
		return bucketUnknown
	case days < 0:
		return bucketOverdue
	case days <= 7:
		return bucketDue7
	case days <= 30:
		return bucketDue30
	case days <= 90:
		return bucketDue90
	default:
		return bucketLater
	}
}

// extractRegistration pulls a tail-number-like token (two letters, hyphen,
// two or more alphanumerics) out of free text. Empty string on no match.
func extractRegistration(value string) string {
	if value == "" {
		return ""
	}
	return registrationPattern.FindString(value)
}

// extractAircraftType returns the text preceding the first " - " separator.
func extractAircraftType(value string) string {
	idx := strings.Index(value, " - ")
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(value[:idx])
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"01-02-2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"02-Jan-2006",
	"2-Jan-06",
	"01-02-06",
	"1/2/06",
}

// excelEpoch anchors workbook serial date numbers.
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// parseWorkbookDate parses a cell into a naive UTC timestamp. It tries the
// known layouts first, then falls back to workbook serial numbers. Invalid
// values report false rather than an error.
func parseWorkbookDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if isEmptyValue(value) {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			utc := parsed.UTC()
			return time.Date(utc.Year(), utc.Month(), utc.Day(), utc.Hour(), utc.Minute(), utc.Second(), 0, time.UTC), true
		}
	}
	if serial, err := strconv.ParseFloat(value, 64); err == nil && serial >= 20000 && serial <= 80000 {
		days := int(serial)
		fraction := serial - float64(days)
		parsed := excelEpoch.AddDate(0, 0, days).Add(time.Duration(fraction * 24 * float64(time.Hour)))
		return parsed, true
	}
	return time.Time{}, false
}

func parseDate(value string) (time.Time, error) {
	if parsed, ok := parseWorkbookDate(value); ok {
		return parsed, nil
	}
	return time.Time{}, fmt.Errorf("unsupported date format: %s", value)
}

func dateOnly(value time.Time) time.Time {
	if value.IsZero() {
		return value
	}
	return time.Date(value.Year(), value.Month(), value.Day(), 0, 0, 0, 0, value.Location())
}

func formatDate(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.Format("2006-01-02")
}
