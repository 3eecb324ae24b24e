package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	headerScanLimit      = 10
	headerScoreThreshold = 4
)

// Grid is a raw worksheet: unique column labels plus string-typed data rows.
type Grid struct {
	Headers []string
	Rows    [][]string
}

// expectedHeaderTokens is the vocabulary used to locate the genuine header row
// inside exports that prepend report metadata above the column labels.
var expectedHeaderTokens = map[string]struct{}{
	"part name":            {},
	"oem part no":          {},
	"oem part number":      {},
	"serial no / batch no": {},
	"serial number":        {},
	"installed on":         {},
	"aircraft":             {},
	"aircraft description": {},
	"config slot":          {},
	"due date":             {},
	"task":                 {},
	"position":             {},
}

var emptySentinels = map[string]struct{}{
	"":     {},
	"none": {},
	"nan":  {},
	"null": {},
	"na":   {},
}

var headerNoiseTokens = []string{
	"hard time report",
	"report generated",
	"printed on",
}

func loadWorkbook(path string, sheet string) ([][]string, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("workbook not found: %s", path)
		}
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return loadCSVRows(path)
	}
	return loadExcelRows(path, sheet)
}

func loadCSVRows(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("unable to read CSV: %w", err)
	}
	return rows, nil
}

func loadExcelRows(path string, sheet string) ([][]string, error) {
	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open workbook: %w", err)
	}
	defer file.Close()

	if sheet == "" {
		sheets := file.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets: %s", path)
		}
		sheet = sheets[0]
	}

	rows, err := file.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("unable to read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func availableSheets(path string) ([]string, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("workbook not found: %s", path)
		}
		return nil, err
	}
	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open workbook: %w", err)
	}
	defer file.Close()
	return file.GetSheetList(), nil
}

func isEmptyValue(value string) bool {
	_, ok := emptySentinels[strings.ToLower(strings.TrimSpace(value))]
	return ok
}

// scoreHeaderRow counts how many cells of the candidate row belong to the
// expected-header vocabulary.
func scoreHeaderRow(row []string) int {
	seen := map[string]struct{}{}
	for _, cell := range row {
		token := strings.ToLower(strings.TrimSpace(cell))
		if _, empty := emptySentinels[token]; empty {
			continue
		}
		if _, ok := expectedHeaderTokens[token]; ok {
			seen[token] = struct{}{}
		}
	}
	return len(seen)
}

// findHeaderRow returns the index of the first row within the scan window
// whose token overlap with the expected vocabulary reaches the threshold.
func findHeaderRow(rows [][]string) (int, bool) {
	limit := headerScanLimit
	if len(rows) < limit {
		limit = len(rows)
	}
	for i := 0; i < limit; i++ {
		if scoreHeaderRow(rows[i]) >= headerScoreThreshold {
			return i, true
		}
	}
	return 0, false
}

// repairHeader promotes the genuine header row, discards metadata rows above
// it, fills blank labels with positional placeholders, deduplicates labels,
// and drops empty or noise columns. It never fails; worst case is the
// original first row trimmed and used verbatim.
func repairHeader(rows [][]string) *Grid {
	if len(rows) == 0 {
		return &Grid{}
	}

	headerIdx, promoted := findHeaderRow(rows)
	if !promoted {
		headerIdx = 0
	}
	header := rows[headerIdx]
	data := rows[headerIdx+1:]

	width := len(header)
	for _, row := range data {
		if len(row) > width {
			width = len(row)
		}
	}

	labels := make([]string, width)
	for i := 0; i < width; i++ {
		label := ""
		if i < len(header) {
			label = strings.TrimSpace(header[i])
		}
		if isEmptyValue(label) {
			label = fmt.Sprintf("column_%d", i+1)
		}
		labels[i] = label
	}
	labels = dedupeLabels(labels)

	keep := make([]int, 0, width)
	for col := 0; col < width; col++ {
		if isNoiseLabel(labels[col]) {
			continue
		}
		populated := false
		for _, row := range data {
			if !isEmptyValue(getValue(row, col)) {
				populated = true
				break
			}
		}
		if populated {
			keep = append(keep, col)
		}
	}

	grid := &Grid{Headers: make([]string, 0, len(keep))}
	for _, col := range keep {
		grid.Headers = append(grid.Headers, labels[col])
	}
	grid.Rows = make([][]string, 0, len(data))
	for _, row := range data {
		out := make([]string, 0, len(keep))
		for _, col := range keep {
			out = append(out, getValue(row, col))
		}
		grid.Rows = append(grid.Rows, out)
	}
	return grid
}

func isNoiseLabel(label string) bool {
	lowered := strings.ToLower(label)
	if strings.HasPrefix(lowered, "unnamed") {
		return true
	}
	for _, token := range headerNoiseTokens {
		if strings.Contains(lowered, token) {
			return true
		}
	}
	return false
}

// dedupeLabels suffixes repeated labels with an incrementing counter so every
// column name is unique.
func dedupeLabels(labels []string) []string {
	seen := map[string]int{}
	result := make([]string, len(labels))
	for i, label := range labels {
		count := seen[label]
		seen[label] = count + 1
		if count == 0 {
			result[i] = label
			continue
		}
		candidate := fmt.Sprintf("%s_%d", label, count+1)
		for seen[candidate] > 0 {
			count++
			candidate = fmt.Sprintf("%s_%d", label, count+1)
		}
		seen[candidate] = 1
		seen[label] = count + 1
		result[i] = candidate
	}
	return result
}

func getValue(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
