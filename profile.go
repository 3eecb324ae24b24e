package main

import (
	"fmt"
	"strconv"
	"strings"
)

const profileSampleSize = 3

var profileColumnsHeader = []string{
	"Column",
	"Storage",
	"Inferred Type",
	"Non-null %",
	"Numeric %",
	"Unique Ratio",
	"Sample",
}

// profileColumns reports per-column type and quality diagnostics for a grid.
// Purely observational; nothing downstream depends on it.
func profileColumns(grid *Grid) ReportTable {
	table := ReportTable{Columns: profileColumnsHeader}
	if grid == nil || len(grid.Headers) == 0 {
		return table
	}

	total := len(grid.Rows)
	for col, header := range grid.Headers {
		nonNull := 0
		numeric := 0
		distinct := map[string]struct{}{}
		samples := make([]string, 0, profileSampleSize)
		kinds := map[string]struct{}{}

		for _, row := range grid.Rows {
			value := getValue(row, col)
			if isEmptyValue(value) {
				continue
			}
			nonNull++
			distinct[value] = struct{}{}
			if len(samples) < profileSampleSize {
				samples = append(samples, value)
			}
			if _, err := strconv.ParseFloat(value, 64); err == nil {
				numeric++
			}
			kinds[inferValueKind(value)] = struct{}{}
		}

		ratio := 0.0
		nonNullPct := 0.0
		numericPct := 0.0
		if total > 0 {
			ratio = float64(len(distinct)) / float64(total)
			nonNullPct = float64(nonNull) / float64(total) * 100
			numericPct = float64(numeric) / float64(total) * 100
		}

		table.Rows = append(table.Rows, []string{
			header,
			"string",
			inferredColumnType(kinds),
			fmt.Sprintf("%.2f", nonNullPct),
			fmt.Sprintf("%.2f", numericPct),
			fmt.Sprintf("%.3f", ratio),
			strings.Join(samples, ", "),
		})
	}
	return table
}

func inferValueKind(value string) string {
	if _, err := strconv.ParseInt(value, 10, 64); err == nil {
		return "integer"
	}
	if _, err := strconv.ParseFloat(value, 64); err == nil {
		return "float"
	}
	switch strings.ToLower(value) {
	case "true", "false":
		return "boolean"
	}
	if _, ok := parseWorkbookDate(value); ok {
		return "date"
	}
	return "string"
}

// inferredColumnType collapses the observed value kinds into one label.
// Integer and float observations together still count as numeric.
func inferredColumnType(kinds map[string]struct{}) string {
	if len(kinds) == 0 {
		return "empty"
	}
	if len(kinds) == 1 {
		for kind := range kinds {
			return kind
		}
	}
	if len(kinds) == 2 {
		_, hasInt := kinds["integer"]
		_, hasFloat := kinds["float"]
		if hasInt && hasFloat {
			return "float"
		}
	}
	return "mixed"
}
