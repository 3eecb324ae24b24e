package main

import (
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
)

const (
	pdfPageWidth   = 190.0
	pdfSectionRows = 15
)

// buildPDFReport writes an A4 summary document: headline metrics plus the
// breakdown sections, each truncated to a printable number of rows. Callers
// treat a failure here as a warning; the PDF is an enhancement, not a
// required output.
func buildPDFReport(report Report, path string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Hard-Time Component Analytics", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "Hard-Time Component Analytics", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	writePDFTable(pdf, "Headline Metrics", summaryTable(report.Summary), 0)
	writePDFTable(pdf, "Cohort Summary", report.Cohorts, 0)
	writePDFTable(pdf, "Aircraft Exposure", renderAircraftTable(report.Aircraft), pdfSectionRows)
	writePDFTable(pdf, "Top Components", renderPartTable(report.Parts), pdfSectionRows)
	writePDFTable(pdf, "Due Bucket Mix", renderBucketTable(report.Buckets), 0)
	writePDFTable(pdf, "Config Slot Schedule", renderConfigSlotTable(report.ConfigSlots), pdfSectionRows)

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("unable to write PDF: %w", err)
	}
	return nil
}

func writePDFTable(pdf *fpdf.Fpdf, title string, table ReportTable, maxRows int) {
	if len(table.Rows) == 0 {
		return
	}
	rows := table.Rows
	if maxRows > 0 && len(rows) > maxRows {
		rows = rows[:maxRows]
	}

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, pdfText(title), "", 1, "L", false, 0, "")

	width := pdfPageWidth / float64(len(table.Columns))
	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetFillColor(0, 43, 85)
	pdf.SetTextColor(255, 255, 255)
	for _, column := range table.Columns {
		pdf.CellFormat(width, 6, pdfText(column), "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(0, 0, 0)
	for _, row := range rows {
		for col := 0; col < len(table.Columns); col++ {
			value := ""
			if col < len(row) {
				value = row[col]
			}
			pdf.CellFormat(width, 6, pdfText(value), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)
}

// pdfText rewrites characters outside the core-font codepage.
func pdfText(value string) string {
	value = strings.ReplaceAll(value, "≤", "<=")
	value = strings.ReplaceAll(value, "—", "-")
	return value
}
