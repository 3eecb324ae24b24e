package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/olekukonko/tablewriter"
)

func main() {
	workbookPath := flag.String("workbook", "", "Path to the hard-time report workbook (XLSX or CSV)")
	sheetName := flag.String("sheet", "", "Worksheet name to load; defaults to the first sheet")
	listSheets := flag.Bool("list-sheets", false, "List worksheet names and exit")
	asOf := flag.String("as-of", "", "Reference date for due-date deltas (YYYY-MM-DD); defaults to today UTC")
	excelOut := flag.String("excel", "", "Optional XLSX output path for the analytics workbook")
	pdfOut := flag.String("pdf", "", "Optional PDF output path; skipped with a warning on failure")
	csvOut := flag.String("csv", "", "Optional CSV output path for the config-slot schedule")
	jsonOut := flag.String("json", "", "Optional JSON output path for the full report")
	topParts := flag.Int("top-parts", defaultTopParts, "Top N parts in the part breakdown")
	topSlots := flag.Int("top-slots", defaultTopSlots, "Top N config slots in the schedule breakdown")
	showProfile := flag.Bool("profile", false, "Print per-column type diagnostics")
	dbEnabled := flag.Bool("db", false, "Store the report run in Postgres (requires HTC_AUDIT_DB_URL or DATABASE_URL)")
	dbSchema := flag.String("db-schema", "htc_audit", "Postgres schema for report tables")
	dbTag := flag.String("db-tag", "", "Optional label for this report run")
	initDB := flag.Bool("init-db", false, "Initialize database schema and seed data if empty")
	verbose := flag.Bool("verbose", false, "Enable verbose logging")
	flag.Parse()

	log := newLogger(*verbose)

	if *workbookPath == "" {
		exitWithError(errors.New("--workbook is required"))
	}

	if *listSheets {
		sheets, err := availableSheets(*workbookPath)
		if err != nil {
			exitWithError(err)
		}
		for _, sheet := range sheets {
			fmt.Println(sheet)
		}
		return
	}

	referenceDate := dateOnly(time.Now().UTC())
	if *asOf != "" {
		parsed, err := parseDate(*asOf)
		if err != nil {
			exitWithError(fmt.Errorf("invalid --as-of date: %w", err))
		}
		referenceDate = dateOnly(parsed)
	}

	rows, err := loadWorkbook(*workbookPath, *sheetName)
	if err != nil {
		exitWithError(err)
	}
	log.Debug("workbook loaded", "path", *workbookPath, "rows", len(rows))

	grid := canonicalizeGrid(repairHeader(rows))
	components := prepareComponents(grid, referenceDate)
	if dropped := len(grid.Rows) - len(components); dropped > 0 {
		log.Warn("rows without a parseable due date dropped", "dropped", dropped)
	}

	report := buildReport(components, referenceDate, *topParts, *topSlots)
	printReport(report, *workbookPath, referenceDate)

	if *showProfile {
		fmt.Println("\nColumn profile")
		printTable(profileColumns(grid))
	}

	if *excelOut != "" {
		if err := exportExcelReport(report, *excelOut); err != nil {
			exitWithError(err)
		}
		log.Info("analytics workbook saved", "path", *excelOut)
	}

	if *csvOut != "" {
		if err := writeConfigSlotCSV(report.ConfigSlots, *csvOut); err != nil {
			exitWithError(err)
		}
		log.Info("config-slot schedule saved", "path", *csvOut)
	}

	if *jsonOut != "" {
		if err := writeJSON(report, *jsonOut); err != nil {
			exitWithError(err)
		}
		log.Info("JSON report saved", "path", *jsonOut)
	}

	if *pdfOut != "" {
		if err := buildPDFReport(report, *pdfOut); err != nil {
			log.Warn("PDF export skipped", "error", err)
		} else {
			log.Info("PDF report saved", "path", *pdfOut)
		}
	}

	if *dbEnabled || *initDB {
		dbURL := dbURLFromEnv()
		if dbURL == "" {
			exitWithError(errors.New("database URL missing; set HTC_AUDIT_DB_URL or DATABASE_URL"))
		}
		cfg := DBConfig{
			URL:    dbURL,
			Schema: *dbSchema,
			Tag:    *dbTag,
		}
		seeded := false
		if *initDB {
			runID, err := seedDatabase(report, cfg)
			if err != nil {
				exitWithError(err)
			}
			if runID != "" {
				seeded = true
				log.Info("seeded Postgres with initial report run", "run_id", runID)
			} else {
				log.Info("report data already present; skipping seed")
			}
		}
		if *dbEnabled {
			if seeded {
				log.Info("skipped duplicate insert; current report already used for seed")
			} else {
				runID, err := storeReportInDB(report, cfg)
				if err != nil {
					exitWithError(err)
				}
				log.Info("stored report run in Postgres", "run_id", runID)
			}
		}
	}
}

func printReport(report Report, inputPath string, referenceDate time.Time) {
	summary := report.Summary

	fmt.Println("Hard-Time Component Analytics")
	fmt.Println(strings.Repeat("=", 38))
	fmt.Printf("Input: %s\n", filepath.Base(inputPath))
	fmt.Printf("Reference date: %s\n", formatDate(referenceDate))
	fmt.Printf("Total components: %s\n", formatCount(summary.TotalComponents))
	fmt.Printf("Unique parts: %s | Unique aircraft: %s\n", formatCount(summary.UniqueParts), formatCount(summary.UniqueAircraft))
	fmt.Printf("Overdue: %s | Due <=30d: %s | Due <=90d: %s\n",
		formatCount(summary.OverdueComponents),
		formatCount(summary.DueWithin30Days),
		formatCount(summary.DueWithin90Days),
	)
	if summary.SerialAnomalies > 0 {
		fmt.Printf("Serials with %s: %s\n", serialAnomalyToken, formatCount(summary.SerialAnomalies))
	}
	if summary.TotalComponents > 0 {
		fmt.Printf("Avg days until due: %s | Avg days overdue: %s\n",
			formatFloat(summary.AverageDaysUntilDue),
			formatFloat(summary.AverageDaysOverdue),
		)
	}

	fmt.Println("\nSummary metrics")
	printTable(report.Cohorts)

	if len(report.Aircraft) > 0 {
		fmt.Println("\nAircraft exposure")
		printTable(renderAircraftTable(report.Aircraft))
	}
	if len(report.Parts) > 0 {
		fmt.Println("\nTop components")
		printTable(renderPartTable(report.Parts))
	}
	if len(report.Buckets) > 0 {
		fmt.Println("\nDue bucket mix")
		printTable(renderBucketTable(report.Buckets))
	}
	if len(report.ConfigSlots) > 0 {
		fmt.Println("\nConfig slot schedule")
		printTable(renderConfigSlotTable(report.ConfigSlots))
	}
}

func printTable(table ReportTable) {
	writer := tablewriter.NewWriter(os.Stdout)
	writer.SetAutoWrapText(false)
	writer.SetAutoFormatHeaders(false)
	writer.SetHeaderAlignment(tablewriter.ALIGN_CENTER)
	writer.SetBorder(true)
	writer.SetHeader(table.Columns)
	for _, row := range table.Rows {
		writer.Append(row)
	}
	writer.Render()
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: level,
	}))
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}
