package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

type DBConfig struct {
	URL    string
	Schema string
	Tag    string
}

func dbURLFromEnv() string {
	if value := strings.TrimSpace(os.Getenv("HTC_AUDIT_DB_URL")); value != "" {
		return value
	}
	return strings.TrimSpace(os.Getenv("DATABASE_URL"))
}

var schemaNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func sanitizeSchema(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", errors.New("db schema is required")
	}
	if !schemaNamePattern.MatchString(value) {
		return "", fmt.Errorf("invalid schema name: %s", value)
	}
	return value, nil
}

// seedDatabase bootstraps the audit schema and stores the current report as
// the initial run, unless run history already exists.
func seedDatabase(report Report, cfg DBConfig) (string, error) {
	schema, err := sanitizeSchema(cfg.Schema)
	if err != nil {
		return "", err
	}

	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return "", err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 12*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return "", err
	}
	if err := ensureSchema(ctx, db, schema); err != nil {
		return "", err
	}

	var count int
	if err := db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s.report_runs`, schema)).Scan(&count); err != nil {
		return "", err
	}
	if count > 0 {
		return "", nil
	}

	return storeReportTx(ctx, db, report, schema, cfg.Tag)
}

func storeReportInDB(report Report, cfg DBConfig) (string, error) {
	schema, err := sanitizeSchema(cfg.Schema)
	if err != nil {
		return "", err
	}

	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return "", err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 12*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return "", err
	}
	if err := ensureSchema(ctx, db, schema); err != nil {
		return "", err
	}

	return storeReportTx(ctx, db, report, schema, cfg.Tag)
}

func storeReportTx(ctx context.Context, db *sql.DB, report Report, schema string, tag string) (string, error) {
	runID := uuid.New()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s.report_runs (
			id, report_date, total_components, unique_parts, unique_aircraft,
			overdue_components, due_within_30, due_within_90, serial_anomalies,
			avg_days_until_due, avg_days_overdue, run_tag
		) VALUES (
			$1,$2,$3,$4,$5,
			$6,$7,$8,$9,
			$10,$11,$12
		)`, schema),
		runID,
		dateOnly(report.Summary.ReportDate),
		report.Summary.TotalComponents,
		report.Summary.UniqueParts,
		report.Summary.UniqueAircraft,
		report.Summary.OverdueComponents,
		report.Summary.DueWithin30Days,
		report.Summary.DueWithin90Days,
		report.Summary.SerialAnomalies,
		report.Summary.AverageDaysUntilDue,
		report.Summary.AverageDaysOverdue,
		nullString(tag),
	)
	if err != nil {
		_ = tx.Rollback()
		return "", err
	}

	insertAircraftSQL := fmt.Sprintf(`
		INSERT INTO %s.report_aircraft_exposure (
			id, run_id, aircraft, components, overdue, due_within_30
		) VALUES (
			$1,$2,$3,$4,$5,$6
		)`, schema)

	for _, entry := range report.Aircraft {
		_, err = tx.ExecContext(ctx, insertAircraftSQL,
			uuid.New(),
			runID,
			entry.Aircraft,
			entry.Components,
			entry.Overdue,
			entry.DueWithin30,
		)
		if err != nil {
			_ = tx.Rollback()
			return "", err
		}
	}

	insertBucketSQL := fmt.Sprintf(`
		INSERT INTO %s.report_due_buckets (
			id, run_id, bucket, components
		) VALUES (
			$1,$2,$3,$4
		)`, schema)

	for _, entry := range report.Buckets {
		_, err = tx.ExecContext(ctx, insertBucketSQL,
			uuid.New(),
			runID,
			entry.Bucket,
			entry.Components,
		)
		if err != nil {
			_ = tx.Rollback()
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return runID.String(), nil
}

func ensureSchema(ctx context.Context, db *sql.DB, schema string) error {
	if _, err := db.ExecContext(ctx, fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, schema)); err != nil {
		return err
	}

	_, err := db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.report_runs (
			id uuid PRIMARY KEY,
			report_date date NOT NULL,
			total_components integer NOT NULL,
			unique_parts integer NOT NULL,
			unique_aircraft integer NOT NULL,
			overdue_components integer NOT NULL,
			due_within_30 integer NOT NULL,
			due_within_90 integer NOT NULL,
			serial_anomalies integer NOT NULL,
			avg_days_until_due numeric(10,2) NOT NULL,
			avg_days_overdue numeric(10,2) NOT NULL,
			run_tag text,
			created_at timestamptz NOT NULL DEFAULT now()
		)`, schema))
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.report_aircraft_exposure (
			id uuid PRIMARY KEY,
			run_id uuid NOT NULL REFERENCES %s.report_runs(id) ON DELETE CASCADE,
			aircraft text NOT NULL,
			components integer NOT NULL,
			overdue integer NOT NULL,
			due_within_30 integer NOT NULL,
			created_at timestamptz NOT NULL DEFAULT now()
		)`, schema, schema))
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.report_due_buckets (
			id uuid PRIMARY KEY,
			run_id uuid NOT NULL REFERENCES %s.report_runs(id) ON DELETE CASCADE,
			bucket text NOT NULL,
			components integer NOT NULL,
			created_at timestamptz NOT NULL DEFAULT now()
		)`, schema, schema))
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_report_aircraft_exposure_run_idx ON %s.report_aircraft_exposure (run_id)`, schema, schema))
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_report_due_buckets_run_idx ON %s.report_due_buckets (run_id)`, schema, schema))
	return err
}

func nullString(value string) sql.NullString {
	if strings.TrimSpace(value) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
