package repository

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"aqdash-server/internal/modules/airquality/types"
)

//go:embed sql/get-measurements.sql
var getMeasurementsSQL string

//go:embed sql/count-measurements.sql
var countMeasurementsSQL string

//go:embed sql/insert-measurement.sql
var insertMeasurementSQL string

//go:embed sql/latest-measurement-time.sql
var latestMeasurementTimeSQL string

// Origin values stored with each measurement.
const (
	OriginImport = "import"
	OriginMQTT   = "mqtt"
)

type MeasurementRepository interface {
	GetMeasurements() ([]types.Measurement, error)
	CountMeasurements() (int, error)
	LatestMeasurementTime() (time.Time, bool, error)
	InsertMeasurement(m types.Measurement, origin string) error
	InsertMeasurements(ms []types.Measurement, origin string) (int, error)
	Ping() error
}

type repositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) MeasurementRepository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) Ping() error {
	var ok int
	return r.db.QueryRow(`SELECT 1`).Scan(&ok)
}

func (r *repositoryImpl) GetMeasurements() ([]types.Measurement, error) {
	rows, err := r.db.Query(getMeasurementsSQL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close measurement rows", "error", err)
		}
	}()

	var out []types.Measurement
	for rows.Next() {
		var (
			ts   string
			pm25 sql.NullFloat64
			wspm sql.NullFloat64
		)
		if err := rows.Scan(&ts, &pm25, &wspm); err != nil {
			return nil, err
		}
		t, err := parseStoredTime(ts)
		if err != nil {
			return nil, &types.ParseError{Row: len(out) + 1, Column: "ts", Value: ts, Err: err}
		}
		out = append(out, types.Measurement{Time: t, PM25: nullable(pm25), WindSpeed: nullable(wspm)})
	}
	return out, rows.Err()
}

func (r *repositoryImpl) CountMeasurements() (int, error) {
	var n int
	err := r.db.QueryRow(countMeasurementsSQL).Scan(&n)
	return n, err
}

// LatestMeasurementTime returns the newest timestamp; ok is false for an empty table.
func (r *repositoryImpl) LatestMeasurementTime() (time.Time, bool, error) {
	var ts sql.NullString
	if err := r.db.QueryRow(latestMeasurementTimeSQL).Scan(&ts); err != nil {
		return time.Time{}, false, err
	}
	if !ts.Valid {
		return time.Time{}, false, nil
	}
	t, err := parseStoredTime(ts.String)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

func (r *repositoryImpl) InsertMeasurement(m types.Measurement, origin string) error {
	if m.Time.IsZero() {
		return fmt.Errorf("insert measurement: timestamp is required")
	}
	_, err := r.db.Exec(insertMeasurementSQL, formatTime(m.Time), nullArg(m.PM25), nullArg(m.WindSpeed), origin)
	if err != nil {
		return fmt.Errorf("insert measurement: %w", err)
	}
	return nil
}

// InsertMeasurements writes all records in one transaction.
func (r *repositoryImpl) InsertMeasurements(ms []types.Measurement, origin string) (int, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.Prepare(insertMeasurementSQL)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, m := range ms {
		if m.Time.IsZero() {
			_ = tx.Rollback()
			return 0, fmt.Errorf("insert measurement %d: timestamp is required", i)
		}
		if _, err := stmt.Exec(formatTime(m.Time), nullArg(m.PM25), nullArg(m.WindSpeed), origin); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("insert measurement %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(ms), nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseStoredTime(ts string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		var err2 error
		t, err2 = time.Parse(time.RFC3339, ts)
		if err2 != nil {
			return time.Time{}, fmt.Errorf("parse timestamp %q: RFC3339Nano: %w; RFC3339: %w", ts, err, err2)
		}
	}
	return t, nil
}

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullArg(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
