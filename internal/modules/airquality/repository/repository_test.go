package repository

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"aqdash-server/internal/migrate"
	"aqdash-server/internal/modules/airquality/types"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() {
		if closeErr := db.Close(); closeErr != nil {
			t.Errorf("close db: %v", closeErr)
		}
	})
	if _, err := migrate.Run(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func f(v float64) *float64 { return &v }

func TestNewRepository(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	if repo == nil {
		t.Fatal("NewRepository returned nil")
	}
	if err := repo.Ping(); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestGetMeasurements_Empty(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	got, err := repo.GetMeasurements()
	if err != nil {
		t.Fatalf("GetMeasurements: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("GetMeasurements: got %d, want 0", len(got))
	}
	n, err := repo.CountMeasurements()
	if err != nil || n != 0 {
		t.Fatalf("CountMeasurements = %d, %v; want 0, nil", n, err)
	}
	_, ok, err := repo.LatestMeasurementTime()
	if err != nil {
		t.Fatalf("LatestMeasurementTime: %v", err)
	}
	if ok {
		t.Error("LatestMeasurementTime ok = true on empty table")
	}
}

func TestInsertAndGetMeasurements(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	t1 := time.Date(2013, 3, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2013, 3, 1, 1, 0, 0, 0, time.UTC)

	if err := repo.InsertMeasurement(types.Measurement{Time: t2, PM25: f(8), WindSpeed: nil}, OriginMQTT); err != nil {
		t.Fatalf("InsertMeasurement: %v", err)
	}
	n, err := repo.InsertMeasurements([]types.Measurement{
		{Time: t1, PM25: f(4), WindSpeed: f(4.4)},
		{Time: t2.Add(time.Hour), PM25: nil, WindSpeed: f(3.1)},
	}, OriginImport)
	if err != nil {
		t.Fatalf("InsertMeasurements: %v", err)
	}
	if n != 2 {
		t.Errorf("InsertMeasurements returned %d; want 2", n)
	}

	got, err := repo.GetMeasurements()
	if err != nil {
		t.Fatalf("GetMeasurements: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("GetMeasurements: got %d, want 3", len(got))
	}
	// Insertion order is kept.
	if !got[0].Time.Equal(t2) || got[0].PM25 == nil || *got[0].PM25 != 8 || got[0].WindSpeed != nil {
		t.Errorf("first = %+v", got[0])
	}
	if !got[1].Time.Equal(t1) || *got[1].WindSpeed != 4.4 {
		t.Errorf("second = %+v", got[1])
	}
	if got[2].PM25 != nil {
		t.Errorf("third PM25 = %v; want nil", *got[2].PM25)
	}

	latest, ok, err := repo.LatestMeasurementTime()
	if err != nil || !ok {
		t.Fatalf("LatestMeasurementTime = %v, %v, %v", latest, ok, err)
	}
	if !latest.Equal(t2.Add(time.Hour)) {
		t.Errorf("latest = %v; want %v", latest, t2.Add(time.Hour))
	}
}

func TestInsertMeasurement_ZeroTime(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	if err := repo.InsertMeasurement(types.Measurement{PM25: f(1)}, OriginMQTT); err == nil {
		t.Fatal("InsertMeasurement with zero time = nil error")
	}
}

func TestInsertMeasurements_RollsBackOnError(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	_, err := repo.InsertMeasurements([]types.Measurement{
		{Time: time.Date(2013, 3, 1, 0, 0, 0, 0, time.UTC), PM25: f(1)},
		{PM25: f(2)},
	}, OriginImport)
	if err == nil {
		t.Fatal("InsertMeasurements = nil error; want error")
	}
	n, err := repo.CountMeasurements()
	if err != nil {
		t.Fatalf("CountMeasurements: %v", err)
	}
	if n != 0 {
		t.Errorf("count after rollback = %d; want 0", n)
	}
}

func TestGetMeasurements_BadStoredTimestamp(t *testing.T) {
	db := setupTestDB(t)
	if _, err := db.Exec(`INSERT INTO measurements (ts, pm25) VALUES ('not-a-time', 1)`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	_, err := NewRepository(db).GetMeasurements()
	var parseErr *types.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("err = %v; want *types.ParseError", err)
	}
	if parseErr.Value != "not-a-time" {
		t.Errorf("Value = %q", parseErr.Value)
	}
}
