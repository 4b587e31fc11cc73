package config

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"
)

var envKeys = []string{
	"APP_ENV", "LOG_LEVEL", "HTTP_ADDR", "STATIC_DIR",
	"DATA_SOURCE", "DATA_PATH", "DATA_TIMESTAMP_COLUMN", "DATA_PM25_COLUMN", "DATA_WIND_COLUMN",
	"DATA_FROM", "DATA_TO", "RELOAD_INTERVAL", "DASHBOARD_TITLE", "DASHBOARD_CAPTION",
	"DB_DRIVER", "DB_DSN", "SQLITE_PATH", "DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS", "DB_CONN_MAX_LIFETIME", "DB_LOG_SQL",
	"MQTT_ENABLED", "MQTT_BROKER", "MQTT_PORT", "MQTT_TOPIC", "MQTT_CLIENT_ID",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	got, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v, want nil", err)
	}

	if got.AppEnv != "dev" {
		t.Errorf("AppEnv = %q, want %q", got.AppEnv, "dev")
	}
	if got.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want %v", got.LogLevel, slog.LevelInfo)
	}
	if got.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", got.HTTPAddr, ":8080")
	}
	if !filepath.IsAbs(got.StaticDir) {
		t.Errorf("StaticDir = %q, want absolute path", got.StaticDir)
	}
	if got.DataSource != SourceCSV {
		t.Errorf("DataSource = %q, want %q", got.DataSource, SourceCSV)
	}
	if got.DataPath != "main_data.csv" {
		t.Errorf("DataPath = %q, want main_data.csv", got.DataPath)
	}
	if got.TimestampColumn != "datetime" || got.ConcentrationColumn != "PM2.5" || got.WindColumn != "WSPM" {
		t.Errorf("columns = %q/%q/%q, want datetime/PM2.5/WSPM", got.TimestampColumn, got.ConcentrationColumn, got.WindColumn)
	}
	if !got.DataFrom.IsZero() || !got.DataTo.IsZero() {
		t.Errorf("DataFrom/DataTo = %v/%v, want zero", got.DataFrom, got.DataTo)
	}
	if got.ReloadInterval != 0 {
		t.Errorf("ReloadInterval = %v, want 0", got.ReloadInterval)
	}
	if got.SQLiteDriver != "sqlite3" || got.SQLiteMaxOpenConns != 1 || got.SQLiteMaxIdleConns != 1 {
		t.Errorf("sqlite defaults = %q/%d/%d", got.SQLiteDriver, got.SQLiteMaxOpenConns, got.SQLiteMaxIdleConns)
	}
	if got.DashboardTitle != "Air Quality Dashboard" || got.DashboardCaption != "" {
		t.Errorf("dashboard = %q/%q", got.DashboardTitle, got.DashboardCaption)
	}
	if got.MQTTEnabled {
		t.Error("MQTTEnabled = true, want false")
	}
	if got.MQTTPort != 1883 || got.MQTTTopic != "aqdash/measurements" {
		t.Errorf("mqtt defaults = %d/%q", got.MQTTPort, got.MQTTTopic)
	}
}

func TestLoadFromEnv_AppEnv_Invalid(t *testing.T) {
	for _, appEnv := range []string{"staging", "qa", "DEV"} {
		t.Run(appEnv, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("APP_ENV", appEnv)

			if _, err := LoadFromEnv(); err == nil {
				t.Fatalf("LoadFromEnv() error = nil, want non-nil")
			}
		})
	}
}

func TestLoadFromEnv_LogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" INFO ", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("LOG_LEVEL", tt.in)
			got, err := LoadFromEnv()
			if err != nil {
				t.Fatalf("LoadFromEnv() error = %v", err)
			}
			if got.LogLevel != tt.want {
				t.Errorf("LogLevel = %v, want %v", got.LogLevel, tt.want)
			}
		})
	}

	clearEnv(t)
	t.Setenv("LOG_LEVEL", "verbose")
	if _, err := LoadFromEnv(); err == nil {
		t.Error("LoadFromEnv() with LOG_LEVEL=verbose error = nil, want non-nil")
	}
}

func TestLoadFromEnv_DataWindow(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("DATA_FROM", "2013-01-01")
		t.Setenv("DATA_TO", "2017-12-31")
		got, err := LoadFromEnv()
		if err != nil {
			t.Fatalf("LoadFromEnv() error = %v", err)
		}
		if !got.DataFrom.Equal(time.Date(2013, 1, 1, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("DataFrom = %v", got.DataFrom)
		}
		if !got.DataTo.Equal(time.Date(2017, 12, 31, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("DataTo = %v", got.DataTo)
		}
	})

	t.Run("malformed", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("DATA_FROM", "01/01/2013")
		if _, err := LoadFromEnv(); err == nil {
			t.Fatal("LoadFromEnv() error = nil, want non-nil")
		}
	})

	t.Run("reversed", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("DATA_FROM", "2017-12-31")
		t.Setenv("DATA_TO", "2013-01-01")
		if _, err := LoadFromEnv(); err == nil {
			t.Fatal("LoadFromEnv() error = nil, want non-nil")
		}
	})
}

func TestLoadFromEnv_InvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"DATA_SOURCE", "postgres"},
		{"RELOAD_INTERVAL", "often"},
		{"DB_MAX_OPEN_CONNS", "x"},
		{"DB_MAX_IDLE_CONNS", "1.5"},
		{"DB_CONN_MAX_LIFETIME", "forever"},
		{"DB_LOG_SQL", "maybe"},
		{"MQTT_ENABLED", "yes please"},
		{"MQTT_PORT", "mqtt"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			if _, err := LoadFromEnv(); err == nil {
				t.Fatalf("LoadFromEnv() with %s=%q error = nil, want non-nil", tt.key, tt.value)
			}
		})
	}
}

func TestLoadFromEnv_MQTTRequiresSQLite(t *testing.T) {
	clearEnv(t)
	t.Setenv("MQTT_ENABLED", "true")
	if _, err := LoadFromEnv(); err == nil {
		t.Fatal("LoadFromEnv() error = nil, want non-nil for csv source")
	}

	t.Setenv("DATA_SOURCE", "SQLite")
	got, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}
	if !got.MQTTEnabled || got.DataSource != SourceSQLite {
		t.Errorf("MQTTEnabled=%v DataSource=%q", got.MQTTEnabled, got.DataSource)
	}
}
