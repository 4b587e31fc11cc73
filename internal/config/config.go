package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	SourceCSV    = "csv"
	SourceSQLite = "sqlite"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	// StaticDir is the absolute path to the directory served at /static/.
	// Set via STATIC_DIR (relative paths are resolved against the process working directory at startup).
	StaticDir string

	// DataSource selects where measurements are loaded from: "csv" or "sqlite".
	DataSource          string
	DataPath            string
	TimestampColumn     string
	ConcentrationColumn string
	WindColumn          string
	// DataFrom and DataTo clamp the loaded series; zero means unbounded.
	DataFrom time.Time
	DataTo   time.Time

	ReloadInterval time.Duration

	DashboardTitle   string
	DashboardCaption string

	SQLiteDriver          string
	SQLiteDSN             string
	SQLitePath            string
	SQLiteMaxOpenConns    int
	SQLiteMaxIdleConns    int
	SQLiteConnMaxLifetime time.Duration
	SQLiteLogQueries      bool

	MQTTEnabled  bool
	MQTTBroker   string
	MQTTPort     int
	MQTTTopic    string
	MQTTClientID string
}

func LoadFromEnv() (Config, error) {
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	logLevelStr := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if logLevelStr == "" {
		logLevelStr = "info"
	}
	level, err := parseLogLevel(logLevelStr)
	if err != nil {
		return Config{}, err
	}

	httpAddr := strings.TrimSpace(os.Getenv("HTTP_ADDR"))
	if httpAddr == "" {
		httpAddr = ":8080"
	}

	staticDir := strings.TrimSpace(os.Getenv("STATIC_DIR"))
	if staticDir == "" {
		staticDir = "static"
	}
	staticDir, err = filepath.Abs(staticDir)
	if err != nil {
		return Config{}, fmt.Errorf("STATIC_DIR %q: %w", staticDir, err)
	}

	dataSource := strings.ToLower(strings.TrimSpace(os.Getenv("DATA_SOURCE")))
	if dataSource == "" {
		dataSource = SourceCSV
	}
	switch dataSource {
	case SourceCSV, SourceSQLite:
	default:
		return Config{}, fmt.Errorf("invalid DATA_SOURCE %q (allowed: csv, sqlite)", dataSource)
	}

	dataPath := envOr("DATA_PATH", "main_data.csv")
	timestampColumn := envOr("DATA_TIMESTAMP_COLUMN", "datetime")
	concentrationColumn := envOr("DATA_PM25_COLUMN", "PM2.5")
	windColumn := envOr("DATA_WIND_COLUMN", "WSPM")

	dataFrom, err := parseDate("DATA_FROM")
	if err != nil {
		return Config{}, err
	}
	dataTo, err := parseDate("DATA_TO")
	if err != nil {
		return Config{}, err
	}
	if !dataFrom.IsZero() && !dataTo.IsZero() && dataFrom.After(dataTo) {
		return Config{}, fmt.Errorf("DATA_FROM %s must be <= DATA_TO %s", dataFrom.Format(time.DateOnly), dataTo.Format(time.DateOnly))
	}

	reloadIntervalStr := envOr("RELOAD_INTERVAL", "0s")
	reloadInterval, err := time.ParseDuration(reloadIntervalStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid RELOAD_INTERVAL %q: %w", reloadIntervalStr, err)
	}

	dashboardTitle := envOr("DASHBOARD_TITLE", "Air Quality Dashboard")
	dashboardCaption := strings.TrimSpace(os.Getenv("DASHBOARD_CAPTION"))

	driver := envOr("DB_DRIVER", "sqlite3")
	dsn := strings.TrimSpace(os.Getenv("DB_DSN"))
	path := envOr("SQLITE_PATH", "data/aqdash.db")

	maxOpenConnsStr := envOr("DB_MAX_OPEN_CONNS", "1")
	maxOpenConns, err := strconv.Atoi(maxOpenConnsStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_MAX_OPEN_CONNS %q: %w", maxOpenConnsStr, err)
	}

	maxIdleConnsStr := envOr("DB_MAX_IDLE_CONNS", "1")
	maxIdleConns, err := strconv.Atoi(maxIdleConnsStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_MAX_IDLE_CONNS %q: %w", maxIdleConnsStr, err)
	}

	connMaxLifetimeStr := envOr("DB_CONN_MAX_LIFETIME", "0s")
	connMaxLifetime, err := time.ParseDuration(connMaxLifetimeStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_CONN_MAX_LIFETIME %q: %w", connMaxLifetimeStr, err)
	}

	logQueries, err := parseBool("DB_LOG_SQL", false)
	if err != nil {
		return Config{}, err
	}

	mqttEnabled, err := parseBool("MQTT_ENABLED", false)
	if err != nil {
		return Config{}, err
	}
	if mqttEnabled && dataSource != SourceSQLite {
		return Config{}, fmt.Errorf("MQTT_ENABLED requires DATA_SOURCE=sqlite")
	}

	mqttBroker := envOr("MQTT_BROKER", "localhost")
	mqttPortStr := envOr("MQTT_PORT", "1883")
	mqttPort, err := strconv.Atoi(mqttPortStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid MQTT_PORT %q: %w", mqttPortStr, err)
	}
	mqttTopic := envOr("MQTT_TOPIC", "aqdash/measurements")
	mqttClientID := envOr("MQTT_CLIENT_ID", "aqdash-server")

	return Config{
		AppEnv:                appEnv,
		LogLevel:              level,
		HTTPAddr:              httpAddr,
		StaticDir:             staticDir,
		DataSource:            dataSource,
		DataPath:              dataPath,
		TimestampColumn:       timestampColumn,
		ConcentrationColumn:   concentrationColumn,
		WindColumn:            windColumn,
		DataFrom:              dataFrom,
		DataTo:                dataTo,
		ReloadInterval:        reloadInterval,
		DashboardTitle:        dashboardTitle,
		DashboardCaption:      dashboardCaption,
		SQLiteDriver:          driver,
		SQLiteDSN:             dsn,
		SQLitePath:            path,
		SQLiteMaxOpenConns:    maxOpenConns,
		SQLiteMaxIdleConns:    maxIdleConns,
		SQLiteConnMaxLifetime: connMaxLifetime,
		SQLiteLogQueries:      logQueries,
		MQTTEnabled:           mqttEnabled,
		MQTTBroker:            mqttBroker,
		MQTTPort:              mqttPort,
		MQTTTopic:             mqttTopic,
		MQTTClientID:          mqttClientID,
	}, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func parseDate(key string) (time.Time, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q (expected YYYY-MM-DD): %w", key, s, err)
	}
	return t, nil
}

func parseBool(key string, def bool) (bool, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return b, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
