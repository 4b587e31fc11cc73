package app

import (
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"aqdash-server/internal/config"
	"aqdash-server/internal/db"
	"aqdash-server/internal/migrate"
	"aqdash-server/internal/modules/airquality/repository"
	"aqdash-server/internal/modules/airquality/store"
	"aqdash-server/internal/modules/airquality/types"
)

var (
	minDate = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)
	maxDate = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)
)

// backend is the configured measurement source plus the database behind it, if any.
type backend struct {
	source store.Source
	db     *sql.DB
	repo   repository.MeasurementRepository
}

func openBackend(cfg config.Config, logger *slog.Logger) (*backend, error) {
	b := &backend{}
	switch cfg.DataSource {
	case config.SourceSQLite:
		conn, repo, err := openRepository(cfg, logger)
		if err != nil {
			return nil, err
		}
		b.db, b.repo = conn, repo
		b.source = store.RepositorySource{Reader: repo}
	default:
		b.source = store.CSVSource{Path: cfg.DataPath, Columns: columns(cfg)}
	}

	if !cfg.DataFrom.IsZero() || !cfg.DataTo.IsZero() {
		b.source = store.Clamped{Source: b.source, Window: clampWindow(cfg)}
	}
	return b, nil
}

func (b *backend) close(logger *slog.Logger) {
	if b.db == nil {
		return
	}
	if err := db.Close(b.db); err != nil {
		logger.Error("db close", "error", err)
	}
}

// openRepository opens the database, applies pending migrations and checks connectivity.
func openRepository(cfg config.Config, logger *slog.Logger) (*sql.DB, repository.MeasurementRepository, error) {
	conn, err := db.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	applied, err := migrate.Run(conn)
	if err != nil {
		_ = db.Close(conn)
		return nil, nil, err
	}
	if applied > 0 {
		logger.Info("migrations applied", "count", applied)
	}

	repo := repository.NewRepository(conn)
	if err := repo.Ping(); err != nil {
		_ = db.Close(conn)
		return nil, nil, err
	}
	if latest, ok, err := repo.LatestMeasurementTime(); err != nil {
		logger.Warn("latest measurement lookup failed", "error", err)
	} else if ok {
		logger.Info("database connection successful", "latest", latest)
	} else {
		logger.Info("database connection successful", "latest", "none")
	}
	return conn, repo, nil
}

func columns(cfg config.Config) store.Columns {
	cols := store.DefaultColumns()
	if cfg.TimestampColumn != "" {
		cols.Timestamp = cfg.TimestampColumn
	}
	if cfg.ConcentrationColumn != "" {
		cols.Concentration = cfg.ConcentrationColumn
	}
	if cfg.WindColumn != "" {
		cols.WindSpeed = cfg.WindColumn
	}
	return cols
}

// clampWindow turns the optional DATA_FROM/DATA_TO bounds into a window;
// an open side extends to the representable extreme.
func clampWindow(cfg config.Config) types.Window {
	from, to := cfg.DataFrom, cfg.DataTo
	if from.IsZero() {
		from = minDate
	}
	if to.IsZero() {
		to = maxDate
	}
	return types.NewWindow(from, to)
}

func logoURL(staticDir string) string {
	for _, name := range []string{"logo.png", "logo.svg"} {
		if info, err := os.Stat(filepath.Join(staticDir, name)); err == nil && !info.IsDir() {
			return "/static/" + name
		}
	}
	return ""
}
