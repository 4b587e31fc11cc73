package app

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"aqdash-server/internal/config"
	"aqdash-server/internal/db"
	"aqdash-server/internal/migrate"
	"aqdash-server/internal/modules/airquality/export"
	"aqdash-server/internal/modules/airquality/repository"
	"aqdash-server/internal/modules/airquality/service"
	"aqdash-server/internal/modules/airquality/store"
	"aqdash-server/internal/modules/airquality/types"
)

// Migrate applies pending schema migrations to the configured database.
func Migrate(cfg config.Config, logger *slog.Logger) error {
	conn, err := db.Open(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(conn); err != nil {
			logger.Error("db close", "error", err)
		}
	}()

	applied, err := migrate.Run(conn)
	if err != nil {
		return err
	}
	logger.Info("migrations complete", "applied", applied)
	return nil
}

// Import copies a cleaned CSV into the database. The whole file is
// rejected if any row fails to parse.
func Import(cfg config.Config, path string, logger *slog.Logger) (int, error) {
	var src store.Source = store.CSVSource{Path: path, Columns: columns(cfg)}
	if !cfg.DataFrom.IsZero() || !cfg.DataTo.IsZero() {
		src = store.Clamped{Source: src, Window: clampWindow(cfg)}
	}
	st, err := src.Load()
	if err != nil {
		return 0, err
	}

	conn, repo, err := openRepository(cfg, logger)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := db.Close(conn); err != nil {
			logger.Error("db close", "error", err)
		}
	}()

	n, err := repo.InsertMeasurements(st.Records(), repository.OriginImport)
	if err != nil {
		return 0, fmt.Errorf("import %s: %w", path, err)
	}
	total, err := repo.CountMeasurements()
	if err != nil {
		return n, fmt.Errorf("count measurements: %w", err)
	}
	logger.Info("import complete", "path", path, "records", n, "total", total)
	return n, nil
}

// ExportRequest selects the window and destination of a workbook export.
// Empty Start or End fall back to the store bounds.
type ExportRequest struct {
	Start string
	End   string
	Out   string
}

// Export writes the XLSX report for a window using the configured source.
func Export(cfg config.Config, req ExportRequest, logger *slog.Logger) error {
	b, err := openBackend(cfg, logger)
	if err != nil {
		return err
	}
	defer b.close(logger)

	svc := service.NewService(b.source, logger)
	if err := svc.Reload(); err != nil {
		return err
	}
	w, err := svc.DefaultWindow()
	if err != nil {
		return err
	}
	if w, err = overrideWindow(w, req.Start, req.End); err != nil {
		return err
	}
	report, err := svc.Report(w, "xlsx")
	if err != nil {
		return err
	}

	presenter := export.WorkbookPresenter{Title: cfg.DashboardTitle}
	out := req.Out
	if out == "" {
		out = presenter.Filename(&report)
	}
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	if err := presenter.Present(f, &report); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", out, err)
	}
	logger.Info("export complete",
		"out", out,
		"start", w.Start.Format(time.DateOnly),
		"end", w.End.Format(time.DateOnly),
		"days", report.Summary.Days,
	)
	return nil
}

func overrideWindow(def types.Window, start, end string) (types.Window, error) {
	w := def
	if start != "" {
		t, err := time.Parse(time.DateOnly, start)
		if err != nil {
			return types.Window{}, fmt.Errorf("invalid -start %q (expected YYYY-MM-DD): %w", start, err)
		}
		w.Start = t
	}
	if end != "" {
		t, err := time.Parse(time.DateOnly, end)
		if err != nil {
			return types.Window{}, fmt.Errorf("invalid -end %q (expected YYYY-MM-DD): %w", end, err)
		}
		w.End = t
	}
	w = types.NewWindow(w.Start, w.End)
	if err := w.Validate(); err != nil {
		return types.Window{}, err
	}
	return w, nil
}
