package controller

import (
	"log/slog"
	"net/http"

	"aqdash-server/internal/modules/airquality/export"
	"aqdash-server/internal/modules/airquality/types"
	"aqdash-server/internal/modules/airquality/views"
)

// ReportService is the subset of service.ReportService the handlers use.
type ReportService interface {
	Report(w types.Window, format string) (types.Report, error)
	Bounds() (types.Bounds, error)
	DefaultWindow() (types.Window, error)
	Reload() error
}

type AirQualityController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type airQualityControllerImpl struct {
	service   ReportService
	dashboard views.DashboardPresenter
	workbook  export.WorkbookPresenter
	logger    *slog.Logger
}

func NewAirQualityController(service ReportService, dashboard views.DashboardPresenter, logger *slog.Logger) AirQualityController {
	return &airQualityControllerImpl{
		service:   service,
		dashboard: dashboard,
		workbook:  export.WorkbookPresenter{Title: dashboard.Title},
		logger:    logger,
	}
}

func (c *airQualityControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", c.handleDashboard)
	mux.HandleFunc("GET /api/v1/report", c.handleReport)
	mux.HandleFunc("GET /api/v1/report.xlsx", c.handleWorkbook)
	mux.HandleFunc("GET /api/v1/bounds", c.handleBounds)
	mux.HandleFunc("POST /api/v1/reload", c.handleReload)
}
