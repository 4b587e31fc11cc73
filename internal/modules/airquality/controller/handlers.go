package controller

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"aqdash-server/internal/modules/airquality/service"
	"aqdash-server/internal/modules/airquality/types"
	"aqdash-server/internal/utils"
)

// handleDashboard renders the page. A rejected date range does not replace the
// page with an error body: the default window is rendered under a notice.
func (c *airQualityControllerImpl) handleDashboard(w http.ResponseWriter, r *http.Request) {
	def, err := c.service.DefaultWindow()
	if err != nil {
		c.writeServiceError(w, err)
		return
	}
	presenter := c.dashboard
	status := http.StatusOK
	window, err := parseWindowQuery(r, def)
	if err != nil {
		if !isBadRequest(err) {
			c.writeServiceError(w, err)
			return
		}
		presenter.Notice = err.Error()
		status = http.StatusBadRequest
		window = def
	}
	report, err := c.service.Report(window, "html")
	if err != nil {
		c.writeServiceError(w, err)
		return
	}
	if b, err := c.service.Bounds(); err == nil {
		presenter.Bounds = b
	}
	err = utils.WriteRendered(w, status, presenter.ContentType(), "", func(out io.Writer) error {
		return presenter.Present(out, &report)
	})
	if err != nil {
		c.logger.Error("dashboard render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
	}
}

func (c *airQualityControllerImpl) handleReport(w http.ResponseWriter, r *http.Request) {
	report, ok := c.buildReport(w, r, "json")
	if !ok {
		return
	}
	utils.WriteJSON(w, http.StatusOK, report)
}

func (c *airQualityControllerImpl) handleWorkbook(w http.ResponseWriter, r *http.Request) {
	report, ok := c.buildReport(w, r, "xlsx")
	if !ok {
		return
	}
	err := utils.WriteRendered(w, http.StatusOK, c.workbook.ContentType(), c.workbook.Filename(&report), func(out io.Writer) error {
		return c.workbook.Present(out, &report)
	})
	if err != nil {
		c.logger.Error("workbook render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render workbook")
	}
}

func (c *airQualityControllerImpl) handleBounds(w http.ResponseWriter, r *http.Request) {
	b, err := c.service.Bounds()
	if err != nil {
		c.writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, b)
}

func (c *airQualityControllerImpl) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := c.service.Reload(); err != nil {
		c.logger.Error("reload failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, fmt.Sprintf("reload failed: %v", err))
		return
	}
	c.handleBounds(w, r)
}

// buildReport parses the window and runs the pipeline. It writes the error
// response itself and reports whether the caller should continue.
func (c *airQualityControllerImpl) buildReport(w http.ResponseWriter, r *http.Request, format string) (types.Report, bool) {
	def, err := c.service.DefaultWindow()
	if err != nil {
		c.writeServiceError(w, err)
		return types.Report{}, false
	}
	window, err := parseWindowQuery(r, def)
	if err != nil {
		c.writeServiceError(w, err)
		return types.Report{}, false
	}
	report, err := c.service.Report(window, format)
	if err != nil {
		c.writeServiceError(w, err)
		return types.Report{}, false
	}
	return report, true
}

// isBadRequest reports whether err stems from the request's date range.
func isBadRequest(err error) bool {
	var rangeErr *types.InvalidRangeError
	var queryErr *queryError
	return errors.As(err, &rangeErr) || errors.As(err, &queryErr)
}

func (c *airQualityControllerImpl) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case isBadRequest(err):
		utils.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotLoaded):
		utils.WriteError(w, http.StatusServiceUnavailable, err.Error())
	default:
		c.logger.Error("report failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to build report")
	}
}
