// Package export renders reports as XLSX workbooks.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"aqdash-server/internal/modules/airquality/types"
)

const (
	SummarySheet = "Summary"
	DailySheet   = "Daily"
	MonthlySheet = "Monthly"
)

const notAvailable = "not available"

type WorkbookPresenter struct {
	Title string
}

func (WorkbookPresenter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Filename suggests an attachment name for the report window.
func (WorkbookPresenter) Filename(r *types.Report) string {
	return fmt.Sprintf("pm25-report_%s_%s.xlsx",
		r.Window.Start.Format(time.DateOnly), r.Window.End.Format(time.DateOnly))
}

func (p WorkbookPresenter) Present(w io.Writer, r *types.Report) error {
	if r == nil {
		return fmt.Errorf("workbook: nil report")
	}
	f := excelize.NewFile()
	defer f.Close()

	title := p.Title
	if title == "" {
		title = "PM2.5 report"
	}
	if err := f.SetDocProps(&excelize.DocProperties{
		Title:       title,
		Subject:     "PM2.5 analysis",
		Creator:     "aqdash",
		Description: fmt.Sprintf("Period %s to %s", r.Window.Start.Format(time.DateOnly), r.Window.End.Format(time.DateOnly)),
		Created:     r.GeneratedAt.Format(time.RFC3339),
	}); err != nil {
		return fmt.Errorf("set doc props: %w", err)
	}

	// The default sheet becomes the summary so it opens first.
	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return fmt.Errorf("rename default sheet: %w", err)
	}
	if err := writeSummary(f, title, r); err != nil {
		return fmt.Errorf("summary sheet: %w", err)
	}
	if err := writeDaily(f, r.Daily); err != nil {
		return fmt.Errorf("daily sheet: %w", err)
	}
	if err := writeMonthly(f, r.Monthly); err != nil {
		return fmt.Errorf("monthly sheet: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, title string, r *types.Report) error {
	mean := any(notAvailable)
	if r.Summary.MeanOfDailyMeans.Valid {
		mean = r.Summary.MeanOfDailyMeans.Value
	}
	peakDate, peakValue := any(notAvailable), any(notAvailable)
	if r.Summary.Peak != nil {
		peakDate = r.Summary.Peak.Date.Format(time.DateOnly)
		peakValue = r.Summary.Peak.Mean
	}
	corr := any(notAvailable)
	if r.Correlation.Valid {
		corr = r.Correlation.Value
	}

	rows := [][]any{
		{title},
		{"Start", r.Window.Start.Format(time.DateOnly)},
		{"End", r.Window.End.Format(time.DateOnly)},
		{"Records", r.Records},
		{"Total days", r.Summary.Days},
		{"Average PM2.5 (µg/m³)", mean},
		{"Peak day", peakDate},
		{"Peak PM2.5 (µg/m³)", peakValue},
		{"Wind/PM2.5 correlation", corr},
		{"Paired observations", r.Correlation.Pairs},
		{"Generated", r.GeneratedAt.Format(time.RFC3339)},
	}
	if err := writeRows(f, SummarySheet, rows); err != nil {
		return err
	}
	if err := f.MergeCell(SummarySheet, "A1", "B1"); err != nil {
		return err
	}
	return f.SetColWidth(SummarySheet, "A", "B", 26)
}

func writeDaily(f *excelize.File, daily []types.DailyMean) error {
	if _, err := f.NewSheet(DailySheet); err != nil {
		return err
	}
	rows := make([][]any, 0, len(daily)+1)
	rows = append(rows, []any{"Date", "Average PM2.5 (µg/m³)", "Readings"})
	for _, d := range daily {
		rows = append(rows, []any{d.Date.Format(time.DateOnly), d.Mean, d.Count})
	}
	if err := writeRows(f, DailySheet, rows); err != nil {
		return err
	}
	return f.SetColWidth(DailySheet, "A", "C", 18)
}

func writeMonthly(f *excelize.File, monthly []types.MonthlyMean) error {
	if _, err := f.NewSheet(MonthlySheet); err != nil {
		return err
	}
	rows := make([][]any, 0, len(monthly)+1)
	rows = append(rows, []any{"Month", "Name", "Average PM2.5 (µg/m³)", "Readings"})
	for _, m := range monthly {
		rows = append(rows, []any{int(m.Month), m.Month.String(), m.Mean, m.Count})
	}
	if err := writeRows(f, MonthlySheet, rows); err != nil {
		return err
	}
	return f.SetColWidth(MonthlySheet, "A", "D", 18)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
	}
	return nil
}
