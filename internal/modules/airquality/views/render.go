package views

import (
	"errors"
	"html/template"
	"io"
	"io/fs"
	"math"
	"strconv"
	"sync/atomic"
	"time"

	"aqdash-server/internal/modules/airquality/types"
)

var dashboardTmpl atomic.Pointer[template.Template]

// loadTemplatesFromFS loads dashboard templates from the given fs and dir.
// Used by LoadTemplates and by tests to simulate failure scenarios.
func loadTemplatesFromFS(fsys fs.FS, dir string) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	tmpl, err := template.ParseFS(sub, "*.html", "partials/*.html")
	if err != nil {
		return err
	}
	dashboardTmpl.Store(tmpl)
	return nil
}

// LoadTemplates loads embedded dashboard templates. Call during startup before
// serving requests; if it returns an error, do not start the server.
func LoadTemplates() error {
	return loadTemplatesFromFS(viewsFS, "templates")
}

// DashboardPresenter renders a report as the HTML dashboard.
type DashboardPresenter struct {
	Title   string
	Caption string
	LogoURL string
	// Bounds limits the date pickers; zero means unbounded.
	Bounds types.Bounds
	// Notice is shown as a banner above the report, e.g. a rejected date range.
	Notice string
}

func (DashboardPresenter) ContentType() string { return "text/html; charset=utf-8" }

func (p DashboardPresenter) Present(w io.Writer, r *types.Report) error {
	tmpl := dashboardTmpl.Load()
	if tmpl == nil {
		return errors.New("dashboard template not loaded: call views.LoadTemplates during startup")
	}
	if r == nil {
		return errors.New("dashboard: nil report")
	}
	return tmpl.ExecuteTemplate(w, "dashboard.html", p.dashboardData(r))
}

type DashboardData struct {
	Title       string
	Caption     string
	LogoURL     string
	Notice      string
	Start       string
	End         string
	Min         string
	Max         string
	Records     int
	TotalDays   int
	MeanPM25    string
	Peak        *PeakData
	Correlation string
	Pairs       int
	GeneratedAt string
	Charts      ChartData
}

type PeakData struct {
	Date  string
	Value string
}

// ChartData is serialized into the page script for Chart.js.
type ChartData struct {
	DailyLabels   []string      `json:"dailyLabels"`
	DailyValues   []float64     `json:"dailyValues"`
	MonthlyLabels []string      `json:"monthlyLabels"`
	MonthlyValues []float64     `json:"monthlyValues"`
	Scatter       []types.Point `json:"scatter"`
}

const notAvailable = "not available"

func (p DashboardPresenter) dashboardData(r *types.Report) *DashboardData {
	d := &DashboardData{
		Title:       p.Title,
		Caption:     p.Caption,
		LogoURL:     p.LogoURL,
		Notice:      p.Notice,
		Start:       r.Window.Start.Format(time.DateOnly),
		End:         r.Window.End.Format(time.DateOnly),
		Records:     r.Records,
		TotalDays:   r.Summary.Days,
		MeanPM25:    notAvailable,
		Correlation: notAvailable,
		Pairs:       r.Correlation.Pairs,
		GeneratedAt: r.GeneratedAt.Format(time.RFC3339),
	}
	if d.Title == "" {
		d.Title = "Air Quality Dashboard"
	}
	if !p.Bounds.Empty && !p.Bounds.First.IsZero() {
		d.Min = p.Bounds.First.Format(time.DateOnly)
		d.Max = p.Bounds.Last.Format(time.DateOnly)
	}
	if r.Summary.MeanOfDailyMeans.Valid {
		d.MeanPM25 = formatFloat(round2(r.Summary.MeanOfDailyMeans.Value))
	}
	if r.Summary.Peak != nil {
		d.Peak = &PeakData{
			Date:  r.Summary.Peak.Date.Format(time.DateOnly),
			Value: formatFloat(r.Summary.Peak.Mean),
		}
	}
	if r.Correlation.Valid {
		d.Correlation = formatFloat(round2(r.Correlation.Value))
	}

	d.Charts = ChartData{
		DailyLabels:   make([]string, 0, len(r.Daily)),
		DailyValues:   make([]float64, 0, len(r.Daily)),
		MonthlyLabels: make([]string, 0, len(r.Monthly)),
		MonthlyValues: make([]float64, 0, len(r.Monthly)),
		Scatter:       r.Points,
	}
	if d.Charts.Scatter == nil {
		d.Charts.Scatter = []types.Point{}
	}
	for _, day := range r.Daily {
		d.Charts.DailyLabels = append(d.Charts.DailyLabels, day.Date.Format(time.DateOnly))
		d.Charts.DailyValues = append(d.Charts.DailyValues, round2(day.Mean))
	}
	for _, m := range r.Monthly {
		d.Charts.MonthlyLabels = append(d.Charts.MonthlyLabels, m.Month.String()[:3])
		d.Charts.MonthlyValues = append(d.Charts.MonthlyValues, round2(m.Mean))
	}
	return d
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
