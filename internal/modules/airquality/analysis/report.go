package analysis

import (
	"time"

	"aqdash-server/internal/modules/airquality/types"
)

// BuildReport runs the whole pipeline for one window.
func BuildReport(records []types.Measurement, w types.Window, now time.Time) (types.Report, error) {
	subset, err := Filter(records, w)
	if err != nil {
		return types.Report{}, err
	}

	daily := DailyMeans(subset)
	points := Pairs(subset)
	return types.Report{
		Window:      types.NewWindow(w.Start, w.End),
		Records:     len(subset),
		Daily:       daily,
		Monthly:     MonthlyMeans(subset),
		Summary:     Summarize(daily),
		Correlation: correlatePoints(points),
		Points:      points,
		GeneratedAt: now.UTC(),
	}, nil
}
