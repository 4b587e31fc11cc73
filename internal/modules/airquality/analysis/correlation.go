package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"aqdash-server/internal/modules/airquality/types"
)

// Pairs returns the pairwise-complete (wind speed, PM2.5) observations.
func Pairs(records []types.Measurement) []types.Point {
	out := make([]types.Point, 0, len(records))
	for _, m := range records {
		if m.WindSpeed == nil || m.PM25 == nil {
			continue
		}
		out = append(out, types.Point{WindSpeed: *m.WindSpeed, PM25: *m.PM25})
	}
	return out
}

// Correlate computes the Pearson correlation between wind speed and PM2.5.
// The result is undefined with fewer than two pairs or when either variable
// is constant.
func Correlate(records []types.Measurement) types.Correlation {
	return correlatePoints(Pairs(records))
}

func correlatePoints(points []types.Point) types.Correlation {
	c := types.Correlation{Pairs: len(points)}
	if len(points) < 2 {
		return c
	}

	x := make([]float64, len(points))
	y := make([]float64, len(points))
	for i, p := range points {
		x[i], y[i] = p.WindSpeed, p.PM25
	}
	if constant(x) || constant(y) {
		return c
	}

	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return c
	}
	c.Value = math.Max(-1, math.Min(1, r))
	c.Valid = true
	return c
}

func constant(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}
