package analysis

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"aqdash-server/internal/modules/airquality/types"
)

// presentPM25 drops records without a concentration value.
func presentPM25(records []types.Measurement) []types.Measurement {
	out := make([]types.Measurement, 0, len(records))
	for _, m := range records {
		if m.PM25 != nil {
			out = append(out, m)
		}
	}
	return out
}

// DailyMeans groups records by calendar date and averages PM2.5 per day.
// Days without any concentration value are omitted. Rows are ascending by date.
func DailyMeans(records []types.Measurement) []types.DailyMean {
	groups := make(map[time.Time][]float64)
	for _, m := range presentPM25(records) {
		d := types.DateOf(m.Time)
		groups[d] = append(groups[d], *m.PM25)
	}

	out := make([]types.DailyMean, 0, len(groups))
	for d, values := range groups {
		out = append(out, types.DailyMean{Date: d, Mean: stat.Mean(values, nil), Count: len(values)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// MonthlyMeans groups by month number across all years and averages PM2.5.
// Months without values are omitted. Rows are ascending by month.
func MonthlyMeans(records []types.Measurement) []types.MonthlyMean {
	var groups [13][]float64
	for _, m := range presentPM25(records) {
		month := m.Time.UTC().Month()
		groups[month] = append(groups[month], *m.PM25)
	}

	out := make([]types.MonthlyMean, 0, 12)
	for month := time.January; month <= time.December; month++ {
		values := groups[month]
		if len(values) == 0 {
			continue
		}
		out = append(out, types.MonthlyMean{Month: month, Mean: stat.Mean(values, nil), Count: len(values)})
	}
	return out
}

// Summarize derives the scalars shown next to the daily table: number of days,
// mean of the daily means and the peak day. Ties on the peak keep the earliest day.
func Summarize(daily []types.DailyMean) types.Summary {
	s := types.Summary{Days: len(daily)}
	if len(daily) == 0 {
		return s
	}

	means := make([]float64, len(daily))
	peak := 0
	for i, d := range daily {
		means[i] = d.Mean
		if d.Mean > daily[peak].Mean {
			peak = i
		}
	}
	s.MeanOfDailyMeans = types.OptionalFloat{Value: stat.Mean(means, nil), Valid: true}
	p := daily[peak]
	s.Peak = &p
	return s
}
