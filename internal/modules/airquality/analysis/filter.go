// Package analysis holds the report pipeline: window filtering, daily and
// monthly aggregation, summary scalars and the wind/PM2.5 correlation.
// Every function here is pure and never mutates its input slice.
package analysis

import (
	"aqdash-server/internal/modules/airquality/types"
)

// Filter returns the records whose calendar date lies in the inclusive window,
// in their original order. No match yields an empty, non-nil slice.
func Filter(records []types.Measurement, w types.Window) ([]types.Measurement, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	out := make([]types.Measurement, 0, len(records))
	for _, m := range records {
		if w.Contains(m.Time) {
			out = append(out, m)
		}
	}
	return out, nil
}
