package store

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"aqdash-server/internal/modules/airquality/types"
)

// Columns names the source columns used by the loader.
type Columns struct {
	Timestamp     string
	Concentration string
	WindSpeed     string
}

func DefaultColumns() Columns {
	return Columns{Timestamp: "datetime", Concentration: "PM2.5", WindSpeed: "WSPM"}
}

// splitTimestamp are the columns of a separable timestamp, used when the
// combined timestamp column is absent.
var splitTimestamp = []string{"year", "month", "day", "hour"}

var missingValues = []string{"", "NA", "NaN", "nan", "null", "NULL"}

var timestampLayouts = []string{
	time.DateTime,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
	time.DateOnly,
}

// LoadCSV reads a cleaned measurement table. Any unparseable timestamp or
// missing column fails the whole load with a *types.ParseError. A header with
// no data rows yields an empty store.
func LoadCSV(r io.Reader, cols Columns) (*Store, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	// Excel writes a UTF-8 BOM in front of the header.
	content = []byte(strings.TrimPrefix(string(content), "\ufeff"))

	rows, err := csv.NewReader(bytes.NewReader(content)).ReadAll()
	if err != nil {
		return nil, &types.ParseError{Err: err}
	}
	if len(rows) == 0 {
		return nil, &types.ParseError{Err: errors.New("no header row")}
	}
	header := rows[0]
	if err := checkColumns(header, cols); err != nil {
		return nil, err
	}
	if len(rows) == 1 {
		return New(nil)
	}

	// Missing-value markers only apply to the numeric columns; timestamps
	// are read from the raw rows so errors quote the cell as written.
	df := dataframe.LoadRecords(rows,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.WithTypes(map[string]series.Type{
			cols.Concentration: series.Float,
			cols.WindSpeed:     series.Float,
		}),
		dataframe.NaNValues(missingValues),
	)
	if df.Err != nil {
		return nil, &types.ParseError{Err: df.Err}
	}

	times, err := parseTimes(header, rows[1:], cols.Timestamp)
	if err != nil {
		return nil, err
	}
	pm25 := df.Col(cols.Concentration).Float()
	wind := df.Col(cols.WindSpeed).Float()

	records := make([]types.Measurement, len(times))
	for i, t := range times {
		records[i] = types.Measurement{Time: t, PM25: optional(pm25[i]), WindSpeed: optional(wind[i])}
	}
	return New(records)
}

func checkColumns(header []string, cols Columns) error {
	for _, required := range []string{cols.Concentration, cols.WindSpeed} {
		if !slices.Contains(header, required) {
			return &types.ParseError{Column: required, Err: errors.New("column not found")}
		}
	}
	if slices.Contains(header, cols.Timestamp) {
		return nil
	}
	for _, name := range splitTimestamp {
		if !slices.Contains(header, name) {
			return &types.ParseError{Column: cols.Timestamp, Err: errors.New("column not found")}
		}
	}
	return nil
}

func optional(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func parseTimes(header []string, rows [][]string, column string) ([]time.Time, error) {
	out := make([]time.Time, len(rows))
	if idx := slices.Index(header, column); idx >= 0 {
		for i, row := range rows {
			t, err := ParseTimestamp(row[idx])
			if err != nil {
				return nil, &types.ParseError{Row: i + 2, Column: column, Value: row[idx], Err: err}
			}
			out[i] = t
		}
		return out, nil
	}

	var idx [4]int
	for j, name := range splitTimestamp {
		idx[j] = slices.Index(header, name)
	}
	for i, row := range rows {
		var n [4]int
		var raw [4]string
		for j, name := range splitTimestamp {
			raw[j] = row[idx[j]]
			v, err := strconv.Atoi(strings.TrimSpace(raw[j]))
			if err != nil {
				return nil, &types.ParseError{Row: i + 2, Column: name, Value: raw[j], Err: err}
			}
			n[j] = v
		}
		t := time.Date(n[0], time.Month(n[1]), n[2], n[3], 0, 0, 0, time.UTC)
		if t.Year() != n[0] || int(t.Month()) != n[1] || t.Day() != n[2] || t.Hour() != n[3] {
			return nil, &types.ParseError{
				Row:    i + 2,
				Column: "year/month/day/hour",
				Value:  strings.Join(raw[:], "/"),
				Err:    errors.New("not a valid date"),
			}
		}
		out[i] = t
	}
	return out, nil
}

// ParseTimestamp accepts the layouts found in cleaned exports. Values without
// a zone are taken as UTC and zoned values are converted to UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}
