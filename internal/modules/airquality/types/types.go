package types

import (
	"encoding/json"
	"io"
	"time"
)

// Measurement is one observation. PM25 and WindSpeed are nil when missing.
type Measurement struct {
	Time      time.Time `json:"time"`
	PM25      *float64  `json:"pm25"`
	WindSpeed *float64  `json:"wspm"`
}

// DateOf returns the UTC calendar date of t as midnight UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Window is an inclusive range of calendar dates.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func NewWindow(start, end time.Time) Window {
	return Window{Start: DateOf(start), End: DateOf(end)}
}

func (w Window) Validate() error {
	if DateOf(w.Start).After(DateOf(w.End)) {
		return &InvalidRangeError{Start: w.Start, End: w.End}
	}
	return nil
}

// Contains reports whether the calendar date of t lies in the window.
func (w Window) Contains(t time.Time) bool {
	d := DateOf(t)
	return !d.Before(DateOf(w.Start)) && !d.After(DateOf(w.End))
}

func (w Window) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Start string `json:"start"`
		End   string `json:"end"`
	}{
		Start: w.Start.Format(time.DateOnly),
		End:   w.End.Format(time.DateOnly),
	})
}

type DailyMean struct {
	Date  time.Time `json:"date"`
	Mean  float64   `json:"mean"`
	Count int       `json:"count"`
}

func (d DailyMean) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Date  string  `json:"date"`
		Mean  float64 `json:"mean"`
		Count int     `json:"count"`
	}{
		Date:  d.Date.Format(time.DateOnly),
		Mean:  d.Mean,
		Count: d.Count,
	})
}

// MonthlyMean groups by month number only; the same month of different years is merged.
type MonthlyMean struct {
	Month time.Month `json:"month"`
	Mean  float64    `json:"mean"`
	Count int        `json:"count"`
}

// OptionalFloat is a value that may be undefined. It encodes as null when not Valid.
type OptionalFloat struct {
	Value float64
	Valid bool
}

func (o OptionalFloat) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// Correlation is a Pearson coefficient. Valid is false when it is undefined.
type Correlation struct {
	Value float64
	Pairs int
	Valid bool
}

func (c Correlation) MarshalJSON() ([]byte, error) {
	out := struct {
		Value *float64 `json:"value"`
		Pairs int      `json:"pairs"`
	}{Pairs: c.Pairs}
	if c.Valid {
		v := c.Value
		out.Value = &v
	}
	return json.Marshal(out)
}

type Summary struct {
	Days             int           `json:"days"`
	MeanOfDailyMeans OptionalFloat `json:"meanOfDailyMeans"`
	Peak             *DailyMean    `json:"peak"`
}

type Bounds struct {
	First   time.Time
	Last    time.Time
	Records int
	Empty   bool
}

func (b Bounds) Window() Window {
	return NewWindow(b.First, b.Last)
}

func (b Bounds) MarshalJSON() ([]byte, error) {
	out := struct {
		First   *string `json:"first"`
		Last    *string `json:"last"`
		Records int     `json:"records"`
	}{Records: b.Records}
	if !b.Empty {
		first := b.First.Format(time.DateOnly)
		last := b.Last.Format(time.DateOnly)
		out.First, out.Last = &first, &last
	}
	return json.Marshal(out)
}

// Report is the full pipeline output for one window.
type Report struct {
	Window      Window        `json:"window"`
	Records     int           `json:"records"`
	Daily       []DailyMean   `json:"daily"`
	Monthly     []MonthlyMean `json:"monthly"`
	Summary     Summary       `json:"summary"`
	Correlation Correlation   `json:"correlation"`
	// Points holds the paired (wind, PM2.5) observations for scatter plots.
	Points      []Point   `json:"-"`
	GeneratedAt time.Time `json:"generatedAt"`
}

type Point struct {
	WindSpeed float64 `json:"x"`
	PM25      float64 `json:"y"`
}

// Presenter renders a report. Implementations live outside the pipeline.
type Presenter interface {
	ContentType() string
	Present(w io.Writer, r *Report) error
}
