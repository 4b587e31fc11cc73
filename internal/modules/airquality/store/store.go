// Package store holds the loaded measurement series. A Store is immutable
// once built: accessors hand out copies so concurrent reports can share it.
package store

import (
	"errors"
	"slices"
	"time"

	"aqdash-server/internal/modules/airquality/types"
)

type Store struct {
	records []types.Measurement
	bounds  types.Bounds
}

// New builds a store from typed records. Records with a zero timestamp are rejected.
func New(records []types.Measurement) (*Store, error) {
	for i, m := range records {
		if m.Time.IsZero() {
			return nil, &types.ParseError{Row: i + 1, Column: "time", Err: errors.New("timestamp is required")}
		}
	}
	s := &Store{records: slices.Clone(records)}
	s.bounds = computeBounds(s.records)
	return s, nil
}

func computeBounds(records []types.Measurement) types.Bounds {
	if len(records) == 0 {
		return types.Bounds{Empty: true}
	}
	first, last := records[0].Time, records[0].Time
	for _, m := range records[1:] {
		if m.Time.Before(first) {
			first = m.Time
		}
		if m.Time.After(last) {
			last = m.Time
		}
	}
	return types.Bounds{First: types.DateOf(first), Last: types.DateOf(last), Records: len(records)}
}

// Clamp returns a store restricted to the given window.
func (s *Store) Clamp(w types.Window) (*Store, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	kept := make([]types.Measurement, 0, len(s.records))
	for _, m := range s.records {
		if w.Contains(m.Time) {
			kept = append(kept, m)
		}
	}
	return &Store{records: kept, bounds: computeBounds(kept)}, nil
}

func (s *Store) Len() int { return len(s.records) }

// Records returns a copy of the stored measurements in load order.
func (s *Store) Records() []types.Measurement {
	return slices.Clone(s.records)
}

func (s *Store) Bounds() types.Bounds { return s.bounds }

// Snapshot pairs a store with the time it was loaded.
type Snapshot struct {
	Store    *Store
	LoadedAt time.Time
	Source   string
}
