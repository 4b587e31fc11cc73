package store

import (
	"fmt"
	"os"

	"aqdash-server/internal/modules/airquality/types"
)

// Source produces a fresh Store on every call.
type Source interface {
	Load() (*Store, error)
	Name() string
}

type CSVSource struct {
	Path    string
	Columns Columns
}

func (s CSVSource) Name() string { return "csv:" + s.Path }

func (s CSVSource) Load() (*Store, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.Path, err)
	}
	defer f.Close()

	st, err := LoadCSV(f, s.Columns)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", s.Path, err)
	}
	return st, nil
}

// MeasurementReader is implemented by the sqlite repository.
type MeasurementReader interface {
	GetMeasurements() ([]types.Measurement, error)
}

type RepositorySource struct {
	Reader MeasurementReader
}

func (s RepositorySource) Name() string { return "sqlite" }

func (s RepositorySource) Load() (*Store, error) {
	records, err := s.Reader.GetMeasurements()
	if err != nil {
		return nil, fmt.Errorf("read measurements: %w", err)
	}
	return New(records)
}

// Clamped restricts every store produced by Source to Window.
type Clamped struct {
	Source
	Window types.Window
}

func (c Clamped) Load() (*Store, error) {
	st, err := c.Source.Load()
	if err != nil {
		return nil, err
	}
	return st.Clamp(c.Window)
}
