package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"aqdash-server/internal/metrics"
	"aqdash-server/internal/modules/airquality/analysis"
	"aqdash-server/internal/modules/airquality/repository"
	"aqdash-server/internal/modules/airquality/store"
	"aqdash-server/internal/modules/airquality/types"
)

// ErrNotLoaded is returned before the first successful Reload.
var ErrNotLoaded = errors.New("measurement store not loaded")

// ErrIngestDisabled is returned by Ingest when no repository is configured.
var ErrIngestDisabled = errors.New("live ingestion requires the sqlite data source")

type ReportService struct {
	source  store.Source
	repo    repository.MeasurementRepository
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time

	snapshot atomic.Pointer[store.Snapshot]
	stale    atomic.Bool
	reloadMu sync.Mutex
}

type Option func(*ReportService)

// WithRepository enables Ingest.
func WithRepository(repo repository.MeasurementRepository) Option {
	return func(s *ReportService) { s.repo = repo }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *ReportService) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *ReportService) { s.now = now }
}

func NewService(source store.Source, logger *slog.Logger, opts ...Option) *ReportService {
	s := &ReportService{
		source: source,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reload builds a fresh store from the source and swaps it in.
// On failure the previous snapshot stays current.
func (s *ReportService) Reload() error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	start := s.now()
	// Cleared before loading so ingests racing the load mark it stale again.
	// A failed load restores the flag: pending ingests are still unseen, and a
	// broken source alone does not schedule retries.
	wasStale := s.stale.Swap(false)
	st, err := s.source.Load()
	if err != nil {
		if wasStale {
			s.stale.Store(true)
		}
		if s.metrics != nil {
			s.metrics.ObserveLoad(0, start, err)
		}
		s.logger.Error("store reload failed", "source", s.source.Name(), "error", err)
		return fmt.Errorf("reload %s: %w", s.source.Name(), err)
	}

	snap := &store.Snapshot{Store: st, LoadedAt: s.now(), Source: s.source.Name()}
	s.snapshot.Store(snap)
	if s.metrics != nil {
		s.metrics.ObserveLoad(st.Len(), snap.LoadedAt, nil)
	}
	b := st.Bounds()
	s.logger.Info("store loaded",
		"source", snap.Source,
		"records", st.Len(),
		"first", b.First.Format(time.DateOnly),
		"last", b.Last.Format(time.DateOnly),
		"took", s.now().Sub(start),
	)
	return nil
}

// Snapshot returns the current snapshot or nil before the first load.
func (s *ReportService) Snapshot() *store.Snapshot {
	return s.snapshot.Load()
}

func (s *ReportService) Loaded() bool { return s.snapshot.Load() != nil }

func (s *ReportService) Stale() bool { return s.stale.Load() }

func (s *ReportService) Bounds() (types.Bounds, error) {
	snap := s.snapshot.Load()
	if snap == nil {
		return types.Bounds{}, ErrNotLoaded
	}
	return snap.Store.Bounds(), nil
}

// DefaultWindow spans the whole loaded series.
func (s *ReportService) DefaultWindow() (types.Window, error) {
	b, err := s.Bounds()
	if err != nil {
		return types.Window{}, err
	}
	if b.Empty {
		today := types.DateOf(s.now())
		return types.NewWindow(today, today), nil
	}
	return b.Window(), nil
}

// Report runs the pipeline for w over the current snapshot. format labels metrics only.
func (s *ReportService) Report(w types.Window, format string) (types.Report, error) {
	snap := s.snapshot.Load()
	if snap == nil {
		s.observe(format, metrics.OutcomeError, 0)
		return types.Report{}, ErrNotLoaded
	}

	start := time.Now()
	report, err := analysis.BuildReport(snap.Store.Records(), w, s.now())
	if err != nil {
		var rangeErr *types.InvalidRangeError
		if errors.As(err, &rangeErr) {
			s.observe(format, metrics.OutcomeInvalid, 0)
		} else {
			s.observe(format, metrics.OutcomeError, 0)
		}
		return types.Report{}, err
	}
	s.observe(format, metrics.OutcomeOK, time.Since(start))
	s.logger.Debug("report built",
		"format", format,
		"start", w.Start.Format(time.DateOnly),
		"end", w.End.Format(time.DateOnly),
		"records", report.Records,
		"days", report.Summary.Days,
	)
	return report, nil
}

func (s *ReportService) observe(format, outcome string, took time.Duration) {
	if s.metrics != nil {
		s.metrics.ObserveReport(format, outcome, took)
	}
}

// Ingest stores a live measurement and marks the snapshot stale.
func (s *ReportService) Ingest(m types.Measurement) error {
	if s.repo == nil {
		return ErrIngestDisabled
	}
	if err := s.repo.InsertMeasurement(m, repository.OriginMQTT); err != nil {
		return err
	}
	s.stale.Store(true)
	return nil
}

// maxRefreshSkip caps how many ticks RefreshLoop waits after repeated failures.
const maxRefreshSkip = 31

// refreshSkip is the number of ticks to wait after the given number of
// consecutive failed reloads: 1, 3, 7, ... up to maxRefreshSkip.
func refreshSkip(failures int) int {
	if failures <= 0 {
		return 0
	}
	if failures >= 5 {
		return maxRefreshSkip
	}
	return 1<<failures - 1
}

// RefreshLoop reloads a stale snapshot every interval until ctx is done.
// Consecutive failures back off by skipping ticks.
func (s *ReportService) RefreshLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	failures, skip := 0, 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.stale.Load() {
				continue
			}
			if skip > 0 {
				skip--
				continue
			}
			// Reload logs its own failures.
			if err := s.Reload(); err != nil {
				failures++
				skip = refreshSkip(failures)
				continue
			}
			failures = 0
		}
	}
}
