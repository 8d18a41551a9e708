// Package analysis orchestrates one coverage run end to end: catalog
// snapshot, ephemeris construction, time grid, scheduled evaluation and
// the final statistics reduction.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/skywatch/covergo/internal/coverage"
	"github.com/skywatch/covergo/internal/frame"
	"github.com/skywatch/covergo/internal/metrics"
	"github.com/skywatch/covergo/internal/results"
	"github.com/skywatch/covergo/internal/status"
	"github.com/skywatch/covergo/internal/tle"
	"github.com/skywatch/covergo/internal/visibility"
)

var (
	// ErrNoCatalog means no TLE catalog has been loaded yet.
	ErrNoCatalog = errors.New("no catalog loaded")

	// ErrAlreadyRunning means a run is in flight; only one run may execute
	// at a time.
	ErrAlreadyRunning = errors.New("analysis already running")
)

// Request holds the parameters of one coverage run.
type Request struct {
	LatDeg          float64 `json:"observer_lat"`
	LonDeg          float64 `json:"observer_lon"`
	AltM            float64 `json:"observer_alt_m"`
	DurationMinutes int     `json:"duration_minutes"`
	IntervalMinutes float64 `json:"interval_minutes"`
	MinElevationDeg float64 `json:"min_elevation_deg"`
	Workers         int     `json:"workers,omitempty"`

	// Start anchors the time grid. Zero means now.
	Start time.Time `json:"start,omitempty"`
}

// Validate checks the request fields that the downstream packages do not
// check themselves.
func (r Request) Validate() error {
	if r.MinElevationDeg < -90 || r.MinElevationDeg > 90 {
		return fmt.Errorf("min elevation %.2f out of range [-90, 90]", r.MinElevationDeg)
	}
	if r.DurationMinutes <= 0 {
		return fmt.Errorf("duration must be positive, got %d", r.DurationMinutes)
	}
	if r.IntervalMinutes <= 0 {
		return fmt.Errorf("interval must be positive, got %g", r.IntervalMinutes)
	}
	_, err := frame.NewObserver(r.LatDeg, r.LonDeg, r.AltM)
	return err
}

// Service runs coverage analyses against the currently loaded catalog.
type Service struct {
	catalog *tle.Store
	tracker *status.Tracker
	store   *results.Store
	logger  *slog.Logger

	running atomic.Bool
}

// NewService wires the analysis pipeline to its catalog source, status
// tracker and completed-run store.
func NewService(catalog *tle.Store, tracker *status.Tracker, store *results.Store, logger *slog.Logger) *Service {
	return &Service{
		catalog: catalog,
		tracker: tracker,
		store:   store,
		logger:  logger,
	}
}

// Tracker returns the status tracker runs publish to.
func (s *Service) Tracker() *status.Tracker {
	return s.tracker
}

// Results returns the completed-run store.
func (s *Service) Results() *results.Store {
	return s.store
}

// Run executes one analysis synchronously and stores the completed run.
// It publishes status snapshots along the way so concurrent readers see
// progress whether the run was started via Start or directly.
func (s *Service) Run(ctx context.Context, req Request) (*results.Run, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer s.running.Store(false)

	return s.run(ctx, uuid.NewString(), req)
}

// Start launches an analysis in the background and returns its run ID.
// Progress and completion are observable through the tracker; the finished
// run lands in the results store.
//
// The run outlives the caller: ctx is typically a request context that
// net/http cancels as soon as the handler returns, so the background
// goroutine runs on a detached context that keeps ctx's values but not
// its cancellation.
func (s *Service) Start(ctx context.Context, req Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	if s.catalog.Get() == nil {
		return "", ErrNoCatalog
	}
	if !s.running.CompareAndSwap(false, true) {
		return "", ErrAlreadyRunning
	}

	runID := uuid.NewString()
	s.tracker.Publish(status.Snapshot{
		RunID:     runID,
		Phase:     status.PhasePending,
		StartedAt: time.Now().UTC(),
	})

	runCtx := context.WithoutCancel(ctx)
	go func() {
		defer s.running.Store(false)
		if _, err := s.run(runCtx, runID, req); err != nil {
			s.logger.Error("background analysis failed", "run_id", runID, "error", err)
		}
	}()

	return runID, nil
}

func (s *Service) run(ctx context.Context, runID string, req Request) (*results.Run, error) {
	startedAt := time.Now().UTC()

	fail := func(err error) (*results.Run, error) {
		s.tracker.Publish(status.Snapshot{
			RunID:      runID,
			Phase:      status.PhaseFailed,
			Error:      err.Error(),
			StartedAt:  startedAt,
			FinishedAt: time.Now().UTC(),
		})
		metrics.RecordAnalysis("none", "error", time.Since(startedAt))
		return nil, err
	}

	if err := req.Validate(); err != nil {
		return fail(err)
	}

	catalog := s.catalog.Get()
	if catalog == nil {
		return fail(ErrNoCatalog)
	}

	observer, err := frame.NewObserver(req.LatDeg, req.LonDeg, req.AltM)
	if err != nil {
		return fail(err)
	}

	gridStart := req.Start
	if gridStart.IsZero() {
		gridStart = time.Now().UTC()
	}
	grid, err := coverage.Grid(gridStart, req.IntervalMinutes, req.DurationMinutes)
	if err != nil {
		return fail(err)
	}

	engine, skipped := visibility.NewEngine(catalog, observer, req.MinElevationDeg, s.logger)

	s.logger.Info("analysis starting",
		"run_id", runID,
		"satellites", engine.Satellites(),
		"skipped", skipped,
		"samples", len(grid),
		"interval_minutes", req.IntervalMinutes,
	)
	s.tracker.Publish(status.Snapshot{
		RunID:     runID,
		Phase:     status.PhaseRunning,
		Message:   fmt.Sprintf("evaluating %d satellites over %d samples", engine.Satellites(), len(grid)),
		StartedAt: startedAt,
	})

	sched := coverage.NewScheduler(engine, req.Workers, s.logger)
	sched.OnProgress = func(done, total int) {
		s.tracker.Publish(status.Snapshot{
			RunID:     runID,
			Phase:     status.PhaseRunning,
			Progress:  float64(done) / float64(total),
			StartedAt: startedAt,
		})
	}

	series, mode, err := sched.Run(ctx, grid)
	if err != nil {
		s.tracker.Publish(status.Snapshot{
			RunID:      runID,
			Phase:      status.PhaseFailed,
			Error:      err.Error(),
			StartedAt:  startedAt,
			FinishedAt: time.Now().UTC(),
		})
		metrics.RecordAnalysis(string(mode), "error", time.Since(startedAt))
		return nil, err
	}

	stats := coverage.Aggregate(series)
	stats.ObserverLat = req.LatDeg
	stats.ObserverLon = req.LonDeg

	run := &results.Run{
		ID:          runID,
		CompletedAt: time.Now().UTC(),
		Mode:        mode,
		Skipped:     skipped,
		Series:      series.Points(),
		Stats:       stats,
	}
	s.store.Put(run)

	s.tracker.Publish(status.Snapshot{
		RunID:      runID,
		Phase:      status.PhaseDone,
		Progress:   1,
		StartedAt:  startedAt,
		FinishedAt: run.CompletedAt,
	})
	metrics.RecordAnalysis(string(mode), "ok", time.Since(startedAt))

	s.logger.Info("analysis finished",
		"run_id", runID,
		"mode", string(mode),
		"coverage_pct", stats.CoveragePct,
		"duration", time.Since(startedAt).String(),
	)
	return run, nil
}
