package coverage

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/skywatch/covergo/internal/metrics"
	"github.com/skywatch/covergo/internal/visibility"
)

// Evaluator produces the visibility records for one instant. Implementations
// must be safe for concurrent calls; the scheduler shares one evaluator
// across all workers.
type Evaluator interface {
	VisibleAt(t time.Time) []visibility.Record
}

// Mode is the execution strategy for one run. A run starts in ModeParallel
// (when workers > 1) and is demoted to ModeSequential at most once, when the
// worker pool fails.
type Mode string

const (
	ModeParallel   Mode = "parallel"
	ModeSequential Mode = "sequential"
)

// Scheduler fans the time grid out to the evaluator, one task per instant,
// and reassembles the samples in time order.
type Scheduler struct {
	eval    Evaluator
	workers int
	logger  *slog.Logger

	// OnProgress, when set, is called after each completed instant with the
	// number done and the grid size. Called from the single collecting
	// goroutine, never concurrently.
	OnProgress func(done, total int)
}

// NewScheduler creates a scheduler with the given concurrency degree.
// Values below 1 default to the host CPU count.
func NewScheduler(eval Evaluator, workers int, logger *slog.Logger) *Scheduler {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	return &Scheduler{eval: eval, workers: workers, logger: logger}
}

// Workers returns the configured concurrency degree.
func (s *Scheduler) Workers() int {
	return s.workers
}

// Run evaluates every grid instant and returns the series sorted by
// timestamp, plus the execution mode the run actually finished in.
//
// With workers > 1 the grid is dispatched to a worker pool. If the pool
// fails (a worker panics or samples are lost), everything collected so far
// is discarded in full and the run restarts sequentially — partial parallel
// results are never merged with sequential ones. Context cancellation is a
// hard error in either mode.
func (s *Scheduler) Run(ctx context.Context, grid []time.Time) (Series, Mode, error) {
	mode := ModeSequential
	if s.workers > 1 {
		mode = ModeParallel
	}

	if len(grid) == 0 {
		return Series{}, mode, nil
	}

	if mode == ModeParallel {
		series, err := s.runParallel(ctx, grid)
		if err == nil {
			return series, ModeParallel, nil
		}
		if ctx.Err() != nil {
			return nil, ModeParallel, err
		}

		s.logger.Warn("parallel execution failed, retrying sequentially", "error", err)
		metrics.IncSchedulerFallback()
		mode = ModeSequential
	}

	series, err := s.runSequential(ctx, grid)
	return series, mode, err
}

// runParallel dispatches one task per grid instant to a bounded worker pool.
// The catalog and observer inside the evaluator are shared by immutable
// reference; the only synchronization point is the final collect and sort.
// Returns an error — and no samples — when the pool cannot account for every
// instant.
func (s *Scheduler) runParallel(ctx context.Context, grid []time.Time) (Series, error) {
	jobs := make(chan time.Time, s.workers*2)
	results := make(chan Sample, s.workers*2)

	// Closed once every worker has exited, so the feeder cannot block
	// forever on a pool with no receivers left.
	workersDone := make(chan struct{})

	var wg sync.WaitGroup
	var panicked atomic.Value

	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					panicked.Store(fmt.Sprintf("%v", r))
				}
			}()
			for t := range jobs {
				sample := s.buildSample(t)
				select {
				case results <- sample:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, t := range grid {
			select {
			case jobs <- t:
			case <-ctx.Done():
				return
			case <-workersDone:
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(workersDone)
		close(results)
	}()

	samples := make(Series, 0, len(grid))
	for sample := range results {
		samples = append(samples, sample)
		if s.OnProgress != nil {
			s.OnProgress(len(samples), len(grid))
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r := panicked.Load(); r != nil {
		return nil, fmt.Errorf("worker panicked: %v", r)
	}
	if len(samples) != len(grid) {
		return nil, fmt.Errorf("worker pool lost samples: got %d of %d", len(samples), len(grid))
	}

	// Completion order under concurrency is arbitrary; the sort is the sole
	// ordering guarantee callers may rely on.
	sort.Slice(samples, func(i, j int) bool {
		return samples[i].Timestamp.Before(samples[j].Timestamp)
	})

	return samples, nil
}

// runSequential evaluates the grid in original order. A panic while building
// one sample is contained to that instant and yields an empty sample.
func (s *Scheduler) runSequential(ctx context.Context, grid []time.Time) (Series, error) {
	samples := make(Series, 0, len(grid))
	for _, t := range grid {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		samples = append(samples, s.buildSampleContained(t))
		if s.OnProgress != nil {
			s.OnProgress(len(samples), len(grid))
		}
	}
	return samples, nil
}

func (s *Scheduler) buildSampleContained(t time.Time) (sample Sample) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("sample evaluation panicked, emitting empty sample",
				"time", t.UTC().Format(time.RFC3339),
				"panic", fmt.Sprintf("%v", r),
			)
			sample = Sample{Timestamp: t}
		}
	}()
	return s.buildSample(t)
}

// buildSample evaluates one instant and selects the best visible record.
// The strict > comparison makes the first catalog entry win elevation ties.
func (s *Scheduler) buildSample(t time.Time) Sample {
	records := s.eval.VisibleAt(t)

	sample := Sample{
		Timestamp:    t,
		VisibleCount: len(records),
		Records:      records,
	}
	for i := range records {
		if sample.Best == nil || records[i].ElevationDeg > sample.Best.ElevationDeg {
			sample.Best = &records[i]
		}
	}
	return sample
}
