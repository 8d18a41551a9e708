// Package coverage implements the coverage analysis engine: time-grid
// generation, parallel or sequential scheduling of per-instant visibility
// evaluation, and statistical aggregation of the resulting series.
package coverage

import (
	"errors"
	"time"
)

// ErrInvalidWindow rejects a non-positive sampling interval or duration.
// Raised before any computation; never retried.
var ErrInvalidWindow = errors.New("analysis window: interval and duration must be positive")

// Grid returns the sample instants {start + i·interval : i = 0..N-1} with
// N = floor(duration/interval). The grid is strictly increasing with fixed
// spacing, and a duration that is not a multiple of the interval produces no
// partial trailing sample. A duration shorter than the interval yields an
// empty grid, which is not an error.
func Grid(start time.Time, intervalMinutes float64, durationMinutes int) ([]time.Time, error) {
	if intervalMinutes <= 0 || durationMinutes <= 0 {
		return nil, ErrInvalidWindow
	}

	n := int(float64(durationMinutes) / intervalMinutes)
	step := time.Duration(intervalMinutes * float64(time.Minute))

	grid := make([]time.Time, n)
	for i := range grid {
		grid[i] = start.Add(time.Duration(i) * step)
	}
	return grid, nil
}
