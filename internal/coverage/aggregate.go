package coverage

// Statistics is the scalar reduction of a series. Derived data: recomputable
// from the series at any time, holds no independent state. JSON field names
// match the reporting format consumed by the dashboard.
type Statistics struct {
	AvgVisible   float64 `json:"avg_visible_satellites"`
	MaxVisible   int     `json:"max_visible_satellites"`
	MinVisible   int     `json:"min_visible_satellites"`
	CoveragePct  float64 `json:"coverage_percentage"`
	AvgElevation float64 `json:"avg_elevation"`
	MaxElevation float64 `json:"max_elevation"`
	Samples      int     `json:"analysis_duration_minutes"`
	ObserverLat  float64 `json:"observer_lat"`
	ObserverLon  float64 `json:"observer_lon"`
}

// Aggregate reduces a series to its statistics. Defined for the empty
// series: every mean and extreme is zero. Cannot fail on a well-formed
// series. Empty samples contribute a best elevation of zero to the mean,
// so AvgElevation is averaged over all samples, not only covered ones.
func Aggregate(series Series) Statistics {
	stats := Statistics{Samples: len(series)}
	if len(series) == 0 {
		return stats
	}

	var sumVisible, covered int
	var sumElevation float64
	stats.MinVisible = series[0].VisibleCount

	for _, s := range series {
		sumVisible += s.VisibleCount
		if s.VisibleCount > stats.MaxVisible {
			stats.MaxVisible = s.VisibleCount
		}
		if s.VisibleCount < stats.MinVisible {
			stats.MinVisible = s.VisibleCount
		}
		if s.VisibleCount > 0 {
			covered++
		}
		if s.Best != nil {
			sumElevation += s.Best.ElevationDeg
			if s.Best.ElevationDeg > stats.MaxElevation {
				stats.MaxElevation = s.Best.ElevationDeg
			}
		}
	}

	n := float64(len(series))
	stats.AvgVisible = float64(sumVisible) / n
	stats.CoveragePct = float64(covered) / n * 100.0
	stats.AvgElevation = sumElevation / n

	return stats
}
