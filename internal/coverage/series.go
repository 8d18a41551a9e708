package coverage

import (
	"time"

	"github.com/skywatch/covergo/internal/visibility"
)

// Sample is the visibility state at one grid instant. Records keep catalog
// order; Best points into Records at the highest elevation, with ties broken
// by first-encountered catalog order.
type Sample struct {
	Timestamp    time.Time
	VisibleCount int
	Records      []visibility.Record
	Best         *visibility.Record
}

// Series is the ordered result of one analysis run: one sample per grid
// point, strictly increasing by timestamp. A failed computation appears as
// an empty sample, never as a gap.
type Series []Sample

// Point is the flat, JSON/CSV-ready projection of a sample. Empty samples
// project to zero elevation and distance with no best satellite, matching
// the reporting format of the analysis output.
type Point struct {
	Timestamp     time.Time `json:"timestamp"`
	VisibleCount  int       `json:"visible_count"`
	Elevation     float64   `json:"elevation"`
	BestSatellite string    `json:"best_satellite"`
	DistanceKm    float64   `json:"distance_km"`
}

// Point returns the flat projection of s.
func (s Sample) Point() Point {
	p := Point{
		Timestamp:    s.Timestamp,
		VisibleCount: s.VisibleCount,
	}
	if s.Best != nil {
		p.Elevation = s.Best.ElevationDeg
		p.BestSatellite = s.Best.Satellite
		p.DistanceKm = s.Best.RangeKm
	}
	return p
}

// Points returns the flat projection of the whole series.
func (sr Series) Points() []Point {
	pts := make([]Point, len(sr))
	for i, s := range sr {
		pts[i] = s.Point()
	}
	return pts
}
