package visibility

import (
	"log/slog"
	"time"

	"github.com/skywatch/covergo/internal/frame"
	"github.com/skywatch/covergo/internal/metrics"
	"github.com/skywatch/covergo/internal/tle"
)

// Record is one satellite visible above the observer's threshold at one
// instant. Recomputed per (satellite, instant) pair, never cached.
type Record struct {
	Satellite    string    `json:"name"`
	ElevationDeg float64   `json:"elevation"`
	AzimuthDeg   float64   `json:"azimuth"`
	RangeKm      float64   `json:"distance_km"`
	Timestamp    time.Time `json:"timestamp"`
}

// Engine holds the per-run immutable evaluation state: initialized SGP4
// models for every usable catalog member, the observer, and the elevation
// threshold. The ephemerides are built once per run and shared read-only
// across concurrent grid evaluations — construction cost is paid exactly
// once, not per task.
type Engine struct {
	ephemerides  []*Ephemeris
	observer     frame.Observer
	thresholdDeg float64
	logger       *slog.Logger
}

// NewEngine builds an Engine from a catalog. Element sets whose SGP4 model
// cannot be initialized are skipped with a warning; the skip count is
// returned so callers can surface it.
func NewEngine(catalog *tle.Catalog, observer frame.Observer, thresholdDeg float64, logger *slog.Logger) (*Engine, int) {
	var (
		ephs    []*Ephemeris
		skipped int
	)
	if catalog != nil {
		ephs = make([]*Ephemeris, 0, len(catalog.Sets))
		for _, set := range catalog.Sets {
			eph, err := NewEphemeris(set.Name, set.Line1, set.Line2)
			if err != nil {
				logger.Warn("skipping satellite", "name", set.Name, "error", err)
				skipped++
				continue
			}
			ephs = append(ephs, eph)
		}
	}
	if skipped > 0 {
		metrics.AddSkippedSatellites(skipped)
	}

	return &Engine{
		ephemerides:  ephs,
		observer:     observer,
		thresholdDeg: thresholdDeg,
		logger:       logger,
	}, skipped
}

// Satellites returns the number of usable satellites in the engine.
func (e *Engine) Satellites() int {
	return len(e.ephemerides)
}

// VisibleAt evaluates every satellite at time t and returns the records
// whose elevation exceeds the threshold, in catalog order. A numerical
// failure for one satellite counts as not visible and never aborts the
// instant. Stateless with respect to t; safe to call concurrently.
func (e *Engine) VisibleAt(t time.Time) []Record {
	t = t.UTC()
	// GMST is identical for every satellite at the same instant.
	gmst := frame.GMST(t)

	var records []Record
	for _, eph := range e.ephemerides {
		teme, err := eph.StateAt(t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())
		if err != nil {
			metrics.IncEvaluationErrors()
			e.logger.Debug("evaluation failed, treating as not visible",
				"name", eph.Name,
				"time", t.Format(time.RFC3339),
				"error", err,
			)
			continue
		}

		ecef := frame.TEMEToECEFAt(teme, gmst)
		la := e.observer.LookAt(ecef.X, ecef.Y, ecef.Z)

		if la.ElevationDeg > e.thresholdDeg {
			records = append(records, Record{
				Satellite:    eph.Name,
				ElevationDeg: la.ElevationDeg,
				AzimuthDeg:   la.AzimuthDeg,
				RangeKm:      la.RangeKm,
				Timestamp:    t,
			})
		}
	}
	return records
}
