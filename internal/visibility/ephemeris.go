// Package visibility evaluates which satellites of a catalog are above a
// ground observer's elevation threshold at a given instant.
//
// SGP4 library choice: github.com/joshuaferrara/go-satellite — pure Go, no
// CGO, explicit TEME output. Propagate() takes Satellite by value so SGP4
// error codes are not visible to the caller; propagation failures are
// detected by checking the output for NaN/Inf and unreasonable magnitudes.
package visibility

import (
	"fmt"
	"math"
	"strings"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/skywatch/covergo/internal/frame"
)

// Ephemeris is an initialized SGP4 model for one satellite. Immutable after
// construction; safe for concurrent use.
type Ephemeris struct {
	Name string
	sat  satellite.Satellite
}

// NewEphemeris initializes the SGP4 model from TLE lines. Returns an error
// when the lines are malformed or the model fails to initialize.
//
// The lines are pre-validated because go-satellite calls log.Fatal on
// malformed input, which would kill the process.
func NewEphemeris(name, line1, line2 string) (*Ephemeris, error) {
	if err := validateLines(line1, line2); err != nil {
		return nil, fmt.Errorf("invalid TLE for %s: %w", name, err)
	}

	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS84)
	if sat.Error != 0 {
		return nil, fmt.Errorf("sgp4 init failed for %s: code=%d %s", name, sat.Error, sat.ErrorStr)
	}
	return &Ephemeris{Name: name, sat: sat}, nil
}

func validateLines(line1, line2 string) error {
	line1 = strings.TrimRight(line1, " ")
	line2 = strings.TrimRight(line2, " ")

	if len(line1) != 69 {
		return fmt.Errorf("line1 length %d, expected 69", len(line1))
	}
	if len(line2) != 69 {
		return fmt.Errorf("line2 length %d, expected 69", len(line2))
	}
	if line1[0] != '1' {
		return fmt.Errorf("line1 must start with '1', got '%c'", line1[0])
	}
	if line2[0] != '2' {
		return fmt.Errorf("line2 must start with '2', got '%c'", line2[0])
	}
	return nil
}

// StateAt propagates the satellite to the given UTC components and returns
// its TEME state in km and km/s.
func (e *Ephemeris) StateAt(year, month, day, hour, min, sec int) (frame.StateTEME, error) {
	pos, vel := satellite.Propagate(e.sat, year, month, day, hour, min, sec)

	if math.IsNaN(pos.X) || math.IsNaN(pos.Y) || math.IsNaN(pos.Z) ||
		math.IsInf(pos.X, 0) || math.IsInf(pos.Y, 0) || math.IsInf(pos.Z, 0) {
		return frame.StateTEME{}, fmt.Errorf("sgp4 propagation failed for %s: output is NaN/Inf", e.Name)
	}

	// Sanity bound: anything orbiting Earth sits between ~6200 km and ~50000 km.
	mag := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y + pos.Z*pos.Z)
	if mag < 6200.0 || mag > 50000.0 {
		return frame.StateTEME{}, fmt.Errorf("sgp4 propagation failed for %s: unreasonable position magnitude %.1f km", e.Name, mag)
	}

	return frame.StateTEME{
		X: pos.X, Y: pos.Y, Z: pos.Z,
		VX: vel.X, VY: vel.Y, VZ: vel.Z,
	}, nil
}
