package frame

import (
	"math"
	"time"
)

// StateTEME is a satellite position/velocity in the TEME frame (km, km/s),
// as produced by SGP4.
type StateTEME struct {
	X, Y, Z    float64
	VX, VY, VZ float64
}

// StateECEF is a satellite position/velocity in the ECEF frame (meters, m/s).
type StateECEF struct {
	X, Y, Z    float64
	VX, VY, VZ float64
}

// TEMEToECEF rotates a TEME state into ECEF at the given UTC instant.
func TEMEToECEF(s StateTEME, t time.Time) StateECEF {
	return TEMEToECEFAt(s, GMST(t))
}

// TEMEToECEFAt rotates a TEME state into ECEF using a precomputed GMST angle
// in radians. When many satellites are evaluated at the same instant, GMST is
// computed once and shared.
//
//	r_ECEF = R3(θ)·r_TEME
//	v_ECEF = R3(θ)·v_TEME − ω × r_ECEF
//
// where R3 rotates about the Z axis and ω = [0, 0, ω_earth].
func TEMEToECEFAt(s StateTEME, gmst float64) StateECEF {
	cosG := math.Cos(gmst)
	sinG := math.Sin(gmst)

	x := s.X*cosG + s.Y*sinG
	y := -s.X*sinG + s.Y*cosG
	z := s.Z

	vx := s.VX*cosG + s.VY*sinG
	vy := -s.VX*sinG + s.VY*cosG
	vz := s.VZ

	// ω × r_ECEF = [-ω·y, ω·x, 0]
	vx += OmegaEarth * y
	vy -= OmegaEarth * x

	// km → meters.
	return StateECEF{
		X:  x * 1000.0,
		Y:  y * 1000.0,
		Z:  z * 1000.0,
		VX: vx * 1000.0,
		VY: vy * 1000.0,
		VZ: vz * 1000.0,
	}
}
