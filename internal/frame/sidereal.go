// Package frame provides the coordinate transformations needed to express a
// propagated satellite state in a ground observer's local horizon frame.
//
// SGP4 outputs TEME (True Equator Mean Equinox) states. To compare against a
// fixed observer we rotate TEME into ECEF using Greenwich Mean Sidereal Time,
// then project the observer-to-satellite vector into the SEZ topocentric frame
// to obtain elevation, azimuth, and slant range.
//
// The GMST-only rotation ignores polar motion and the equation of equinoxes,
// which costs tens of meters at most — irrelevant for visibility analysis.
//
// Reference: Vallado, "Fundamentals of Astrodynamics and Applications", Ch. 3-4.
package frame

import (
	"math"
	"time"
)

// j2000 is the Julian Date of the J2000.0 epoch.
const j2000 = 2451545.0

// OmegaEarth is Earth's rotation rate in rad/s (IAU value).
const OmegaEarth = 7.292115146706979e-5

// JulianDate converts a UTC instant to Julian Date using the standard
// astronomical algorithm.
func JulianDate(t time.Time) float64 {
	y := float64(t.Year())
	m := float64(t.Month())
	d := float64(t.Day())
	h := float64(t.Hour())
	min := float64(t.Minute())
	s := float64(t.Second()) + float64(t.Nanosecond())/1e9

	// Jan/Feb count as months 13/14 of the previous year.
	if m <= 2 {
		y -= 1
		m += 12
	}

	a := math.Floor(y / 100)
	b := 2 - a + math.Floor(a/4)

	jd := math.Floor(365.25*(y+4716)) + math.Floor(30.6001*(m+1)) + d + b - 1524.5
	jd += (h + min/60.0 + s/3600.0) / 24.0

	return jd
}

// GMST returns Greenwich Mean Sidereal Time in radians for a UTC instant,
// using the IAU-82 model (Vallado Eq 3-47):
//
//	θ = 67310.54841 + (876600h + 8640184.812866)·T + 0.093104·T² − 6.2e-6·T³
//
// with T in Julian centuries of UT1 from J2000.0 and θ in seconds of time.
func GMST(t time.Time) float64 {
	jd := JulianDate(t.UTC())
	tc := (jd - j2000) / 36525.0

	// 876600 hours = 3155760000 seconds.
	sec := 67310.54841 +
		(3155760000.0+8640184.812866)*tc +
		0.093104*tc*tc -
		6.2e-6*tc*tc*tc

	sec = math.Mod(sec, 86400.0)
	if sec < 0 {
		sec += 86400.0
	}
	return sec / 86400.0 * 2.0 * math.Pi
}
