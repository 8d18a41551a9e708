package frame

import (
	"fmt"
	"math"
)

// WGS-84 ellipsoid parameters.
const (
	wgs84A  = 6378137.0             // semi-major axis (meters)
	wgs84F  = 1.0 / 298.257223563   // flattening
	wgs84E2 = wgs84F * (2 - wgs84F) // first eccentricity squared
)

// Observer is a fixed ground station. The ECEF coordinates are precomputed at
// construction so one observer can be shared read-only across many satellite
// evaluations without repeating the geodetic conversion.
type Observer struct {
	LatDeg, LonDeg, AltM float64
	latRad, lonRad       float64
	ecefX, ecefY, ecefZ  float64 // meters
}

// NewObserver builds an Observer from geodetic coordinates: latitude and
// longitude in decimal degrees, altitude in meters above the WGS-84 ellipsoid.
// Coordinates outside the valid geodetic ranges are rejected.
func NewObserver(latDeg, lonDeg, altM float64) (Observer, error) {
	if latDeg < -90 || latDeg > 90 || math.IsNaN(latDeg) {
		return Observer{}, fmt.Errorf("latitude %.4f out of range [-90, 90]", latDeg)
	}
	if lonDeg < -180 || lonDeg > 180 || math.IsNaN(lonDeg) {
		return Observer{}, fmt.Errorf("longitude %.4f out of range [-180, 180]", lonDeg)
	}

	lat := latDeg * math.Pi / 180.0
	lon := lonDeg * math.Pi / 180.0

	sinLat := math.Sin(lat)
	cosLat := math.Cos(lat)

	// Radius of curvature in the prime vertical.
	n := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	return Observer{
		LatDeg: latDeg,
		LonDeg: lonDeg,
		AltM:   altM,
		latRad: lat,
		lonRad: lon,
		ecefX:  (n + altM) * cosLat * math.Cos(lon),
		ecefY:  (n + altM) * cosLat * math.Sin(lon),
		ecefZ:  (n*(1-wgs84E2) + altM) * sinLat,
	}, nil
}

// ECEF returns the observer's precomputed ECEF position in meters.
func (o Observer) ECEF() (x, y, z float64) {
	return o.ecefX, o.ecefY, o.ecefZ
}
