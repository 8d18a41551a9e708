package frame

import "math"

// LookAngle is the topocentric direction from an observer to a satellite.
// Azimuth is measured clockwise from North; elevation from the horizon.
type LookAngle struct {
	AzimuthDeg   float64
	ElevationDeg float64
	RangeKm      float64
}

// LookAt computes the look angle from the observer to a satellite at the
// given ECEF position in meters.
//
// The ECEF observer-to-satellite vector is rotated into the SEZ
// (South-East-Zenith) frame per Vallado Section 4.4.
func (o Observer) LookAt(satX, satY, satZ float64) LookAngle {
	rx := satX - o.ecefX
	ry := satY - o.ecefY
	rz := satZ - o.ecefZ

	sinLat := math.Sin(o.latRad)
	cosLat := math.Cos(o.latRad)
	sinLon := math.Sin(o.lonRad)
	cosLon := math.Cos(o.lonRad)

	south := sinLat*cosLon*rx + sinLat*sinLon*ry - cosLat*rz
	east := -sinLon*rx + cosLon*ry
	zenith := cosLat*cosLon*rx + cosLat*sinLon*ry + sinLat*rz

	rng := math.Sqrt(south*south + east*east + zenith*zenith)

	el := math.Asin(zenith / rng)

	// North = -South in SEZ, so azimuth = atan2(east, -south).
	az := math.Atan2(east, -south)
	if az < 0 {
		az += 2 * math.Pi
	}

	return LookAngle{
		AzimuthDeg:   az * 180.0 / math.Pi,
		ElevationDeg: el * 180.0 / math.Pi,
		RangeKm:      rng / 1000.0,
	}
}
