// Package geo provides the canonical great-circle distance metric used by
// geofencing, movement-threshold gating and workday summary totals.
package geo

import "math"

// EarthRadiusMeters is the spherical Earth radius used throughout.
const EarthRadiusMeters = 6371000.0

// Meters returns the haversine great-circle distance in meters between two
// points given in degrees. All distance thresholds in this codebase are
// derived against this exact formula; do not substitute another.
func Meters(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMeters * c
}
