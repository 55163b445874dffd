package domain

import "time"

// LocationPoint is an immutable GPS fix. TimestampMs is epoch milliseconds.
type LocationPoint struct {
	Latitude    float64
	Longitude   float64
	TimestampMs int64
	Accuracy    *float64
}

// Time returns the fix timestamp as a time.Time in UTC.
func (p LocationPoint) Time() time.Time {
	return time.UnixMilli(p.TimestampMs).UTC()
}

// NewLocationPoint builds a point stamped with the given time.
func NewLocationPoint(lat, lon float64, at time.Time) LocationPoint {
	return LocationPoint{Latitude: lat, Longitude: lon, TimestampMs: at.UnixMilli()}
}
