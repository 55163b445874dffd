package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeters_IdenticalPoints(t *testing.T) {
	assert.Equal(t, 0.0, Meters(48.2082, 16.3738, 48.2082, 16.3738))
}

func TestMeters_OneDegreeLongitudeAtEquator(t *testing.T) {
	d := Meters(0, 0, 0, 1)
	assert.InDelta(t, 111195, d, 50)
}

func TestMeters_Symmetric(t *testing.T) {
	cases := []struct {
		lat1, lon1, lat2, lon2 float64
	}{
		{0, 0, 0, 1},
		{48.2082, 16.3738, 48.1951, 16.3483},
		{-33.8688, 151.2093, 40.7128, -74.0060},
	}
	for _, tc := range cases {
		ab := Meters(tc.lat1, tc.lon1, tc.lat2, tc.lon2)
		ba := Meters(tc.lat2, tc.lon2, tc.lat1, tc.lon1)
		assert.InDelta(t, ab, ba, 1e-9)
	}
}

func TestMeters_ShortDisplacement(t *testing.T) {
	// Roughly 200m north of a fixed site.
	site := [2]float64{48.2082, 16.3738}
	d := Meters(site[0], site[1], site[0]+200.0/111320.0, site[1])
	assert.InDelta(t, 200, d, 2)
	assert.False(t, math.IsNaN(d))
}
