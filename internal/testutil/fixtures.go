package testutil

import (
	"time"

	"github.com/cuadrantworks/fieldtrack/internal/domain"
)

// FixedNow is the reference wall-clock used across fixtures.
var FixedNow = time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)

// Point builds a location fix at the given coordinates and time.
func Point(lat, lon float64, at time.Time) *domain.LocationPoint {
	p := domain.NewLocationPoint(lat, lon, at)
	return &p
}

// WorkdayOption tweaks a fixture workday after construction.
type WorkdayOption func(*domain.Workday)

func WithStatus(s domain.WorkdayStatus) WorkdayOption {
	return func(w *domain.Workday) {
		w.Status = s
	}
}

// NewTestWorkday creates a tracking workday started at FixedNow with a
// start location in central Vienna.
func NewTestWorkday(technicianID string, opts ...WorkdayOption) *domain.Workday {
	w := domain.NewWorkday(technicianID, Point(48.2082, 16.3738, FixedNow), FixedNow)
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// NewTestWorkdayWithJob creates a tracking workday with one active job at
// the given site coordinates.
func NewTestWorkdayWithJob(technicianID string, siteLat, siteLon float64) (*domain.Workday, *domain.Job) {
	w := NewTestWorkday(technicianID)
	j, err := w.StartJob("Fixture job", Point(siteLat, siteLon, FixedNow), FixedNow.Add(time.Minute))
	if err != nil {
		panic(err)
	}
	return w, j
}
