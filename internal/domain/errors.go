package domain

import "errors"

var (
	// ErrInvalidTransition indicates a session action that is not legal
	// from the workday's current status. The aggregate is left untouched.
	ErrInvalidTransition = errors.New("invalid workday transition")

	// ErrLocationRequired indicates an action that needs a GPS fix was
	// attempted without one.
	ErrLocationRequired = errors.New("location required")

	// ErrJobNotFound indicates the referenced job does not exist on this workday.
	ErrJobNotFound = errors.New("job not found")

	// ErrJobNotActive indicates the referenced job is not in active status.
	ErrJobNotActive = errors.New("job not active")

	// ErrJobStillActive indicates the day cannot end while a job is active;
	// the caller must route the user through job completion first.
	ErrJobStillActive = errors.New("job still active")
)
