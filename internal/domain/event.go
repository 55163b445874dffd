package domain

// TrackingEvent is an append-only journal entry describing a transition
// or notable occurrence. Events are never mutated or deleted once written
// and are ordered by insertion.
type TrackingEvent struct {
	ID          string
	WorkdayID   string
	Type        EventType
	TimestampMs int64
	JobID       *string
	Location    *LocationPoint
	Detail      string
	Synced      bool
}
