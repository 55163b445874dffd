package domain

type WorkdayStatus string

const (
	WorkdayIdle     WorkdayStatus = "idle"
	WorkdayTracking WorkdayStatus = "tracking"
	WorkdayPaused   WorkdayStatus = "paused"
	WorkdayEnded    WorkdayStatus = "ended"
)

type JobStatus string

const (
	JobActive    JobStatus = "active"
	JobCompleted JobStatus = "completed"
)

// EventType identifies a tracking-journal entry kind.
type EventType string

const (
	EventSessionStart        EventType = "SESSION_START"
	EventSessionPause        EventType = "SESSION_PAUSE"
	EventSessionResume       EventType = "SESSION_RESUME"
	EventSessionEnd          EventType = "SESSION_END"
	EventJobStart            EventType = "JOB_START"
	EventJobCompleted        EventType = "JOB_COMPLETED"
	EventNewJobPrompt        EventType = "NEW_JOB_PROMPT"
	EventJobCompletionPrompt EventType = "JOB_COMPLETION_PROMPT"
	EventLocationUpdate      EventType = "LOCATION_UPDATE"
	EventUserAction          EventType = "USER_ACTION"
	EventError               EventType = "ERROR"
	EventGeofenceExit        EventType = "GEOFENCE_EXIT"
)

// ValidEventTypes is the canonical set of accepted event type strings.
var ValidEventTypes = map[string]bool{
	"SESSION_START": true, "SESSION_PAUSE": true, "SESSION_RESUME": true,
	"SESSION_END": true, "JOB_START": true, "JOB_COMPLETED": true,
	"NEW_JOB_PROMPT": true, "JOB_COMPLETION_PROMPT": true,
	"LOCATION_UPDATE": true, "USER_ACTION": true, "ERROR": true,
	"GEOFENCE_EXIT": true,
}
