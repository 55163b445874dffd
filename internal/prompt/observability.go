package prompt

import "log/slog"

// CallEvent records metadata about a single decision service call.
type CallEvent struct {
	Kind      PromptKind
	LatencyMs int64
	Success   bool
	ErrorCode string
}

// Observer receives events about decision calls for logging and metrics.
type Observer interface {
	OnCallComplete(event CallEvent)
}

// LogObserver writes decision call events to a structured logger.
type LogObserver struct {
	log *slog.Logger
}

// NewLogObserver creates an Observer that logs events to log.
func NewLogObserver(log *slog.Logger) *LogObserver {
	return &LogObserver{log: log}
}

func (o *LogObserver) OnCallComplete(event CallEvent) {
	if event.Success {
		o.log.Info("decision call",
			"kind", string(event.Kind),
			"latency_ms", event.LatencyMs)
		return
	}
	o.log.Warn("decision call failed",
		"kind", string(event.Kind),
		"latency_ms", event.LatencyMs,
		"error_code", event.ErrorCode)
}

// NoopObserver discards all events. Useful for tests.
type NoopObserver struct{}

func (NoopObserver) OnCallComplete(CallEvent) {}
