package prompt

import (
	"os"
	"strconv"
	"time"
)

// PromptKind identifies which decision the service is asked to make.
type PromptKind string

const (
	KindNewJob        PromptKind = "new_job"
	KindJobCompletion PromptKind = "job_completion"
)

// ClientConfig holds configuration for the decision service client.
type ClientConfig struct {
	Endpoint   string
	TimeoutMs  int
	MaxRetries int // retries after a throttled attempt

	// CallsPerWindow and Window bound the outbound call rate. The
	// limiter is owned by the client and shared across all callers.
	CallsPerWindow int
	Window         time.Duration
}

// GateConfig holds the thresholds driving prompt eligibility.
type GateConfig struct {
	// MovementThresholdMeters is the displacement below which the
	// technician counts as still, and above which a job site counts
	// as left.
	MovementThresholdMeters float64

	// StillnessWindow is how long the technician must hold still
	// before a new-job prompt is considered.
	StillnessWindow time.Duration

	// RepromptWindow is the lookback for the recently-prompted flag
	// sent to the decision service.
	RepromptWindow time.Duration

	// RecheckInterval is the minimum gap between two decision calls
	// of the same kind.
	RecheckInterval time.Duration
}

// DefaultClientConfig returns a ClientConfig with sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Endpoint:       "http://localhost:8090",
		TimeoutMs:      8000,
		MaxRetries:     3,
		CallsPerWindow: 6,
		Window:         time.Minute,
	}
}

// DefaultGateConfig returns a GateConfig with sensible defaults.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		MovementThresholdMeters: 100,
		StillnessWindow:         15 * time.Minute,
		RepromptWindow:          30 * time.Minute,
		RecheckInterval:         5 * time.Minute,
	}
}

// LoadClientConfig reads decision client configuration from environment
// variables, falling back to defaults for any unset values.
func LoadClientConfig() ClientConfig {
	cfg := DefaultClientConfig()

	if v := os.Getenv("FIELDTRACK_DECISION_ENDPOINT"); v != "" {
		cfg.Endpoint = v
	}
	if v := os.Getenv("FIELDTRACK_DECISION_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TimeoutMs = n
		}
	}
	if v := os.Getenv("FIELDTRACK_DECISION_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.MaxRetries = n
		}
	}
	if v := os.Getenv("FIELDTRACK_DECISION_CALLS_PER_MIN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CallsPerWindow = n
		}
	}
	return cfg
}
