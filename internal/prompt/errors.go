package prompt

import "errors"

var (
	// ErrUnavailable indicates the decision service is unreachable.
	ErrUnavailable = errors.New("decision service unavailable")

	// ErrTimeout indicates the decision request exceeded its timeout.
	ErrTimeout = errors.New("decision request timed out")

	// ErrThrottled indicates the decision service rejected the call with a
	// throttling response.
	ErrThrottled = errors.New("decision service throttled")

	// ErrRetryExhausted indicates all throttling retries have been used up.
	ErrRetryExhausted = errors.New("decision retry attempts exhausted")

	// ErrInvalidResponse indicates the decision response could not be parsed.
	ErrInvalidResponse = errors.New("invalid decision response")
)
