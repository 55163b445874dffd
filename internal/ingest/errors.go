package ingest

import "errors"

var (
	// ErrInvalidPayload indicates the ping is missing a device id or
	// numeric coordinates, or its body could not be parsed.
	ErrInvalidPayload = errors.New("invalid ping payload")
)
